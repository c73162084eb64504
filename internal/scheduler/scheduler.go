// Package scheduler evaluates the notification rule table on every tick
// and fires each rule at most once per day (or per cooldown window).
// Correctness under restarts comes from recomputing the daily snapshot
// from persisted sessions on every tick rather than trusting memory.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/mtholden/attend/internal/aggregate"
	"github.com/mtholden/attend/internal/classify"
	"github.com/mtholden/attend/internal/config"
	"github.com/mtholden/attend/internal/integrations/calendar"
	"github.com/mtholden/attend/internal/integrations/github"
	"github.com/mtholden/attend/internal/integrations/mail"
	"github.com/mtholden/attend/internal/integrations/weather"
	"github.com/mtholden/attend/internal/logging"
	"github.com/mtholden/attend/internal/notify"
	"github.com/mtholden/attend/internal/remote"
	"github.com/mtholden/attend/internal/store"
)

// Collaborator interfaces; all optional. A nil collaborator degrades the
// notification bodies, never the fire decision.

// WeatherFetcher fetches current conditions.
type WeatherFetcher interface {
	Fetch(ctx context.Context) (weather.Report, error)
}

// CalendarFetcher fetches calendar events.
type CalendarFetcher interface {
	GetTodayEvents(ctx context.Context) ([]calendar.Event, error)
	GetUpcomingEvents(ctx context.Context, d time.Duration, maxResults int) ([]calendar.Event, error)
}

// MailFetcher fetches the inbox summary.
type MailFetcher interface {
	FetchSummary(ctx context.Context) (mail.Summary, error)
}

// DashboardFetcher fetches GitHub dashboard counts.
type DashboardFetcher interface {
	FetchDashboard(ctx context.Context) (github.Dashboard, error)
}

// Scheduler drives the rule table. It must only be called from the
// serialized dispatcher; it holds no locks of its own.
type Scheduler struct {
	cfg        *config.Config
	store      *store.Store
	agg        *aggregate.Aggregator
	classifier *classify.Classifier
	notifier   notify.Notifier
	cache      *remote.Cache

	weather  WeatherFetcher
	calendar CalendarFetcher
	mail     MailFetcher
	github   DashboardFetcher

	now   func() time.Time
	state State
}

// New creates a scheduler with an armed ledger for the current day.
func New(cfg *config.Config, st *store.Store, agg *aggregate.Aggregator, cl *classify.Classifier, notifier notify.Notifier, cache *remote.Cache) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		store:      st,
		agg:        agg,
		classifier: cl,
		notifier:   notifier,
		cache:      cache,
		now:        time.Now,
	}
	s.state = NewState(store.DayKey(s.now()))
	return s
}

// SetNow overrides the clock, for tests.
func (s *Scheduler) SetNow(now func() time.Time) { s.now = now }

// SetWeather wires the weather collaborator.
func (s *Scheduler) SetWeather(w WeatherFetcher) { s.weather = w }

// SetCalendar wires the calendar collaborator.
func (s *Scheduler) SetCalendar(c CalendarFetcher) { s.calendar = c }

// SetMail wires the mail collaborator.
func (s *Scheduler) SetMail(m MailFetcher) { s.mail = m }

// SetGitHub wires the GitHub collaborator.
func (s *Scheduler) SetGitHub(g DashboardFetcher) { s.github = g }

// State returns the current rule ledger.
func (s *Scheduler) State() State { return s.state }

// Tick runs one evaluation pass: rollover check, snapshot recompute,
// batch reclassification, then every tick rule and the meeting check.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()
	day := store.DayKey(now)
	s.state = s.state.ForDay(day)

	snap, unresolved, err := s.agg.Aggregate(ctx, day)
	if err != nil {
		return err
	}
	if len(unresolved) > 0 {
		if s.classifier.ClassifyBatch(ctx, unresolved) > 0 {
			// Classifications changed; the snapshot must reflect them.
			snap, _, err = s.agg.Aggregate(ctx, day)
			if err != nil {
				return err
			}
		}
	}

	for _, rule := range tickRules {
		if s.shouldFire(ctx, rule, now, snap) {
			s.fire(ctx, rule, now, snap)
		}
	}

	s.checkMeetings(ctx, now)
	s.state = s.state.PruneMeetings(now)
	return nil
}

// OnFirstProductive handles the one event-triggered rule: the first
// productive session of the day. Called from the dispatcher, so it runs
// serialized with ticks.
func (s *Scheduler) OnFirstProductive(ctx context.Context, day string) {
	s.state = s.state.ForDay(day).WithFirstProductive()
	if s.state.Fired[RuleFirstProductive] {
		return
	}
	s.state = s.state.WithFired(RuleFirstProductive)
	s.send(ctx, RuleFirstProductive, notify.Notification{
		ID:       notify.NewID(RuleFirstProductive.String(), day),
		Title:    "Nice start",
		Body:     "First productive session of the day is underway. Keep it rolling.",
		Priority: notify.PriorityLow,
	})
}

// shouldFire evaluates one rule's trigger condition against the snapshot
// and wall clock. It performs no side effects besides the end-of-day
// durable-marker read.
func (s *Scheduler) shouldFire(ctx context.Context, rule RuleKind, now time.Time, snap store.DailySnapshot) bool {
	switch rule {
	case RuleMorningBriefing:
		return s.inHourWindow(now, s.cfg.MorningHour) && !s.state.Fired[rule]

	case RuleReadyToStart:
		return s.inHourWindow(now, s.cfg.ReadyHour) &&
			snap.Productive < time.Minute &&
			!s.state.FirstProductiveSeen &&
			!s.state.Fired[rule]

	case RuleOneHourMilestone:
		// Latched: once productive time crosses an hour the rule fires
		// and stays fired even if a reclassification lowers the total.
		return snap.Productive >= time.Hour && !s.state.Fired[rule]

	case RuleDailyGoal:
		return snap.Productive >= s.cfg.DailyGoal && !s.state.Fired[rule]

	case RuleDistractionAlert:
		if snap.Distraction < s.cfg.DistractionThreshold {
			return false
		}
		last, ok := s.state.LastCooldownFire[rule]
		return !ok || now.Sub(last) >= s.cfg.DistractionCooldown

	case RuleEndOfDay:
		if !s.inHourWindow(now, s.cfg.EndOfDayHour) {
			return false
		}
		sent, err := s.store.WasSent(ctx, rule.String(), snap.Day)
		if err != nil {
			logging.Warn("scheduler", "end-of-day marker check: %v", err)
			return false
		}
		return !sent
	}
	return false
}

// fire composes and sends a rule's notification and records the firing
// in the ledger. Composition fetches are best-effort; the firing itself
// is already decided.
func (s *Scheduler) fire(ctx context.Context, rule RuleKind, now time.Time, snap store.DailySnapshot) {
	var n notify.Notification
	n.ID = notify.NewID(rule.String(), snap.Day)

	switch rule {
	case RuleMorningBriefing:
		n.Title = "Good morning"
		n.Body = s.composeMorningBriefing(ctx, now)
		n.Priority = notify.PriorityNormal
	case RuleReadyToStart:
		n.Title = "Ready to start?"
		n.Body = s.composeReadyToStart()
		n.Priority = notify.PriorityNormal
	case RuleOneHourMilestone:
		n.Title = "One hour of focus"
		n.Body = composeMilestone(snap, time.Hour)
		n.Priority = notify.PriorityLow
	case RuleDailyGoal:
		n.Title = "Daily goal reached"
		n.Body = composeMilestone(snap, s.cfg.DailyGoal)
		n.Priority = notify.PriorityNormal
	case RuleDistractionAlert:
		n.Title = "Distraction check"
		n.Body = composeDistractionAlert(snap)
		n.Priority = notify.PriorityHigh
	case RuleEndOfDay:
		n.Title = "Today in review"
		n.Body = composeEndOfDay(snap)
		n.Priority = notify.PriorityNormal
	default:
		return
	}

	switch rule {
	case RuleDistractionAlert:
		s.state = s.state.WithCooldownFire(rule, now)
	case RuleEndOfDay:
		s.state = s.state.WithFired(rule)
		if err := s.store.MarkSent(ctx, rule.String(), snap.Day); err != nil {
			logging.Warn("scheduler", "mark end-of-day sent: %v", err)
		}
	default:
		s.state = s.state.WithFired(rule)
	}

	s.send(ctx, rule, n)
}

func (s *Scheduler) send(ctx context.Context, rule RuleKind, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		logging.Warn("scheduler", "notify %s: %v", rule, err)
		return
	}
	logging.Info("scheduler", "fired %s", rule)
}

// checkMeetings warns once per upcoming meeting when its start falls in
// the acceptance band around the configured lead time. The band is wider
// than the hour-rule window to absorb tick jitter on top of missed ticks.
func (s *Scheduler) checkMeetings(ctx context.Context, now time.Time) {
	if s.calendar == nil {
		return
	}

	lookahead := s.cfg.MeetingLead + 5*time.Minute
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	res, err := remote.Fetch(fetchCtx, s.cache, "calendar-upcoming", 2*time.Minute,
		func(ctx context.Context) ([]calendar.Event, error) {
			return s.calendar.GetUpcomingEvents(ctx, lookahead, 10)
		})
	if err != nil {
		if errors.Is(err, remote.ErrUnauthenticated) {
			logging.Debug("scheduler", "calendar needs sign-in, skipping meeting check")
		} else {
			logging.Warn("scheduler", "upcoming events: %v", err)
		}
		return
	}

	lower := s.cfg.MeetingLead - time.Minute
	upper := s.cfg.MeetingLead + 2*time.Minute

	for _, ev := range res.Payload {
		if ev.Status == "cancelled" || ev.AllDay {
			continue
		}
		until := ev.Start.Sub(now)
		if until < lower || until > upper {
			continue
		}
		if _, warned := s.state.NotifiedMeetings[ev.ID]; warned {
			continue
		}

		s.state = s.state.WithMeetingNotified(ev.ID, ev.Start)
		s.send(ctx, RuleMeetingSoon, notify.Notification{
			ID:       notify.NewID(RuleMeetingSoon.String(), store.DayKey(now)),
			Title:    "Meeting soon",
			Body:     composeMeeting(ev, until),
			Priority: notify.PriorityHigh,
		})
	}
}

// inHourWindow matches the first two minutes of a local hour. An exact
// minute check would miss the trigger whenever a tick is delayed through
// it; two minutes of acceptance trades a slightly late notification for
// robustness against skipped ticks.
func (s *Scheduler) inHourWindow(now time.Time, hour int) bool {
	return now.Hour() == hour && now.Minute() < 2
}
