package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mtholden/attend/internal/integrations/calendar"
	"github.com/mtholden/attend/internal/logging"
	"github.com/mtholden/attend/internal/remote"
	"github.com/mtholden/attend/internal/store"
	"github.com/mtholden/attend/internal/sysinfo"
)

// TTLs for the remote data feeding notification bodies.
const (
	weatherTTL  = 15 * time.Minute
	calendarTTL = 2 * time.Minute
	mailTTL     = 5 * time.Minute
	githubTTL   = 5 * time.Minute
)

// composeMorningBriefing assembles the briefing section by section. Each
// collaborator fetch gets its own timeout so one slow fetch cannot starve
// the rest; a failed section is omitted (or replaced by a sign-in prompt)
// rather than suppressing the briefing.
func (s *Scheduler) composeMorningBriefing(ctx context.Context, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.\n", now.Format("Monday, January 2"))

	if info, err := sysinfo.Snapshot(); err == nil {
		fmt.Fprintf(&b, "Machine up %s", formatDuration(info.Uptime))
		if info.Load1 > 0 {
			fmt.Fprintf(&b, ", load %.2f", info.Load1)
		}
		b.WriteString(".\n")
	}

	if s.weather != nil {
		s.withTimeout(ctx, func(fctx context.Context) {
			res, err := remote.Fetch(fctx, s.cache, "weather", weatherTTL, s.weather.Fetch)
			if err != nil {
				logging.Debug("scheduler", "weather unavailable: %v", err)
				return
			}
			w := res.Payload
			fmt.Fprintf(&b, "Weather: %.0f° and %s, high %.0f° low %.0f°", w.Temperature, w.Description, w.High, w.Low)
			if w.PrecipChance >= 30 {
				fmt.Fprintf(&b, ", %d%% chance of precipitation", w.PrecipChance)
			}
			if res.Stale {
				b.WriteString(" (cached)")
			}
			b.WriteString(".\n")
		})
	}

	if s.calendar != nil {
		s.withTimeout(ctx, func(fctx context.Context) {
			res, err := remote.Fetch(fctx, s.cache, "calendar-today", calendarTTL,
				func(ctx context.Context) ([]calendar.Event, error) {
					return s.calendar.GetTodayEvents(ctx)
				})
			if err != nil {
				if errors.Is(err, remote.ErrUnauthenticated) {
					b.WriteString("Calendar: sign in to see today's meetings.\n")
				} else {
					logging.Debug("scheduler", "calendar unavailable: %v", err)
				}
				return
			}
			b.WriteString(formatAgenda(res.Payload))
		})
	}

	if s.mail != nil {
		s.withTimeout(ctx, func(fctx context.Context) {
			res, err := remote.Fetch(fctx, s.cache, "mail", mailTTL, s.mail.FetchSummary)
			if err != nil {
				if errors.Is(err, remote.ErrUnauthenticated) {
					b.WriteString("Mail: sign in to see your inbox.\n")
				} else {
					logging.Debug("scheduler", "mail unavailable: %v", err)
				}
				return
			}
			if res.Payload.TotalUnread > 0 {
				fmt.Fprintf(&b, "%d unread emails.\n", res.Payload.TotalUnread)
			}
		})
	}

	if s.github != nil {
		s.withTimeout(ctx, func(fctx context.Context) {
			res, err := remote.Fetch(fctx, s.cache, "github-dashboard", githubTTL, s.github.FetchDashboard)
			if err != nil {
				if errors.Is(err, remote.ErrUnauthenticated) {
					b.WriteString("GitHub: sign in to see your dashboard.\n")
				} else {
					logging.Debug("scheduler", "github unavailable: %v", err)
				}
				return
			}
			d := res.Payload
			if d.ReviewRequests+d.AssignedIssues+d.UnreadNotifications > 0 {
				fmt.Fprintf(&b, "GitHub: %d reviews waiting, %d assigned issues, %d notifications.\n",
					d.ReviewRequests, d.AssignedIssues, d.UnreadNotifications)
			}
		})
	}

	return strings.TrimRight(b.String(), "\n")
}

func (s *Scheduler) composeReadyToStart() string {
	return fmt.Sprintf("No focused work logged yet today. The goal is %s of productive time. Pick one thing and start small.",
		formatDuration(s.cfg.DailyGoal))
}

func composeMilestone(snap store.DailySnapshot, crossed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crossed %s of productive time today, %s total (%d%% of goal).",
		formatDuration(crossed), formatDuration(snap.Productive), snap.GoalProgressPct)
	if top := topProductiveLine(snap, 1); top != "" {
		b.WriteString(" Mostly on " + top + ".")
	}
	return b.String()
}

func composeDistractionAlert(snap store.DailySnapshot) string {
	return fmt.Sprintf("%s on distracting sites today against %s of productive time. Worth a reset?",
		formatDuration(snap.Distraction), formatDuration(snap.Productive))
}

func composeEndOfDay(snap store.DailySnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tracked %s across %d sessions: %s productive, %s distracted, %s neutral. Goal progress %d%%.",
		formatDuration(snap.Total), snap.SessionCount,
		formatDuration(snap.Productive), formatDuration(snap.Distraction),
		formatDuration(snap.Neutral), snap.GoalProgressPct)
	if line := topProductiveLine(snap, 3); line != "" {
		b.WriteString("\nTop sites: " + line + ".")
	}
	return b.String()
}

func composeMeeting(ev calendar.Event, until time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s starts in %s.", ev.Summary, formatDuration(until.Round(time.Minute)))
	if ev.Location != "" {
		fmt.Fprintf(&b, "\nLocation: %s", ev.Location)
	}
	if ev.MeetLink != "" {
		fmt.Fprintf(&b, "\nVideo call: %s", ev.MeetLink)
	}
	return b.String()
}

func formatAgenda(events []calendar.Event) string {
	var relevant []calendar.Event
	for _, ev := range events {
		if ev.Status != "cancelled" && ev.Summary != "" {
			relevant = append(relevant, ev)
		}
	}
	if len(relevant) == 0 {
		return "No meetings today.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d meetings today:\n", len(relevant))
	for _, ev := range relevant {
		if ev.AllDay {
			fmt.Fprintf(&b, "- %s (all day)\n", ev.Summary)
		} else {
			fmt.Fprintf(&b, "- %s %s\n", ev.Start.Format("15:04"), ev.Summary)
		}
	}
	return b.String()
}

func topProductiveLine(snap store.DailySnapshot, max int) string {
	var parts []string
	for _, dt := range snap.TopDomains {
		if len(parts) >= max {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", dt.Domain, formatDuration(dt.Duration)))
	}
	return strings.Join(parts, ", ")
}

// withTimeout runs one section's fetch-dependent composition under its
// own deadline.
func (s *Scheduler) withTimeout(ctx context.Context, fn func(context.Context)) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	fn(fctx)
}

// formatDuration renders a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) - h*60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
