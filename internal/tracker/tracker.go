// Package tracker turns the stream of "active context changed" events
// into bounded session records. Long sessions are flushed in segments on
// heartbeat so a crash loses at most one heartbeat interval.
package tracker

import (
	"context"
	"time"

	"github.com/mtholden/attend/internal/classify"
	"github.com/mtholden/attend/internal/config"
	"github.com/mtholden/attend/internal/logging"
	"github.com/mtholden/attend/internal/store"
)

// ContextEvent is a context switch delivered by the event source.
type ContextEvent struct {
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

type openSession struct {
	domain string
	title  string
	start  time.Time
}

// Tracker owns the single open session. It is driven by the serialized
// dispatcher and is not safe for concurrent use.
type Tracker struct {
	store      *store.Store
	classifier *classify.Classifier
	exclusions *config.ExclusionPolicy

	minSession time.Duration
	flushAfter time.Duration
	now        func() time.Time

	open *openSession

	// first-productive signal, raised at most once per calendar day
	signalDay         string
	onFirstProductive func(day string)
}

// New creates a tracker.
func New(st *store.Store, cl *classify.Classifier, exclusions *config.ExclusionPolicy, minSession, flushAfter time.Duration) *Tracker {
	return &Tracker{
		store:      st,
		classifier: cl,
		exclusions: exclusions,
		minSession: minSession,
		flushAfter: flushAfter,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (t *Tracker) SetNow(now func() time.Time) { t.now = now }

// SetFirstProductiveFunc registers the callback raised the first time in
// a calendar day a productive-classified session opens.
func (t *Tracker) SetFirstProductiveFunc(fn func(day string)) { t.onFirstProductive = fn }

// OnContextChange ends the current session (if any) and opens a new one,
// unless the new context is excluded by policy.
func (t *Tracker) OnContextChange(ctx context.Context, ev ContextEvent) error {
	now := ev.Timestamp
	if now.IsZero() {
		now = t.now()
	}

	if err := t.closeOpen(ctx, now); err != nil {
		return err
	}

	if ev.Domain == "" || t.exclusions.Excluded(ev.URL, ev.Domain) {
		logging.Debug("tracker", "excluded context: %s", logging.Truncate(ev.URL, 80))
		return nil
	}

	t.open = &openSession{domain: ev.Domain, title: ev.Title, start: now}
	logging.Debug("tracker", "session open: %s (%s)", ev.Domain, logging.Truncate(ev.Title, 60))

	if class, ok := t.classifier.Classify(ctx, ev.Domain); ok && class == store.ClassProductive {
		day := store.DayKey(now)
		if day != t.signalDay {
			t.signalDay = day
			if t.onFirstProductive != nil {
				t.onFirstProductive(day)
			}
		}
	}

	return nil
}

// OnHeartbeat flushes the open session as a partial record if it has
// been open long enough, resetting its start boundary so the segments
// sum without double counting.
func (t *Tracker) OnHeartbeat(ctx context.Context) error {
	if t.open == nil {
		return nil
	}
	now := t.now()
	if now.Sub(t.open.start) < t.flushAfter {
		return nil
	}
	if err := t.persist(ctx, t.open, now); err != nil {
		return err
	}
	t.open.start = now
	return nil
}

// Flush closes any open session, for shutdown.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.closeOpen(ctx, t.now())
}

func (t *Tracker) closeOpen(ctx context.Context, end time.Time) error {
	if t.open == nil {
		return nil
	}
	open := t.open
	t.open = nil
	return t.persist(ctx, open, end)
}

func (t *Tracker) persist(ctx context.Context, open *openSession, end time.Time) error {
	if end.Before(open.start) {
		// Clock went backwards (suspend, NTP). Drop rather than record
		// a negative duration.
		logging.Warn("tracker", "end before start for %s, dropping segment", open.domain)
		return nil
	}
	duration := end.Sub(open.start)
	if duration < t.minSession {
		return nil
	}

	class, ok := t.classifier.Classify(ctx, open.domain)
	if !ok {
		class = store.ClassUnclassified
	}

	sess := store.Session{
		Domain:         open.domain,
		Title:          open.title,
		Start:          open.start,
		End:            end,
		Duration:       duration,
		Day:            store.DayKey(open.start),
		Classification: class,
	}
	if _, err := t.store.SaveSession(ctx, sess); err != nil {
		return err
	}
	logging.Debug("tracker", "session saved: %s %s", open.domain, duration.Round(time.Second))
	return nil
}
