package scheduler

import (
	"time"
)

// State is the per-day rule ledger. It is a value owned by the
// scheduler: transitions return a new State instead of mutating shared
// fields. Daily-once fired flags live only in memory (a mid-day restart
// re-arms them); the end-of-day rule additionally keeps a durable marker
// in the store because a duplicated daily digest is the one users notice.
type State struct {
	Day                 string
	Fired               map[RuleKind]bool
	LastCooldownFire    map[RuleKind]time.Time
	NotifiedMeetings    map[string]time.Time // meeting ID -> meeting start
	FirstProductiveSeen bool
}

// NewState creates an armed ledger for a day.
func NewState(day string) State {
	return State{
		Day:              day,
		Fired:            make(map[RuleKind]bool),
		LastCooldownFire: make(map[RuleKind]time.Time),
		NotifiedMeetings: make(map[string]time.Time),
	}
}

// ForDay resets the ledger on day rollover. The notified-meeting set
// survives rollover; entries expire on their own schedule (one hour
// after meeting start) so a late-evening warning is not repeated just
// past midnight.
func (s State) ForDay(day string) State {
	if s.Day == day {
		return s
	}
	next := NewState(day)
	for id, start := range s.NotifiedMeetings {
		next.NotifiedMeetings[id] = start
	}
	return next
}

// WithFired marks a daily-once rule as fired.
func (s State) WithFired(k RuleKind) State {
	next := s.clone()
	next.Fired[k] = true
	return next
}

// WithCooldownFire records a repeatable rule's firing time.
func (s State) WithCooldownFire(k RuleKind, t time.Time) State {
	next := s.clone()
	next.LastCooldownFire[k] = t
	return next
}

// WithMeetingNotified records a warned meeting.
func (s State) WithMeetingNotified(id string, start time.Time) State {
	next := s.clone()
	next.NotifiedMeetings[id] = start
	return next
}

// WithFirstProductive marks the first-productive signal as seen today.
func (s State) WithFirstProductive() State {
	next := s.clone()
	next.FirstProductiveSeen = true
	return next
}

// PruneMeetings drops warned-set entries once the meeting start is more
// than an hour in the past.
func (s State) PruneMeetings(now time.Time) State {
	cutoff := now.Add(-time.Hour)
	next := s.clone()
	for id, start := range next.NotifiedMeetings {
		if start.Before(cutoff) {
			delete(next.NotifiedMeetings, id)
		}
	}
	return next
}

func (s State) clone() State {
	next := State{
		Day:                 s.Day,
		Fired:               make(map[RuleKind]bool, len(s.Fired)),
		LastCooldownFire:    make(map[RuleKind]time.Time, len(s.LastCooldownFire)),
		NotifiedMeetings:    make(map[string]time.Time, len(s.NotifiedMeetings)),
		FirstProductiveSeen: s.FirstProductiveSeen,
	}
	for k, v := range s.Fired {
		next.Fired[k] = v
	}
	for k, v := range s.LastCooldownFire {
		next.LastCooldownFire[k] = v
	}
	for k, v := range s.NotifiedMeetings {
		next.NotifiedMeetings[k] = v
	}
	return next
}
