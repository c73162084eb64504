// Package aggregate folds a day's session records into its daily
// snapshot. The snapshot is recomputed from scratch on every pass; a
// day holds few sessions, and full recompute keeps reclassification and
// partial-session merging trivially correct.
package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/mtholden/attend/internal/classify"
	"github.com/mtholden/attend/internal/store"
)

const topDomainLimit = 20

// Aggregator computes and persists daily snapshots.
type Aggregator struct {
	store      *store.Store
	classifier *classify.Classifier
	goalTarget time.Duration
	now        func() time.Time
}

// New creates an aggregator with the given productive-time goal.
func New(st *store.Store, cl *classify.Classifier, goalTarget time.Duration) *Aggregator {
	return &Aggregator{store: st, classifier: cl, goalTarget: goalTarget, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (a *Aggregator) SetNow(now func() time.Time) { a.now = now }

// Aggregate recomputes and overwrites the snapshot for a day. It returns
// the snapshot and the domains it could not resolve, which the caller
// may hand to the batch classifier before re-aggregating.
func (a *Aggregator) Aggregate(ctx context.Context, day string) (store.DailySnapshot, []string, error) {
	sessions, err := a.store.SessionsForDay(ctx, day)
	if err != nil {
		return store.DailySnapshot{}, nil, err
	}

	snap := store.DailySnapshot{
		Day:        day,
		TopDomains: []store.DomainTime{},
	}

	perDomain := make(map[string]time.Duration)
	var domainOrder []string // first-seen order breaks duration ties
	var unresolved []string
	seenUnresolved := make(map[string]bool)

	for _, sess := range sessions {
		class := sess.Classification
		if class == store.ClassUnclassified || class == "" {
			resolved, ok := a.classifier.Classify(ctx, sess.Domain)
			if ok {
				class = resolved
			} else {
				class = store.ClassUnclassified
				if !seenUnresolved[sess.Domain] {
					seenUnresolved[sess.Domain] = true
					unresolved = append(unresolved, sess.Domain)
				}
			}
		}

		snap.Total += sess.Duration
		snap.SessionCount++
		switch class {
		case store.ClassProductive:
			snap.Productive += sess.Duration
		case store.ClassDistraction:
			snap.Distraction += sess.Duration
		default:
			// unclassified folds into neutral
			snap.Neutral += sess.Duration
		}

		if _, ok := perDomain[sess.Domain]; !ok {
			domainOrder = append(domainOrder, sess.Domain)
		}
		perDomain[sess.Domain] += sess.Duration
	}

	top := make([]store.DomainTime, 0, len(domainOrder))
	for _, d := range domainOrder {
		top = append(top, store.DomainTime{Domain: d, Duration: perDomain[d]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Duration > top[j].Duration
	})
	if len(top) > topDomainLimit {
		top = top[:topDomainLimit]
	}
	snap.TopDomains = top

	snap.GoalProgressPct = goalProgress(snap.Productive, a.goalTarget)
	snap.UpdatedAt = a.now()

	if err := a.store.SaveSnapshot(ctx, snap); err != nil {
		return snap, unresolved, err
	}
	return snap, unresolved, nil
}

func goalProgress(productive, goal time.Duration) int {
	if goal <= 0 {
		return 0
	}
	pct := int(math.Round(float64(productive) / float64(goal) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}
