package classify

import (
	"context"
	"strings"

	"github.com/mtholden/attend/internal/logging"
	"github.com/mtholden/attend/internal/store"
)

// batchCeiling bounds the number of domains per external classifier call.
const batchCeiling = 20

// Result is one classified domain as returned by the external classifier.
type Result struct {
	Domain         string  `json:"domain"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason,omitempty"`
}

// AIClient classifies domains externally. Implemented by OllamaClient.
type AIClient interface {
	ClassifyDomains(ctx context.Context, domains []string) ([]Result, error)
}

// Classifier resolves a domain to a productivity classification.
// Resolution order: static allow list, static deny list, cache, unresolved.
type Classifier struct {
	store *store.Store
	allow []string
	deny  []string
	ai    AIClient
}

// New creates a classifier. ai may be nil, in which case batch
// classification falls back to neutral immediately.
func New(st *store.Store, allow, deny []string, ai AIClient) *Classifier {
	return &Classifier{store: st, allow: allow, deny: deny, ai: ai}
}

// Classify resolves a domain. The second return is false when the domain
// is unresolved (not in the static lists and not cached).
func (c *Classifier) Classify(ctx context.Context, domain string) (store.Classification, bool) {
	if matchesList(domain, c.allow) {
		return store.ClassProductive, true
	}
	if matchesList(domain, c.deny) {
		return store.ClassDistraction, true
	}

	dc, err := c.store.Classification(ctx, domain)
	if err != nil {
		logging.Warn("classify", "cache lookup for %s: %v", domain, err)
		return store.ClassUnclassified, false
	}
	if dc != nil {
		return dc.Classification, true
	}

	return store.ClassUnclassified, false
}

// ClassifyBatch sends still-unresolved domains to the external classifier
// in chunks of at most 20, upserting each verdict into the cache. A failed
// chunk (or a missing/invalid entry in a response) falls back to neutral
// with source "fallback" so the same domains are not re-queried every
// tick. Returns the number of domains newly resolved.
func (c *Classifier) ClassifyBatch(ctx context.Context, domains []string) int {
	var pending []string
	seen := make(map[string]bool)
	for _, d := range domains {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		if _, ok := c.Classify(ctx, d); !ok {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	resolved := 0
	for start := 0; start < len(pending); start += batchCeiling {
		end := start + batchCeiling
		if end > len(pending) {
			end = len(pending)
		}
		resolved += c.classifyChunk(ctx, pending[start:end])
	}
	return resolved
}

func (c *Classifier) classifyChunk(ctx context.Context, chunk []string) int {
	byDomain := make(map[string]Result)
	if c.ai != nil {
		results, err := c.ai.ClassifyDomains(ctx, chunk)
		if err != nil {
			logging.Warn("classify", "external classifier failed for %d domains: %v", len(chunk), err)
		} else {
			for _, r := range results {
				byDomain[r.Domain] = r
			}
		}
	}

	resolved := 0
	for _, domain := range chunk {
		dc := store.DomainClassification{Domain: domain}
		if r, ok := byDomain[domain]; ok && validClass(r.Classification) {
			dc.Classification = store.Classification(r.Classification)
			dc.Confidence = r.Confidence
			dc.Source = store.SourceAI
		} else {
			// Failed or malformed: pin to neutral rather than re-asking
			// forever. Neutral is the safe misclassification.
			dc.Classification = store.ClassNeutral
			dc.Source = store.SourceFallback
		}
		if err := c.store.UpsertClassification(ctx, dc); err != nil {
			logging.Warn("classify", "upsert %s: %v", domain, err)
			continue
		}
		resolved++
	}
	return resolved
}

func validClass(s string) bool {
	switch store.Classification(s) {
	case store.ClassProductive, store.ClassDistraction, store.ClassNeutral:
		return true
	}
	return false
}

// matchesList reports whether domain matches an entry exactly or is a
// subdomain of one ("gist.github.com" matches "github.com").
func matchesList(domain string, list []string) bool {
	domain = strings.ToLower(domain)
	for _, entry := range list {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if domain == entry || strings.HasSuffix(domain, "."+entry) {
			return true
		}
	}
	return false
}
