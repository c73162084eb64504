package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mtholden/attend/internal/logging"
)

// Policy is the user-editable tracking policy: which contexts are never
// tracked, and which domains are classified up front without asking the
// AI classifier.
type Policy struct {
	Exclusions ExclusionPolicy `yaml:"exclusions"`
	Allow      []string        `yaml:"allow"` // always productive
	Deny       []string        `yaml:"deny"`  // always distraction
}

// ExclusionPolicy filters contexts out of session tracking entirely.
// Evaluation order: scheme, then domain, then path. First match wins.
type ExclusionPolicy struct {
	Schemes []string `yaml:"schemes"` // exact scheme match
	Domains []string `yaml:"domains"` // substring match on host
	Paths   []string `yaml:"paths"`   // substring match on path, case-insensitive
}

// LoadPolicy reads the policy YAML. A missing file is not an error; the
// defaults apply.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logging.Info("config", "no policy file at %s, using defaults", path)
		return DefaultPolicy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return p, nil
}

// DefaultPolicy excludes browser-internal pages and auth flows, which
// produce short meaningless sessions and would pollute the daily stats.
func DefaultPolicy() *Policy {
	return &Policy{
		Exclusions: ExclusionPolicy{
			Schemes: []string{"about", "chrome", "chrome-extension", "moz-extension", "edge", "devtools", "file"},
			Domains: []string{"accounts.google.com", "login.microsoftonline.com", "sso.", "auth."},
			Paths:   []string{"/oauth", "/signin", "/login", "/sso/", "/saml"},
		},
	}
}

// Excluded reports whether a context should not be tracked. rawURL may be
// unparseable (extension pages, internal URLs); domain is checked on its
// own so exclusion still works in that case.
func (e *ExclusionPolicy) Excluded(rawURL, domain string) bool {
	scheme, path := splitURL(rawURL)

	for _, s := range e.Schemes {
		if scheme == s {
			return true
		}
	}

	host := strings.ToLower(domain)
	for _, d := range e.Domains {
		if d != "" && strings.Contains(host, strings.ToLower(d)) {
			return true
		}
	}

	path = strings.ToLower(path)
	for _, p := range e.Paths {
		if p != "" && strings.Contains(path, strings.ToLower(p)) {
			return true
		}
	}

	return false
}

func splitURL(rawURL string) (scheme, path string) {
	u, err := url.Parse(rawURL)
	if err == nil && u.Scheme != "" {
		return strings.ToLower(u.Scheme), u.Path
	}
	// Unparseable: take anything before "://" as the scheme
	if i := strings.Index(rawURL, "://"); i > 0 {
		return strings.ToLower(rawURL[:i]), rawURL[i+3:]
	}
	return "", rawURL
}
