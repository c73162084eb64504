package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExcludedSchemes(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		url      string
		domain   string
		excluded bool
	}{
		{"about:blank", "", true},
		{"chrome://settings", "", true},
		{"chrome-extension://abcdef/popup.html", "", true},
		{"devtools://devtools/bundled/inspector.html", "", true},
		{"file:///home/user/doc.pdf", "", true},
		{"https://github.com/pulls", "github.com", false},
		{"http://example.com", "example.com", false},
	}

	for _, tt := range tests {
		if got := p.Exclusions.Excluded(tt.url, tt.domain); got != tt.excluded {
			t.Errorf("Excluded(%q, %q) = %v, want %v", tt.url, tt.domain, got, tt.excluded)
		}
	}
}

func TestExcludedDomains(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		url      string
		domain   string
		excluded bool
	}{
		{"https://accounts.google.com/signin", "accounts.google.com", true},
		{"https://login.microsoftonline.com/", "login.microsoftonline.com", true},
		{"https://sso.mycorp.com/dashboard", "sso.mycorp.com", true},
		{"https://auth.example.com/", "auth.example.com", true},
		{"https://mail.google.com/", "mail.google.com", false},
	}

	for _, tt := range tests {
		if got := p.Exclusions.Excluded(tt.url, tt.domain); got != tt.excluded {
			t.Errorf("Excluded(%q, %q) = %v, want %v", tt.url, tt.domain, got, tt.excluded)
		}
	}
}

func TestExcludedPaths(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		url      string
		domain   string
		excluded bool
	}{
		{"https://example.com/oauth/callback", "example.com", true},
		{"https://example.com/LOGIN", "example.com", true},
		{"https://example.com/sso/start", "example.com", true},
		{"https://example.com/blog/login-systems-explained", "example.com", true},
		{"https://example.com/docs", "example.com", false},
	}

	for _, tt := range tests {
		if got := p.Exclusions.Excluded(tt.url, tt.domain); got != tt.excluded {
			t.Errorf("Excluded(%q, %q) = %v, want %v", tt.url, tt.domain, got, tt.excluded)
		}
	}
}

func TestExcludedUnparseableURL(t *testing.T) {
	p := DefaultPolicy()

	// Domain check still applies even when the URL is garbage
	if !p.Exclusions.Excluded("::::not-a-url", "sso.internal.net") {
		t.Error("Expected exclusion by domain despite unparseable URL")
	}
	if p.Exclusions.Excluded("::::not-a-url", "github.com") {
		t.Error("Expected no exclusion for unparseable URL on tracked domain")
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadPolicy failed for missing file: %v", err)
	}
	if len(p.Exclusions.Schemes) == 0 {
		t.Error("Expected default exclusions for missing policy file")
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
exclusions:
  schemes: [about]
  domains: [vault.internal]
allow:
  - github.com
  - docs.google.com
deny:
  - youtube.com
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write policy: %v", err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if len(p.Allow) != 2 || p.Allow[0] != "github.com" {
		t.Errorf("Allow list did not load: %+v", p.Allow)
	}
	if len(p.Deny) != 1 || p.Deny[0] != "youtube.com" {
		t.Errorf("Deny list did not load: %+v", p.Deny)
	}
	if !p.Exclusions.Excluded("https://vault.internal/secret", "vault.internal") {
		t.Error("Expected custom domain exclusion to apply")
	}
}
