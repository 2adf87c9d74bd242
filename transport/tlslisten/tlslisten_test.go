package tlslisten

import (
	"testing"
)

func TestNewManagerWithoutDomainUsesFallback(t *testing.T) {
	m, err := NewManager("", "")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if m.manager != nil {
		t.Fatal("expected no autocert.Manager when domain is empty")
	}
	cfg := m.TLSConfig()
	if len(cfg.Certificates) != 1 {
		t.Fatalf("TLSConfig().Certificates = %d, want 1", len(cfg.Certificates))
	}
}

func TestNewManagerWithDomainUsesACME(t *testing.T) {
	m, err := NewManager("example.com", t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if m.manager == nil {
		t.Fatal("expected an autocert.Manager when domain is set")
	}
}

func TestHostPolicyAcceptsDomainAndSubdomains(t *testing.T) {
	m, err := NewManager("example.com", t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	cases := map[string]bool{
		"example.com":     true,
		"api.example.com": true,
		"evil.com":        false,
	}
	for host, want := range cases {
		err := m.hostPolicy(nil, host)
		if got := err == nil; got != want {
			t.Errorf("hostPolicy(%q) accepted = %v, want %v (err=%v)", host, got, want, err)
		}
	}
}
