package secchan

import (
	"errors"
	"testing"
)

func TestDefaultConfigNormalization(t *testing.T) {
	cfg := DefaultConfig().normalize()
	if cfg.MaxPackageSize != DefaultMaxPackageSize {
		t.Errorf("MaxPackageSize = %d, want %d", cfg.MaxPackageSize, DefaultMaxPackageSize)
	}
	if cfg.RSAKeySize != DefaultRSAKeySize {
		t.Errorf("RSAKeySize = %d, want %d", cfg.RSAKeySize, DefaultRSAKeySize)
	}
	if cfg.ReadBufferSize != DefaultReadBufferSize {
		t.Errorf("ReadBufferSize = %d, want %d", cfg.ReadBufferSize, DefaultReadBufferSize)
	}
	if cfg.Encoding != "utf8" {
		t.Errorf("Encoding = %q, want utf8", cfg.Encoding)
	}
}

func TestNewEndpointRejectsUnsupportedEncoding(t *testing.T) {
	_, err := NewEndpoint(nil, Config{Role: RoleClient, Encoding: "latin1"})
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("NewEndpoint error = %v, want ErrUnsupportedEncoding", err)
	}
}

func TestRoleString(t *testing.T) {
	cases := map[Role]string{
		RoleServer: "server",
		RoleClient: "client",
		Role(99):   "unknown",
	}
	for role, want := range cases {
		if got := role.String(); got != want {
			t.Errorf("Role(%d).String() = %q, want %q", role, got, want)
		}
	}
}
