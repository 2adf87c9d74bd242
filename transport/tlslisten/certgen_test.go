package tlslisten

import (
	"crypto/x509"
	"slices"
	"testing"
	"time"
)

func TestSelfSignedCertBasicSuccess(t *testing.T) {
	cert, err := selfSignedCert("localhost")
	if err != nil {
		t.Fatalf("selfSignedCert() error = %v", err)
	}
	if len(cert.Certificate) == 0 || len(cert.Certificate[0]) == 0 {
		t.Fatal("expected non-empty tls.Certificate DER chain")
	}
}

func TestSelfSignedCertX509Properties(t *testing.T) {
	cert, err := selfSignedCert("example.internal", "localhost")
	if err != nil {
		t.Fatalf("selfSignedCert() error = %v", err)
	}

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("x509.ParseCertificate() error = %v", err)
	}

	if parsed.Subject.CommonName != "example.internal" {
		t.Fatalf("CommonName = %q, want %q", parsed.Subject.CommonName, "example.internal")
	}
	if !slices.Contains(parsed.DNSNames, "localhost") {
		t.Fatalf("DNSNames = %v, want to contain localhost", parsed.DNSNames)
	}
	if parsed.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
		t.Fatalf("KeyUsage = %v, want DigitalSignature bit set", parsed.KeyUsage)
	}
	if !slices.Contains(parsed.ExtKeyUsage, x509.ExtKeyUsageServerAuth) {
		t.Fatalf("ExtKeyUsage = %v, want to contain ServerAuth", parsed.ExtKeyUsage)
	}

	now := time.Now()
	const skew = 2 * time.Minute
	if parsed.NotBefore.After(now.Add(skew)) {
		t.Fatalf("NotBefore = %v, now = %v", parsed.NotBefore, now)
	}
	if parsed.NotAfter.Before(now.Add(-skew)) {
		t.Fatalf("NotAfter = %v, now = %v", parsed.NotAfter, now)
	}
}

func TestSelfSignedCertDefaultsToLocalhost(t *testing.T) {
	cert, err := selfSignedCert()
	if err != nil {
		t.Fatalf("selfSignedCert() error = %v", err)
	}
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("x509.ParseCertificate() error = %v", err)
	}
	if !slices.Contains(parsed.DNSNames, "localhost") {
		t.Fatalf("DNSNames = %v, want to contain localhost", parsed.DNSNames)
	}
}
