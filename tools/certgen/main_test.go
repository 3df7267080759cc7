package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_CreatesCAAndServerCertificate(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := run([]string{"-dir", dir, "-hosts", "localhost, 10.0.0.5"}, &out); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(out.String(), "created CA") {
		t.Errorf("output %q does not mention the CA", out.String())
	}

	pair, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	if err != nil {
		t.Fatalf("load server pair: %v", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}

	caPEM, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	if err != nil {
		t.Fatal(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		t.Fatal("CA PEM not parsed")
	}
	if _, err := leaf.Verify(x509.VerifyOptions{DNSName: "10.0.0.5", Roots: pool}); err != nil {
		t.Errorf("server certificate does not verify: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "server.key"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key mode = %v; want 0600", perm)
	}
}

func TestRun_ReusesExistingCA(t *testing.T) {
	dir := t.TempDir()
	if err := run([]string{"-dir", dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run([]string{"-dir", dir, "-hosts", "term.example"}, &out); err != nil {
		t.Fatalf("second run error: %v", err)
	}
	after, err := os.ReadFile(filepath.Join(dir, "ca.crt"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("CA was regenerated")
	}
	if strings.Contains(out.String(), "created CA") {
		t.Errorf("unexpected CA creation: %q", out.String())
	}
}

func TestRun_EmptyHosts(t *testing.T) {
	if err := run([]string{"-dir", t.TempDir(), "-hosts", " , "}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for empty host list")
	}
}
