// Package main generates a Certificate Authority (CA) and a gateway server
// certificate, writing them to files under the output directory.
//
// An existing CA is reused when -ca-cert and -ca-key name readable files, so
// server certificates can be rotated without redistributing the CA.
package main

import (
	"crypto"
	"crypto/x509"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/cloudtty/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma separated server host names and IPs")
	caCertPath := fs.String("ca-cert", "", "existing CA certificate (default <dir>/ca.crt)")
	caKeyPath := fs.String("ca-key", "", "existing CA key (default <dir>/ca.key)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return err
	}
	if *caCertPath == "" {
		*caCertPath = filepath.Join(*dir, "ca.crt")
	}
	if *caKeyPath == "" {
		*caKeyPath = filepath.Join(*dir, "ca.key")
	}

	caCert, caKey, created, err := loadOrCreateCA(*caCertPath, *caKeyPath)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "created CA %s\n", *caCertPath)
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(names, caCert, caKey)
	if err != nil {
		return err
	}
	certPath := filepath.Join(*dir, "server.crt")
	keyPath := filepath.Join(*dir, "server.key")
	if err := writePair(certPath, keyPath, certPEM, keyPEM); err != nil {
		return err
	}
	fmt.Fprintf(out, "created server certificate %s for %s\n", certPath, strings.Join(names, ", "))
	return nil
}

func loadOrCreateCA(certPath, keyPath string) (*x509.Certificate, crypto.Signer, bool, error) {
	if _, err := os.Stat(certPath); err == nil {
		caCert, caKey, err := certgen.LoadCACredentials(certPath, keyPath)
		return caCert, caKey, false, err
	}

	certPEM, keyPEM, err := certgen.GenerateCA("cloudtty CA")
	if err != nil {
		return nil, nil, false, err
	}
	if err := writePair(certPath, keyPath, certPEM, keyPEM); err != nil {
		return nil, nil, false, err
	}
	caCert, caKey, err := certgen.ParseCA(certPEM, keyPEM)
	return caCert, caKey, true, err
}

// writePair writes the certificate world-readable and the key owner-only.
func writePair(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}
