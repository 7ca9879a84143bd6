// Package certs provisions the self-signed TLS certificate used by the
// local OAuth callback listener.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inovacc/slack-mcp/internal/encoding"
)

const (
	CertFileName = "localhost.crt"
	KeyFileName  = "localhost.key"

	validity = 365 * 24 * time.Hour
)

// Provider returns the certificate for the callback listener.
type Provider interface {
	Certificate() (tls.Certificate, error)
}

// FileProvider keeps a self-signed localhost certificate in Dir. It is
// generated on first use and regenerated when unreadable or expired.
type FileProvider struct {
	Dir    string
	Logger *slog.Logger

	// Now is used for validity checks; nil means time.Now
	Now func() time.Time

	mu sync.Mutex
}

// NewFileProvider creates a provider rooted at dir.
func NewFileProvider(dir string, logger *slog.Logger) *FileProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &FileProvider{Dir: dir, Logger: logger}
}

func (p *FileProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now()
}

func (p *FileProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.New(slog.DiscardHandler)
}

// Paths returns the certificate and key file paths.
func (p *FileProvider) Paths() (cert, key string) {
	return filepath.Join(p.Dir, CertFileName), filepath.Join(p.Dir, KeyFileName)
}

// Certificate loads the stored pair or generates a new one.
func (p *FileProvider) Certificate() (tls.Certificate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	certPath, keyPath := p.Paths()

	cert, err := p.load(certPath, keyPath)
	if err == nil {
		return cert, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		p.logger().Warn("regenerating callback certificate", "reason", err)
	}

	certPEM, keyPEM, err := generate(p.now())
	if err != nil {
		return tls.Certificate{}, err
	}

	if err := encoding.WriteFileSecure(certPath, certPEM); err != nil {
		return tls.Certificate{}, err
	}

	if err := encoding.WriteFileSecure(keyPath, keyPEM); err != nil {
		return tls.Certificate{}, err
	}

	p.logger().Info("generated callback certificate", "path", certPath)

	return tls.X509KeyPair(certPEM, keyPEM)
}

func (p *FileProvider) load(certPath, keyPath string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, err
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse certificate: %w", err)
	}

	if p.now().After(leaf.NotAfter) {
		return tls.Certificate{}, fmt.Errorf("certificate expired at %s", leaf.NotAfter.Format(time.RFC3339))
	}

	cert.Leaf = leaf

	return cert, nil
}

// generate creates an ECDSA P-256 certificate for localhost and 127.0.0.1.
func generate(now time.Time) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return certPEM, keyPEM, nil
}
