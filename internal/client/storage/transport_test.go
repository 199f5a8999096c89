package storage

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/FitKeeper/internal/certgen"
)

func TestNewHTTPClient_NoCA(t *testing.T) {
	c, err := NewHTTPClient("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Transport != nil {
		t.Error("expected default transport")
	}
}

func TestNewHTTPClient_ReadCAError(t *testing.T) {
	if _, err := NewHTTPClient(filepath.Join(t.TempDir(), "nope.crt")); err == nil {
		t.Error("expected read error")
	}
}

func TestNewHTTPClient_InvalidCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewHTTPClient(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewHTTPClient_TrustsDevCA(t *testing.T) {
	ca, caKey, err := certgen.GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate([]string{"127.0.0.1"}, ca, caKey)
	if err != nil {
		t.Fatal(err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}}
	srv.StartTLS()
	defer srv.Close()

	caPath := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(caPath, certgen.EncodeCertificate(ca.Raw), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := NewHTTPClient(caPath)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("request with dev CA failed: %v", err)
	}
	resp.Body.Close()

	if _, err := http.Get(srv.URL); err == nil {
		t.Error("default client should not trust the dev CA")
	}
}
