// Package main generates the development CA and the server certificate of
// FitKeeper into a directory (./certs by default). An existing CA in that
// directory is reused so that clients keep trusting new server certificates.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/FitKeeper/internal/certgen"
)

const caValidity = 10 * 365 * 24 * time.Hour

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// run writes ca.crt/ca.key (unless present) and server.crt/server.key.
func run(dir string, hosts []string) error {
	var cleaned []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}

	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		ca, key, genErr := certgen.GenerateCA("FitKeeper Dev CA", caValidity)
		if genErr != nil {
			return genErr
		}
		keyPEM, encErr := certgen.EncodeKey(key)
		if encErr != nil {
			return encErr
		}
		if err := certgen.WritePair(dir, "ca", certgen.EncodeCertificate(ca.Raw), keyPEM); err != nil {
			return err
		}
		caCert, caKey, err = ca, key, nil
	}
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(cleaned, caCert, caKey)
	if err != nil {
		return err
	}
	return certgen.WritePair(dir, "server", certPEM, keyPEM)
}
