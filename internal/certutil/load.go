// Copyright 2025 Dominik Schlosser
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package certutil supplements the core verification pipeline with the
// host-facing bits it needs but that the specification leaves as
// collaborator concerns: loading CSCA certificates from disk (PEM or
// DER, single file or directory) and persisting CRL state in bbolt.
package certutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/crl"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/trust"
)

// LoadCSCAFile reads one certificate from path, in PEM or raw DER form,
// and wraps it as a static (unrefreshing) trust.CSCACertificate. If a
// sibling file with the same base name and a .crl extension exists, it
// is loaded as that CSCA's seed revocation list.
func LoadCSCAFile(path string) (*trust.CSCACertificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("certutil: reading %s: %w", path, err)
	}
	der, err := decodePEMOrDER(raw)
	if err != nil {
		return nil, fmt.Errorf("certutil: %s: %w", path, err)
	}
	sum := sha256.Sum256(der)

	seed, err := loadSiblingCRL(path)
	if err != nil {
		return nil, err
	}
	return trust.NewCSCACertificate(der, hex.EncodeToString(sum[:]), crl.Static(seed))
}

func loadSiblingCRL(certPath string) ([]byte, error) {
	ext := filepath.Ext(certPath)
	crlPath := strings.TrimSuffix(certPath, ext) + ".crl"
	data, err := os.ReadFile(crlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("certutil: reading sibling CRL %s: %w", crlPath, err)
	}
	return data, nil
}

// LoadCSCADir loads every .pem/.crt/.cer/.der file directly inside dir
// (non-recursive) as a static CSCA certificate, picking up sibling
// .crl files along the way. It is the batch form of LoadCSCAFile a
// host uses to seed a TrustStore at startup.
func LoadCSCADir(dir string) ([]*trust.CSCACertificate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("certutil: reading directory %s: %w", dir, err)
	}
	var out []*trust.CSCACertificate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		switch ext {
		case ".pem", ".crt", ".cer", ".der":
		default:
			continue
		}
		csca, err := LoadCSCAFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, csca)
	}
	return out, nil
}

// decodePEMOrDER accepts either a PEM-wrapped certificate or raw DER
// bytes, matching the external interface's "CSCA certificate: X.509 v3
// DER (or PEM wrapper)" contract.
func decodePEMOrDER(raw []byte) ([]byte, error) {
	if block, _ := pem.Decode(raw); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("PEM block has type %q, want CERTIFICATE", block.Type)
		}
		return block.Bytes, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		return nil, fmt.Errorf("malformed PEM input")
	}
	return raw, nil
}
