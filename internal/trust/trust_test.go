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

package trust

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/crl"
)

func selfSignedCSCA(t *testing.T, country string) []byte {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Country: []string{country}, CommonName: country + " CSCA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	return der
}

func TestVerifyIntegrity(t *testing.T) {
	der := selfSignedCSCA(t, "UT")
	sum := sha256.Sum256(der)
	good, err := NewCSCACertificate(der, hex.EncodeToString(sum[:]), crl.Static(nil))
	if err != nil {
		t.Fatalf("NewCSCACertificate() error = %v", err)
	}
	if !good.VerifyIntegrity() {
		t.Error("VerifyIntegrity() = false, want true")
	}

	bad, err := NewCSCACertificate(der, "00", crl.Static(nil))
	if err != nil {
		t.Fatalf("NewCSCACertificate() error = %v", err)
	}
	if bad.VerifyIntegrity() {
		t.Error("VerifyIntegrity() = true for a wrong hash, want false")
	}
}

func TestCandidatesForCountry(t *testing.T) {
	store := NewStore(nil)
	for _, country := range []string{"AU", "AU", "NZ"} {
		der := selfSignedCSCA(t, country)
		sum := sha256.Sum256(der)
		csca, err := NewCSCACertificate(der, hex.EncodeToString(sum[:]), crl.Static(nil))
		if err != nil {
			t.Fatalf("NewCSCACertificate() error = %v", err)
		}
		if err := store.Add(csca); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if got := len(store.CandidatesForCountry("AU")); got != 2 {
		t.Errorf("CandidatesForCountry(AU) len = %d, want 2", got)
	}
	if got := len(store.CandidatesForCountry("NZ")); got != 1 {
		t.Errorf("CandidatesForCountry(NZ) len = %d, want 1", got)
	}
	if got := len(store.CandidatesForCountry("ZZ")); got != 0 {
		t.Errorf("CandidatesForCountry(ZZ) len = %d, want 0", got)
	}
}

func TestIsOverdue(t *testing.T) {
	store := NewStore(nil)
	store.SetOverdueAfter(time.Hour)

	der := selfSignedCSCA(t, "AU")
	sum := sha256.Sum256(der)
	csca, err := NewCSCACertificate(der, hex.EncodeToString(sum[:]), crl.Updating("https://example.test/crl", nil))
	if err != nil {
		t.Fatalf("NewCSCACertificate() error = %v", err)
	}
	if err := store.Add(csca); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !store.IsOverdue() {
		t.Error("IsOverdue() = false for a never-downloaded refreshable CRL, want true")
	}
}

func TestRefreshNowInvokesDelegateOnce(t *testing.T) {
	store := NewStore(nil)
	der := selfSignedCSCA(t, "AU")
	sum := sha256.Sum256(der)
	csca, err := NewCSCACertificate(der, hex.EncodeToString(sum[:]), crl.Static(nil))
	if err != nil {
		t.Fatalf("NewCSCACertificate() error = %v", err)
	}
	if err := store.Add(csca); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	calls := 0
	store.SetDelegate(RefreshObserverFunc(func(results map[string]error) {
		calls++
		if len(results) != 0 {
			t.Errorf("results = %v, want empty (no CRL has a URL)", results)
		}
	}))
	store.RefreshNow(nil, nil) //nolint:staticcheck // no URL-backed CRL in this store, so no request is ever built
	if calls != 1 {
		t.Errorf("delegate called %d times, want 1", calls)
	}
}
