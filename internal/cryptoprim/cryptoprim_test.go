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

package cryptoprim

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
)

func TestAlgorithmForOID(t *testing.T) {
	tests := []struct {
		oid     string
		wantErr bool
	}{
		{OIDECDSAWithSHA256, false},
		{OIDECDSAWithSHA384, false},
		{OIDSHA256WithRSA, false},
		{"1.2.840.10045.2.1", true}, // ecPublicKey must not resolve to an algorithm
		{"9.9.9.9", true},
	}
	for _, tt := range tests {
		_, err := AlgorithmForOID(tt.oid)
		if (err != nil) != tt.wantErr {
			t.Errorf("AlgorithmForOID(%s) error = %v, wantErr %v", tt.oid, err, tt.wantErr)
		}
	}
}

func TestVDSAlgorithm(t *testing.T) {
	for _, name := range []string{"ES256", "ES384", "ES512"} {
		if _, err := VDSAlgorithm(name); err != nil {
			t.Errorf("VDSAlgorithm(%s) error = %v", name, err)
		}
	}
	if _, err := VDSAlgorithm("HS256"); err == nil {
		t.Error("VDSAlgorithm(HS256) error = nil, want failure")
	}
}

func TestVerifyECDSARawSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	message := []byte("vds payload")
	digest := sumHash(crypto.SHA256, message)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	size := 32
	raw := make([]byte, 2*size)
	r.FillBytes(raw[:size])
	s.FillBytes(raw[size:])

	ok, err := VerifyECDSA(&priv.PublicKey, crypto.SHA256, message, raw)
	if err != nil {
		t.Fatalf("VerifyECDSA() error = %v", err)
	}
	if !ok {
		t.Error("VerifyECDSA() = false, want true")
	}

	raw[0] ^= 0xFF
	ok, _ = VerifyECDSA(&priv.PublicKey, crypto.SHA256, message, raw)
	if ok {
		t.Error("VerifyECDSA() with tampered signature = true, want false")
	}
}

func TestParseECDSASignatureDER(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	digest := sumHash(crypto.SHA384, []byte("hello"))
	der, err := ecdsa.SignASN1(rand.Reader, priv, digest)
	if err != nil {
		t.Fatalf("SignASN1() error = %v", err)
	}
	r, s, err := ParseECDSASignature(der, priv.Curve)
	if err != nil {
		t.Fatalf("ParseECDSASignature() error = %v", err)
	}
	if !ecdsa.Verify(&priv.PublicKey, digest, r, s) {
		t.Error("parsed (r, s) does not verify")
	}
}

func TestHashHex(t *testing.T) {
	got := HashHex(crypto.SHA256, []byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("HashHex(sha256, abc) = %s, want %s", got, want)
	}
}
