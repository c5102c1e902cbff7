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

package x509view

import (
	"bytes"
	"testing"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/asn1der"
)

// buildName encodes a Name ::= SEQUENCE OF RDN, one attribute per RDN,
// using PrintableString values, matching how CSCA/BSC subjects are
// typically encoded.
func buildName(t *testing.T, pairs [][2]string) []byte {
	t.Helper()
	var rdns []byte
	for _, p := range pairs {
		oid := encodeOID(t, p[0])
		val := []byte{0x13, byte(len(p[1]))}
		val = append(val, p[1]...)
		atv := append(append([]byte{}, oid...), val...)
		atvSeq := tlv(0x30, atv)
		rdn := tlv(0x31, atvSeq)
		rdns = append(rdns, rdn...)
	}
	return tlv(0x30, rdns)
}

func tlv(tag byte, body []byte) []byte {
	out := []byte{tag}
	out = append(out, encodeLength(len(body))...)
	out = append(out, body...)
	return out
}

func encodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n & 0xFF)}, b...)
		n >>= 8
	}
	return append([]byte{0x80 | byte(len(b))}, b...)
}

func encodeOID(t *testing.T, dotted string) []byte {
	t.Helper()
	// Only used for the small fixed set of OIDs exercised by this test.
	known := map[string][]byte{
		OIDCommonName:      {0x06, 0x03, 0x55, 0x04, 0x03},
		OIDCountryName:     {0x06, 0x03, 0x55, 0x04, 0x06},
		OIDOrganizationName: {0x06, 0x03, 0x55, 0x04, 0x0A},
	}
	b, ok := known[dotted]
	if !ok {
		t.Fatalf("unsupported OID in test helper: %s", dotted)
	}
	return b
}

func TestParseNameOrder(t *testing.T) {
	der := buildName(t, [][2]string{
		{OIDCountryName, "AU"},
		{OIDOrganizationName, "Test CSCA"},
		{OIDCommonName, "AU CSCA 01"},
	})
	a, root, rest, err := asn1der.Parse(der)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("trailing bytes: %x", rest)
	}
	name, err := parseName(a, root)
	if err != nil {
		t.Fatalf("parseName() error = %v", err)
	}
	want := "C=AU, O=Test CSCA, CN=AU CSCA 01"
	if got := name.String(); got != want {
		t.Errorf("Name.String() = %q, want %q", got, want)
	}
}

func TestFindExtension(t *testing.T) {
	exts := []Extension{
		{OID: OIDSubjectKeyIdentifier, Value: []byte{0x04, 0x02, 0xAB, 0xCD}},
		{OID: OIDAuthorityKeyIdentifier, Value: []byte{0x30, 0x00}},
	}
	ext, ok := FindExtension(exts, OIDAuthorityKeyIdentifier)
	if !ok {
		t.Fatal("FindExtension() not found")
	}
	if !bytes.Equal(ext.Value, []byte{0x30, 0x00}) {
		t.Errorf("Value = %x, want 3000", ext.Value)
	}
	if _, ok := FindExtension(exts, "1.2.3.4"); ok {
		t.Error("FindExtension() found unexpected match")
	}
}

func TestExtractAKIKeyID(t *testing.T) {
	// AuthorityKeyIdentifier { keyIdentifier [0] IMPLICIT OCTET STRING ::= AB CD EF }
	inner := tlv(0x80, []byte{0xAB, 0xCD, 0xEF})
	der := tlv(0x30, inner)
	got, ok := extractAKIKeyID(der)
	if !ok {
		t.Fatal("extractAKIKeyID() not found")
	}
	if !bytes.Equal(got, []byte{0xAB, 0xCD, 0xEF}) {
		t.Errorf("keyIdentifier = %x, want abcdef", got)
	}
}

func TestCertificateListIsRevoked(t *testing.T) {
	cl := &CertificateList{
		Revoked: []RevokedCertificate{
			{Serial: []byte{0x01}},
			{Serial: []byte{0x02, 0x03}},
		},
	}
	if !cl.IsRevoked([]byte{0x02, 0x03}) {
		t.Error("IsRevoked() = false, want true")
	}
	if cl.IsRevoked([]byte{0x09}) {
		t.Error("IsRevoked() = true, want false")
	}
}
