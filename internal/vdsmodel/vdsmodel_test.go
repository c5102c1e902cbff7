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

package vdsmodel

import "testing"

const sampleVDS = `{"data":{"hdr":{"t":"icao.vacc","v":1,"is":"UTO"},"msg":{"uvci":"URN:UVCI:V1:UTO:ABC123","pid":{"n":"DOE<<JOHN"},"ve":[]}},"sig":{"alg":"ES256","cer":"YWJj","sigvl":"ZGVm"}}`

func TestDecodeValidVDS(t *testing.T) {
	vds, err := Decode([]byte(sampleVDS))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if vds.Header.Type != "icao.vacc" || vds.Header.Version != 1 || vds.Header.IssuingCountry != "UTO" {
		t.Errorf("Header = %+v", vds.Header)
	}
	if vds.Signature.Alg != "ES256" {
		t.Errorf("Signature.Alg = %q, want ES256", vds.Signature.Alg)
	}
}

func TestDecodeMissingField(t *testing.T) {
	_, err := Decode([]byte(`{"data":{"hdr":{"t":"icao.vacc","v":1,"is":"UTO"}},"sig":{"alg":"ES256","cer":"YWJj","sigvl":"ZGVm"}}`))
	if err == nil {
		t.Fatal("Decode() error = nil, want JsonDecodingError for missing data.msg")
	}
}

func TestDecodeBadAlg(t *testing.T) {
	_, err := Decode([]byte(`{"data":{"hdr":{"t":"icao.vacc","v":1,"is":"UTO"},"msg":{}},"sig":{"alg":"HS256","cer":"YWJj","sigvl":"ZGVm"}}`))
	if err == nil {
		t.Fatal("Decode() error = nil, want failure for unsupported sig.alg")
	}
}

func TestCanonicalDataBytesIgnoresKeyOrder(t *testing.T) {
	a, err := Decode([]byte(`{"data":{"hdr":{"t":"icao.vacc","v":1,"is":"UTO"},"msg":{"a":1,"b":2}},"sig":{"alg":"ES256","cer":"YWJj","sigvl":"ZGVm"}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	b, err := Decode([]byte(`{"sig":{"alg":"ES256","cer":"YWJj","sigvl":"ZGVm"},"data":{"hdr":{"is":"UTO","v":1,"t":"icao.vacc"},"msg":{"b":2,"a":1}}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ca, err := a.CanonicalDataBytes()
	if err != nil {
		t.Fatalf("CanonicalDataBytes() error = %v", err)
	}
	cb, err := b.CanonicalDataBytes()
	if err != nil {
		t.Fatalf("CanonicalDataBytes() error = %v", err)
	}
	if string(ca) != string(cb) {
		t.Errorf("canonical forms diverge: %q vs %q", ca, cb)
	}
}

func TestDecodeSigCer(t *testing.T) {
	vds, err := Decode([]byte(sampleVDS))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got, err := vds.DecodeSigCer()
	if err != nil {
		t.Fatalf("DecodeSigCer() error = %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("DecodeSigCer() = %q, want %q", got, "abc")
	}
}
