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

// Package vdsmodel decodes the ICAO VDS-NC JSON envelope. It keeps the
// exact original text alongside the typed view because the signature
// input is a canonicalisation of that text's "data" field, not of any
// re-serialization of the decoded struct.
package vdsmodel

import (
	"fmt"
	"strconv"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/canonjson"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/format"
)

// Header is the VDS message header, `data.hdr`.
type Header struct {
	Type           string `json:"t"`
	Version        int    `json:"v"`
	IssuingCountry string `json:"is"`
}

// Signature is the VDS signature block, `sig`.
type Signature struct {
	Alg   string // ES256, ES384, or ES512
	Cer   string // base64url BSC certificate DER, no padding
	SigVl string // base64url raw (r||s) signature, no padding
}

// VDS is the decoded envelope. OriginalText must never be regenerated
// from Header/Message/Signature: canonicalization runs against the
// "data" object as it was actually received, not as this package would
// re-encode it.
type VDS struct {
	Header       Header
	Message      canonjson.Value // data.msg, kept generic: payload shape varies by hdr.t
	Signature    Signature
	OriginalText []byte
	parsed       canonjson.Value // full parsed envelope, used to re-extract "data" for signing
}

// DecodeError wraps a decode failure with the fixed JsonDecodingError kind.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return fmt.Sprintf("JsonDecodingError: %s", e.Reason) }

func decodeErr(format_ string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format_, args...)}
}

// Decode parses raw JSON text into a VDS, retaining the original bytes.
func Decode(text []byte) (*VDS, error) {
	root, err := canonjson.Parse(text)
	if err != nil {
		return nil, decodeErr("invalid JSON: %v", err)
	}
	if root.Kind != canonjson.KindObject {
		return nil, decodeErr("top-level value is not an object")
	}

	data, ok := root.Get("data")
	if !ok || data.Kind != canonjson.KindObject {
		return nil, decodeErr("missing or malformed \"data\" field")
	}
	sigVal, ok := root.Get("sig")
	if !ok || sigVal.Kind != canonjson.KindObject {
		return nil, decodeErr("missing or malformed \"sig\" field")
	}

	hdrVal, ok := data.Get("hdr")
	if !ok || hdrVal.Kind != canonjson.KindObject {
		return nil, decodeErr("missing or malformed \"data.hdr\" field")
	}
	hdr, err := decodeHeader(hdrVal)
	if err != nil {
		return nil, err
	}

	msg, ok := data.Get("msg")
	if !ok {
		return nil, decodeErr("missing \"data.msg\" field")
	}

	sig, err := decodeSignature(sigVal)
	if err != nil {
		return nil, err
	}

	return &VDS{
		Header:       hdr,
		Message:      msg,
		Signature:    sig,
		OriginalText: append([]byte(nil), text...),
		parsed:       root,
	}, nil
}

func decodeHeader(v canonjson.Value) (Header, error) {
	t, ok := v.Get("t")
	if !ok || t.Kind != canonjson.KindString {
		return Header{}, decodeErr("hdr.t missing or not a string")
	}
	ver, ok := v.Get("v")
	if !ok || ver.Kind != canonjson.KindNumber {
		return Header{}, decodeErr("hdr.v missing or not a number")
	}
	verInt, err := numberToInt(ver.Num)
	if err != nil {
		return Header{}, decodeErr("hdr.v is not an integer: %v", err)
	}
	is, ok := v.Get("is")
	if !ok || is.Kind != canonjson.KindString {
		return Header{}, decodeErr("hdr.is missing or not a string")
	}
	if len(is.Str) != 3 {
		return Header{}, decodeErr("hdr.is must be a 3-letter country code, got %q", is.Str)
	}
	return Header{Type: t.Str, Version: verInt, IssuingCountry: is.Str}, nil
}

func decodeSignature(v canonjson.Value) (Signature, error) {
	alg, ok := v.Get("alg")
	if !ok || alg.Kind != canonjson.KindString {
		return Signature{}, decodeErr("sig.alg missing or not a string")
	}
	switch alg.Str {
	case "ES256", "ES384", "ES512":
	default:
		return Signature{}, decodeErr("sig.alg %q is not one of ES256/ES384/ES512", alg.Str)
	}
	cer, ok := v.Get("cer")
	if !ok || cer.Kind != canonjson.KindString {
		return Signature{}, decodeErr("sig.cer missing or not a string")
	}
	sigvl, ok := v.Get("sigvl")
	if !ok || sigvl.Kind != canonjson.KindString {
		return Signature{}, decodeErr("sig.sigvl missing or not a string")
	}
	return Signature{Alg: alg.Str, Cer: cer.Str, SigVl: sigvl.Str}, nil
}

func numberToInt(lit string) (int, error) {
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CanonicalDataBytes re-extracts data.hdr and data.msg together as they
// were originally received and canonicalizes them. This is what the VDS
// signature was actually computed over.
func (v *VDS) CanonicalDataBytes() ([]byte, error) {
	data, ok := v.parsed.Get("data")
	if !ok {
		return nil, decodeErr("original text no longer carries a \"data\" field")
	}
	return canonjson.Canonicalize(data)
}

// DecodeSigCer returns the BSC certificate DER bytes carried in sig.cer.
func (v *VDS) DecodeSigCer() ([]byte, error) {
	return format.DecodeBase64URL(v.Signature.Cer)
}

// DecodeSigValue returns the raw (r||s) signature bytes carried in sig.sigvl.
func (v *VDS) DecodeSigValue() ([]byte, error) {
	return format.DecodeBase64URL(v.Signature.SigVl)
}
