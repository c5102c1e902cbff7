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

// Package cryptoprim wraps the hashing and signature-verification
// primitives the verifier needs, and maps the small set of X.509
// signature-algorithm OIDs the pipeline recognizes onto them. ECDSA
// signatures are accepted in either raw (r||s) or ASN.1 DER form,
// covering both the VDS signature itself and BSC/CSCA certificate
// signatures, across the three ECDSA curves and the one RSA scheme
// VDS-NC certificates use.
package cryptoprim

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Algorithm identifies a hash+signature pairing recognized by this pipeline.
type Algorithm struct {
	Name string
	Hash crypto.Hash
	// Curve is non-nil for ECDSA algorithms.
	Curve elliptic.Curve
	// IsRSA marks the one RSA-PKCS1v15 scheme this pipeline supports.
	IsRSA bool
}

// Well-known signature-algorithm OIDs, per RFC 5758 / RFC 3279.
const (
	OIDSHA256WithRSA   = "1.2.840.113549.1.1.11"
	OIDECDSAWithSHA256 = "1.2.840.10045.4.3.2"
	OIDECDSAWithSHA384 = "1.2.840.10045.4.3.3"
	OIDECDSAWithSHA512 = "1.2.840.10045.4.3.4"
)

var algorithmsByOID = map[string]Algorithm{
	OIDSHA256WithRSA:   {Name: "sha256WithRSAEncryption", Hash: crypto.SHA256, IsRSA: true},
	OIDECDSAWithSHA256: {Name: "ecdsa-with-SHA256", Hash: crypto.SHA256, Curve: elliptic.P256()},
	OIDECDSAWithSHA384: {Name: "ecdsa-with-SHA384", Hash: crypto.SHA384, Curve: elliptic.P384()},
	OIDECDSAWithSHA512: {Name: "ecdsa-with-SHA512", Hash: crypto.SHA512, Curve: elliptic.P521()},
}

// AlgorithmForOID maps a signatureAlgorithm.algorithm OID to a known
// Algorithm. Deliberately does NOT fall back from the bare ecPublicKey
// OID (1.2.840.10045.2.1) to ECDSA-with-SHA384: certificate signature
// algorithms must be stated explicitly by sigAlg, never inferred from
// the key type alone.
func AlgorithmForOID(oid string) (Algorithm, error) {
	alg, ok := algorithmsByOID[oid]
	if !ok {
		return Algorithm{}, fmt.Errorf("cryptoprim: unsupported signature algorithm OID %s", oid)
	}
	return alg, nil
}

// VDSAlgorithm maps a VDS sig.alg string (ES256/ES384/ES512) to an Algorithm.
func VDSAlgorithm(sigAlg string) (Algorithm, error) {
	switch sigAlg {
	case "ES256":
		return Algorithm{Name: sigAlg, Hash: crypto.SHA256, Curve: elliptic.P256()}, nil
	case "ES384":
		return Algorithm{Name: sigAlg, Hash: crypto.SHA384, Curve: elliptic.P384()}, nil
	case "ES512":
		return Algorithm{Name: sigAlg, Hash: crypto.SHA512, Curve: elliptic.P521()}, nil
	default:
		return Algorithm{}, fmt.Errorf("cryptoprim: unsupported VDS signature algorithm %q", sigAlg)
	}
}

// HashHex hashes data with the given algorithm and returns lower-case hex.
func HashHex(h crypto.Hash, data []byte) string {
	return hex.EncodeToString(sumHash(h, data))
}

func sumHash(h crypto.Hash, data []byte) []byte {
	switch h {
	case crypto.SHA256:
		sum := sha256.Sum256(data)
		return sum[:]
	case crypto.SHA384:
		sum := sha512.Sum384(data)
		return sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(data)
		return sum[:]
	default:
		panic(fmt.Sprintf("cryptoprim: unsupported hash %v", h))
	}
}

type ecdsaSigValue struct {
	R, S *big.Int
}

// ParseECDSASignature accepts either a raw (r||s) signature of exactly
// 2*curveByteSize bytes, or an ASN.1 DER ECDSA-Sig-Value, and returns
// the (r, s) integers. Certificates encode signatures in DER; the VDS
// envelope carries them raw.
func ParseECDSASignature(sig []byte, curve elliptic.Curve) (r, s *big.Int, err error) {
	size := (curve.Params().BitSize + 7) / 8
	if len(sig) == 2*size {
		r = new(big.Int).SetBytes(sig[:size])
		s = new(big.Int).SetBytes(sig[size:])
		return r, s, nil
	}
	var v ecdsaSigValue
	if _, err := asn1.Unmarshal(sig, &v); err != nil {
		return nil, nil, fmt.Errorf("cryptoprim: signature is neither raw (r||s) of length %d nor valid DER: %w", 2*size, err)
	}
	return v.R, v.S, nil
}

// VerifyECDSA verifies sig (raw or DER, see ParseECDSASignature) over
// message using pub and the given hash algorithm.
func VerifyECDSA(pub *ecdsa.PublicKey, h crypto.Hash, message, sig []byte) (bool, error) {
	r, s, err := ParseECDSASignature(sig, pub.Curve)
	if err != nil {
		return false, err
	}
	digest := sumHash(h, message)
	return ecdsa.Verify(pub, digest, r, s), nil
}

// VerifyRSAPKCS1v15 verifies an RSA-PKCS1-v1.5 signature over message.
func VerifyRSAPKCS1v15(pub *rsa.PublicKey, h crypto.Hash, message, sig []byte) error {
	digest := sumHash(h, message)
	return rsa.VerifyPKCS1v15(pub, h, digest, sig)
}

// ParseECPublicKey builds a *ecdsa.PublicKey from SPKI algorithm
// parameters (the named-curve OID) and the raw EC point bytes.
func ParseECPublicKey(curveOIDDER, pointBytes []byte) (*ecdsa.PublicKey, error) {
	var curveOID asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(curveOIDDER, &curveOID); err != nil {
		return nil, fmt.Errorf("cryptoprim: EC parameters is not a named curve OID: %w", err)
	}
	curve, err := curveForOID(curveOID)
	if err != nil {
		return nil, err
	}
	x, y := elliptic.Unmarshal(curve, pointBytes)
	if x == nil {
		return nil, fmt.Errorf("cryptoprim: invalid EC point encoding")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func curveForOID(oid asn1.ObjectIdentifier) (elliptic.Curve, error) {
	switch {
	case oid.Equal(asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}): // prime256v1 / P-256
		return elliptic.P256(), nil
	case oid.Equal(asn1.ObjectIdentifier{1, 3, 132, 0, 34}): // P-384
		return elliptic.P384(), nil
	case oid.Equal(asn1.ObjectIdentifier{1, 3, 132, 0, 35}): // P-521
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("cryptoprim: unsupported named curve %v", oid)
	}
}

// ParseRSAPublicKeyFromSPKI parses a PKCS#1 RSAPublicKey structure
// (the SPKI's raw key bytes for rsaEncryption).
func ParseRSAPublicKeyFromSPKI(keyBytes []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKCS1PublicKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("cryptoprim: invalid RSA public key: %w", err)
	}
	return pub, nil
}
