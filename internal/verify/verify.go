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

// Package verify orchestrates the seven-step VDS-NC verification
// pipeline: CSCA candidate selection, CSCA integrity, CRL signature,
// BSC revocation, AKI/SKI linkage, BSC signature, and finally the VDS
// signature itself. Every failure surfaces one of the fixed ErrorKind
// values; no step retries.
package verify

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/cryptoprim"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/trust"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/vdsmodel"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/x509view"
)

// ErrorKind is the fixed, flat set of verification failure reasons.
type ErrorKind string

const (
	KindJsonDecodingError               ErrorKind = "JsonDecodingError"
	KindNoMatchingCSCAFound             ErrorKind = "NoMatchingCSCAFound"
	KindCSCACertHashMismatch            ErrorKind = "CSCACertHashMismatch"
	KindLoadCRLFailed                   ErrorKind = "LoadCRLFailed"
	KindVerifyCRLFailed                 ErrorKind = "VerifyCRLFailed"
	KindBSCCertNoSerialNumber           ErrorKind = "BSCCertNoSerialNumber"
	KindBSCCertRevoked                  ErrorKind = "BSCCertRevoked"
	KindExtractBSCAkiFailed             ErrorKind = "ExtractBSCAkiFailed"
	KindExtractCSCASkiFailed            ErrorKind = "ExtractCSCASkiFailed"
	KindBSCAkiMismatchCSCASki           ErrorKind = "BSCAkiMismatchCSCASki"
	KindIssuerSubjectsDontMatch         ErrorKind = "IssuerSubjectsDontMatch"
	KindVerifyBSCSignatureFailed        ErrorKind = "VerifyBSCSignatureFailed"
	KindBSCKeyAlgorithmNotSupported     ErrorKind = "BSCKeyAlgorithmNotSupported"
	KindVerifyVDSSignatureFailed        ErrorKind = "VerifyVDSSignatureFailed"
	KindParseBSCCertFromVDSFailed       ErrorKind = "ParseBSCCertFromVDSFailed"
	KindParseSignatureFromVDSFailed     ErrorKind = "ParseSignatureFromVDSFailed"
	KindParseJSONFailedCanonicalization ErrorKind = "ParseJSONFailedCanonicalization"
	KindLoadBSCPublicKeyDataFailed      ErrorKind = "LoadBSCPublicKeyDataFailed"
)

// Error is the single error type the verifier returns. It always
// carries exactly one Kind — the first pipeline step to fail.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind ErrorKind, err error) *Error { return &Error{Kind: kind, Err: err} }

// Verify runs the full seven-step pipeline against vds using store as
// the trust anchor set. It returns nil on success.
func Verify(vds *vdsmodel.VDS, store *trust.Store) error {
	bscDER, err := vds.DecodeSigCer()
	if err != nil {
		return fail(KindParseBSCCertFromVDSFailed, err)
	}
	bsc, err := x509view.ParseCertificate(bscDER)
	if err != nil {
		return fail(KindParseBSCCertFromVDSFailed, err)
	}

	bscIssuerCountry, ok := countryOf(bsc.Issuer)
	if !ok {
		return fail(KindNoMatchingCSCAFound, fmt.Errorf("BSC issuer has no countryName attribute"))
	}

	// Step 1: candidate selection. A candidate is adopted once its public
	// key verifies the BSC certificate's own signature; a candidate that
	// fails this is silently skipped in favor of the next one. Every
	// other failure belongs to the adopted CSCA alone and propagates
	// with its own ErrorKind instead of being retried against a
	// different candidate.
	var csca *trust.CSCACertificate
	var cscaPub any
	for _, candidate := range store.CandidatesForCountry(bscIssuerCountry) {
		pub, err := publicKey(candidate.Parsed)
		if err != nil {
			continue
		}
		if err := verifySignedBlob(bsc.TBSRaw, bsc.SigAlgOID, bsc.SigValue, pub); err != nil {
			continue
		}
		csca, cscaPub = candidate, pub
		break
	}
	if csca == nil {
		return fail(KindNoMatchingCSCAFound, fmt.Errorf("no CSCA for issuing country %q verifies the BSC signature", bscIssuerCountry))
	}

	return verifyAdopted(vds, bsc, csca, cscaPub)
}

func countryOf(n x509view.Name) (string, bool) {
	for _, a := range n.Attributes {
		if a.OID == x509view.OIDCountryName {
			return a.Value, true
		}
	}
	return "", false
}

// verifyAdopted runs steps 2-7 against the adopted CSCA. None of these
// failures are recoverable: each propagates its own ErrorKind straight
// to the caller, since csca has already been selected.
func verifyAdopted(vds *vdsmodel.VDS, bsc *x509view.Certificate, csca *trust.CSCACertificate, cscaPub any) error {
	// Step 2: CSCA integrity.
	if !csca.VerifyIntegrity() {
		return fail(KindCSCACertHashMismatch, fmt.Errorf("SHA-256(csca.der) does not match recorded hash for %s", csca.Parsed.Subject))
	}

	// Step 3: CRL signature.
	crlData := csca.CRL.Data()
	if len(crlData) == 0 {
		return fail(KindLoadCRLFailed, fmt.Errorf("no CRL data available for CSCA %s", csca.Parsed.Subject))
	}
	crl, err := x509view.ParseCRL(crlData)
	if err != nil {
		return fail(KindVerifyCRLFailed, err)
	}
	if err := verifySignedBlob(crl.TBSRaw, crl.SigAlgOID, crl.SigValue, cscaPub); err != nil {
		return fail(KindVerifyCRLFailed, err)
	}

	// Step 4: BSC not revoked.
	if len(bsc.Serial) == 0 {
		return fail(KindBSCCertNoSerialNumber, fmt.Errorf("BSC certificate has no serial number"))
	}
	if crl.IsRevoked(bsc.Serial) {
		return fail(KindBSCCertRevoked, fmt.Errorf("BSC serial is present in the CRL revoked list"))
	}

	// Step 5: AKI <-> SKI linkage.
	bscAKI, ok := bsc.AuthorityKeyID()
	if !ok {
		return fail(KindExtractBSCAkiFailed, fmt.Errorf("BSC has no authorityKeyIdentifier extension"))
	}
	cscaSKI, ok := csca.Parsed.SubjectKeyID()
	if !ok {
		return fail(KindExtractCSCASkiFailed, fmt.Errorf("CSCA has no subjectKeyIdentifier extension"))
	}
	if !bytesEqual(bscAKI, cscaSKI) {
		return fail(KindBSCAkiMismatchCSCASki, fmt.Errorf("BSC AKI %x does not match CSCA SKI %x", bscAKI, cscaSKI))
	}

	// Step 6: issuer/subject linkage. The BSC certificate's own signature
	// was already checked against cscaPub during CSCA selection (step 1).
	if !namesEqual(bsc.Issuer, csca.Parsed.Subject) {
		return fail(KindIssuerSubjectsDontMatch, fmt.Errorf("BSC issuer %q does not match CSCA subject %q", bsc.Issuer, csca.Parsed.Subject))
	}

	// Step 7: VDS signature.
	bscPub, err := publicKey(bsc)
	if err != nil {
		return fail(KindBSCKeyAlgorithmNotSupported, err)
	}
	dataBytes, err := vds.CanonicalDataBytes()
	if err != nil {
		return fail(KindParseJSONFailedCanonicalization, err)
	}
	sigValue, err := vds.DecodeSigValue()
	if err != nil {
		return fail(KindParseSignatureFromVDSFailed, err)
	}
	alg, err := cryptoprim.VDSAlgorithm(vds.Signature.Alg)
	if err != nil {
		return fail(KindBSCKeyAlgorithmNotSupported, err)
	}
	ecPub, ok := bscPub.(*ecdsa.PublicKey)
	if !ok {
		return fail(KindBSCKeyAlgorithmNotSupported, fmt.Errorf("VDS signature requires an EC public key, BSC has %T", bscPub))
	}
	ok2, err := cryptoprim.VerifyECDSA(ecPub, alg.Hash, dataBytes, sigValue)
	if err != nil {
		return fail(KindVerifyVDSSignatureFailed, err)
	}
	if !ok2 {
		return fail(KindVerifyVDSSignatureFailed, fmt.Errorf("ECDSA verification failed"))
	}

	return nil
}

// verifySignedBlob verifies signature over tbsRaw using the algorithm
// named by sigAlgOID and pub, dispatching to ECDSA or RSA-PKCS1v15.
func verifySignedBlob(tbsRaw []byte, sigAlgOID string, signature []byte, pub any) error {
	alg, err := cryptoprim.AlgorithmForOID(sigAlgOID)
	if err != nil {
		return err
	}
	if alg.IsRSA {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("signature algorithm is RSA but key is %T", pub)
		}
		return cryptoprim.VerifyRSAPKCS1v15(rsaPub, alg.Hash, tbsRaw, signature)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("signature algorithm is ECDSA but key is %T", pub)
	}
	ok2, err := cryptoprim.VerifyECDSA(ecPub, alg.Hash, tbsRaw, signature)
	if err != nil {
		return err
	}
	if !ok2 {
		return fmt.Errorf("ECDSA verification failed")
	}
	return nil
}

// publicKey builds a Go public key value from a certificate's SPKI.
func publicKey(cert *x509view.Certificate) (any, error) {
	switch cert.SPKI.AlgorithmOID {
	case cryptoprim.OIDSHA256WithRSA: // never the SPKI OID, but be defensive
		return nil, fmt.Errorf("unexpected signature OID in SPKI algorithm field")
	case "1.2.840.113549.1.1.1": // rsaEncryption
		return cryptoprim.ParseRSAPublicKeyFromSPKI(cert.SPKI.PublicKey)
	case x509view.OIDECPublicKey:
		return cryptoprim.ParseECPublicKey(cert.SPKI.Parameters, cert.SPKI.PublicKey)
	default:
		return nil, fmt.Errorf("unsupported SPKI algorithm OID %s", cert.SPKI.AlgorithmOID)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// namesEqual compares two Names as an ordered multiset of (OID, value)
// pairs, matching the "iterate OID lists by index" behavior this
// pipeline requires rather than a set-based DN comparison.
func namesEqual(a, b x509view.Name) bool {
	if len(a.Attributes) != len(b.Attributes) {
		return false
	}
	for i := range a.Attributes {
		if a.Attributes[i].OID != b.Attributes[i].OID || a.Attributes[i].Value != b.Attributes[i].Value {
			return false
		}
	}
	return true
}
