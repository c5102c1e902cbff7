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

// Package x509view is a typed façade over internal/asn1der for the two
// structures the verification pipeline needs: X.509 Certificate and
// CertificateList (CRL). It walks TBSCertificate/TBSCertList by field
// type rather than by fixed child index, because both structures have
// OPTIONAL leading fields (version, issuer/subject unique IDs) that
// shift every later index once present.
package x509view

import (
	"fmt"
	"strings"
	"time"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/asn1der"
)

// Well-known OIDs this package needs to recognize.
const (
	OIDCommonName            = "2.5.4.3"
	OIDCountryName           = "2.5.4.6"
	OIDOrganizationName      = "2.5.4.10"
	OIDOrganizationalUnit    = "2.5.4.11"
	OIDStateOrProvince       = "2.5.4.8"
	OIDLocalityName          = "2.5.4.7"
	OIDSerialNumberAttribute = "2.5.4.5"

	OIDSubjectKeyIdentifier   = "2.5.29.14"
	OIDAuthorityKeyIdentifier = "2.5.29.35"
	OIDBasicConstraints       = "2.5.29.19"
	OIDKeyUsage               = "2.5.29.15"
	OIDCRLNumber              = "2.5.29.20"

	OIDECPublicKey   = "1.2.840.10045.2.1"
	OIDRSAEncryption = "1.2.840.113549.1.1.1"
)

var dnShortNames = map[string]string{
	OIDCommonName:            "CN",
	OIDCountryName:           "C",
	OIDOrganizationName:      "O",
	OIDOrganizationalUnit:    "OU",
	OIDStateOrProvince:       "ST",
	OIDLocalityName:          "L",
	OIDSerialNumberAttribute: "SERIALNUMBER",
}

// RDNAttribute is one AttributeTypeAndValue inside a Name's RDNSequence.
type RDNAttribute struct {
	OID   string
	Value string
}

// Name is a parsed X.501 Name (RDNSequence), kept as an ordered list of
// attributes rather than a struct with fixed CN/O/OU fields, since a DN
// may carry attributes this package doesn't special-case.
type Name struct {
	Attributes []RDNAttribute
	Raw        []byte
}

// String renders the name as "C=AU, O=..., CN=..." in encounter order.
// RFC 1779-style: a value containing any of ,+=\n<>#;\ is double-quoted
// to keep it from being misread as a separator or RDN delimiter.
func (n Name) String() string {
	parts := make([]string, 0, len(n.Attributes))
	for _, a := range n.Attributes {
		label := dnShortNames[a.OID]
		if label == "" {
			label = a.OID
		}
		parts = append(parts, label+"="+quoteDNValue(a.Value))
	}
	return strings.Join(parts, ", ")
}

func quoteDNValue(v string) string {
	if strings.ContainsAny(v, ",+=\n<>#;\\") {
		return `"` + v + `"`
	}
	return v
}

// Extension is a parsed X.509v3 extension.
type Extension struct {
	OID      string
	Critical bool
	Value    []byte
}

// FindExtension returns the first extension matching oid.
func FindExtension(exts []Extension, oid string) (Extension, bool) {
	for _, e := range exts {
		if e.OID == oid {
			return e, true
		}
	}
	return Extension{}, false
}

// SubjectPublicKeyInfo is the parsed SPKI structure.
type SubjectPublicKeyInfo struct {
	AlgorithmOID string
	// Parameters holds the raw DER of the AlgorithmIdentifier's
	// parameters field, e.g. the named-curve OID for ecPublicKey.
	Parameters []byte
	// PublicKey is the BIT STRING content with the unused-bits byte
	// already stripped.
	PublicKey []byte
}

// Certificate is a typed view of an X.509 Certificate.
type Certificate struct {
	Raw       []byte
	TBSRaw    []byte // exact bytes of the tbsCertificate SEQUENCE, header included
	Version   int    // 0-based, per RFC 5280 (v1=0, v2=1, v3=2)
	Serial    []byte
	SigAlgOID string // signature algorithm named in the outer Certificate SEQUENCE
	SigValue  []byte // raw signature bytes, unused-bits byte stripped

	IssuerAlg  string // signature algorithm named inside tbsCertificate (RFC 5280 requires it match SigAlgOID)
	Issuer     Name
	NotBefore  time.Time
	NotAfter   time.Time
	Subject    Name
	SPKI       SubjectPublicKeyInfo
	Extensions []Extension
}

// SubjectKeyID returns the Subject Key Identifier extension value, if present.
func (c *Certificate) SubjectKeyID() ([]byte, bool) {
	ext, ok := FindExtension(c.Extensions, OIDSubjectKeyIdentifier)
	if !ok {
		return nil, false
	}
	a, root, rest, err := asn1der.Parse(ext.Value)
	if err != nil || len(rest) != 0 {
		return nil, false
	}
	n := a.Node(root)
	if n.Tag != asn1der.TagOctetString {
		return nil, false
	}
	return n.Body, true
}

// AuthorityKeyID returns the keyIdentifier field of the Authority Key
// Identifier extension, if present.
func (c *Certificate) AuthorityKeyID() ([]byte, bool) {
	ext, ok := FindExtension(c.Extensions, OIDAuthorityKeyIdentifier)
	if !ok {
		return nil, false
	}
	return extractAKIKeyID(ext.Value)
}

// extractAKIKeyID parses AuthorityKeyIdentifier ::= SEQUENCE {
//   keyIdentifier [0] IMPLICIT OCTET STRING OPTIONAL, ... }
// and returns the [0] context-specific field's raw bytes.
func extractAKIKeyID(der []byte) ([]byte, bool) {
	a, root, rest, err := asn1der.Parse(der)
	if err != nil || len(rest) != 0 {
		return nil, false
	}
	n := a.Node(root)
	for _, ci := range n.Children {
		child := a.Node(ci)
		if child.Class == asn1der.ClassContext && child.Tag == 0 {
			return child.Body, true
		}
	}
	return nil, false
}

// ParseCertificate parses a DER-encoded X.509 Certificate.
func ParseCertificate(der []byte) (*Certificate, error) {
	a, root, rest, err := asn1der.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("x509view: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("x509view: %d trailing bytes after Certificate", len(rest))
	}
	rootNode := a.Node(root)
	if rootNode.Tag != asn1der.TagSequence || !rootNode.Constructed {
		return nil, fmt.Errorf("x509view: Certificate is not a SEQUENCE")
	}
	if len(rootNode.Children) != 3 {
		return nil, fmt.Errorf("x509view: Certificate SEQUENCE has %d elements, want 3", len(rootNode.Children))
	}

	tbsIdx, sigAlgIdx, sigValIdx := rootNode.Children[0], rootNode.Children[1], rootNode.Children[2]

	sigAlgOID, err := algorithmOID(a, sigAlgIdx)
	if err != nil {
		return nil, fmt.Errorf("x509view: signatureAlgorithm: %w", err)
	}

	sigBS, ok := a.Node(sigValIdx).Value.(asn1der.BitString)
	if !ok {
		return nil, fmt.Errorf("x509view: signatureValue is not a BIT STRING")
	}

	cert := &Certificate{
		Raw:       rootNode.Raw,
		TBSRaw:    a.Node(tbsIdx).Raw,
		SigAlgOID: sigAlgOID,
		SigValue:  sigBS.Bytes,
	}

	if err := parseTBSCertificate(a, tbsIdx, cert); err != nil {
		return nil, fmt.Errorf("x509view: tbsCertificate: %w", err)
	}

	return cert, nil
}

// cursor walks a constructed node's children in order, letting callers
// peek at the next child's tag before deciding whether to consume it.
// This is how OPTIONAL fields are handled without hardcoding indices.
type cursor struct {
	arena    *asn1der.Arena
	children []int
	pos      int
}

func newCursor(a *asn1der.Arena, parent int) cursor {
	return cursor{arena: a, children: a.Node(parent).Children}
}

func (c *cursor) peek() *asn1der.Node {
	if c.pos >= len(c.children) {
		return nil
	}
	return c.arena.Node(c.children[c.pos])
}

func (c *cursor) peekIdx() int {
	if c.pos >= len(c.children) {
		return -1
	}
	return c.children[c.pos]
}

func (c *cursor) take() *asn1der.Node {
	n := c.peek()
	if n != nil {
		c.pos++
	}
	return n
}

func (c *cursor) takeIdx() int {
	idx := c.peekIdx()
	if idx >= 0 {
		c.pos++
	}
	return idx
}

func parseTBSCertificate(a *asn1der.Arena, tbsIdx int, cert *Certificate) error {
	cu := newCursor(a, tbsIdx)

	// version [0] EXPLICIT Version DEFAULT v1
	cert.Version = 0
	if n := cu.peek(); n != nil && n.Class == asn1der.ClassContext && n.Tag == 0 {
		cu.take()
		if len(n.Children) != 1 {
			return fmt.Errorf("version: expected 1 explicit child, got %d", len(n.Children))
		}
		verNode := a.Node(n.Children[0])
		b, ok := verNode.Value.([]byte)
		if !ok || len(b) == 0 {
			return fmt.Errorf("version: not an INTEGER")
		}
		cert.Version = int(b[len(b)-1])
	}

	// serialNumber CertificateSerialNumber (INTEGER)
	serialNode := cu.take()
	if serialNode == nil || serialNode.Tag != asn1der.TagInteger {
		return fmt.Errorf("serialNumber: expected INTEGER")
	}
	cert.Serial, _ = serialNode.Value.([]byte)

	// signature AlgorithmIdentifier
	sigIdx := cu.takeIdx()
	if sigIdx < 0 {
		return fmt.Errorf("signature: missing")
	}
	algOID, err := algorithmOID(a, sigIdx)
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	cert.IssuerAlg = algOID

	// issuer Name
	issuerIdx := cu.takeIdx()
	if issuerIdx < 0 {
		return fmt.Errorf("issuer: missing")
	}
	cert.Issuer, err = parseName(a, issuerIdx)
	if err != nil {
		return fmt.Errorf("issuer: %w", err)
	}

	// validity Validity ::= SEQUENCE { notBefore, notAfter }
	validityIdx := cu.takeIdx()
	if validityIdx < 0 {
		return fmt.Errorf("validity: missing")
	}
	validity := a.Node(validityIdx)
	if len(validity.Children) != 2 {
		return fmt.Errorf("validity: expected 2 elements, got %d", len(validity.Children))
	}
	nb, ok := a.Node(validity.Children[0]).Value.(time.Time)
	if !ok {
		return fmt.Errorf("notBefore: not a recognized time")
	}
	na, ok := a.Node(validity.Children[1]).Value.(time.Time)
	if !ok {
		return fmt.Errorf("notAfter: not a recognized time")
	}
	cert.NotBefore, cert.NotAfter = nb, na

	// subject Name
	subjectIdx := cu.takeIdx()
	if subjectIdx < 0 {
		return fmt.Errorf("subject: missing")
	}
	cert.Subject, err = parseName(a, subjectIdx)
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}

	// subjectPublicKeyInfo SubjectPublicKeyInfo
	spkiIdx := cu.takeIdx()
	if spkiIdx < 0 {
		return fmt.Errorf("subjectPublicKeyInfo: missing")
	}
	cert.SPKI, err = parseSPKI(a, spkiIdx)
	if err != nil {
		return fmt.Errorf("subjectPublicKeyInfo: %w", err)
	}

	// issuerUniqueID [1], subjectUniqueID [2]: skip, not used by this pipeline.
	for {
		n := cu.peek()
		if n == nil || n.Class != asn1der.ClassContext || (n.Tag != 1 && n.Tag != 2) {
			break
		}
		cu.take()
	}

	// extensions [3] EXPLICIT Extensions OPTIONAL
	if n := cu.peek(); n != nil && n.Class == asn1der.ClassContext && n.Tag == 3 {
		cu.take()
		if len(n.Children) != 1 {
			return fmt.Errorf("extensions: expected 1 explicit child, got %d", len(n.Children))
		}
		cert.Extensions, err = parseExtensions(a, n.Children[0])
		if err != nil {
			return fmt.Errorf("extensions: %w", err)
		}
	}

	return nil
}

func parseExtensions(a *asn1der.Arena, seqIdx int) ([]Extension, error) {
	seq := a.Node(seqIdx)
	out := make([]Extension, 0, len(seq.Children))
	for _, ci := range seq.Children {
		extSeq := a.Node(ci)
		ecu := newCursor(a, ci)
		oidNode := ecu.take()
		if oidNode == nil || oidNode.Tag != asn1der.TagOID {
			return nil, fmt.Errorf("extension: expected OID")
		}
		oid, _ := oidNode.Value.(string)

		critical := false
		if n := ecu.peek(); n != nil && n.Tag == asn1der.TagBoolean {
			ecu.take()
			critical, _ = n.Value.(bool)
		}

		valNode := ecu.take()
		if valNode == nil || valNode.Tag != asn1der.TagOctetString {
			return nil, fmt.Errorf("extension %s: expected OCTET STRING value", oid)
		}
		out = append(out, Extension{OID: oid, Critical: critical, Value: valNode.Body})
		_ = extSeq
	}
	return out, nil
}

func parseName(a *asn1der.Arena, idx int) (Name, error) {
	n := a.Node(idx)
	if n.Tag != asn1der.TagSequence || !n.Constructed {
		return Name{}, fmt.Errorf("Name is not a SEQUENCE")
	}
	var attrs []RDNAttribute
	for _, rdnIdx := range n.Children {
		rdn := a.Node(rdnIdx)
		if rdn.Tag != asn1der.TagSet {
			return Name{}, fmt.Errorf("RDN is not a SET")
		}
		for _, atvIdx := range rdn.Children {
			atv := a.Node(atvIdx)
			if len(atv.Children) != 2 {
				return Name{}, fmt.Errorf("AttributeTypeAndValue: expected 2 elements, got %d", len(atv.Children))
			}
			oidNode := a.Node(atv.Children[0])
			oid, _ := oidNode.Value.(string)
			valNode := a.Node(atv.Children[1])
			val := stringValue(valNode)
			attrs = append(attrs, RDNAttribute{OID: oid, Value: val})
		}
	}
	return Name{Attributes: attrs, Raw: n.Raw}, nil
}

func stringValue(n *asn1der.Node) string {
	if s, ok := n.Value.(string); ok {
		return s
	}
	return string(n.Body)
}

func algorithmOID(a *asn1der.Arena, idx int) (string, error) {
	n := a.Node(idx)
	if n.Tag != asn1der.TagSequence || len(n.Children) == 0 {
		return "", fmt.Errorf("AlgorithmIdentifier is not a SEQUENCE")
	}
	oidNode := a.Node(n.Children[0])
	oid, ok := oidNode.Value.(string)
	if !ok {
		return "", fmt.Errorf("AlgorithmIdentifier.algorithm is not an OID")
	}
	return oid, nil
}

func parseSPKI(a *asn1der.Arena, idx int) (SubjectPublicKeyInfo, error) {
	n := a.Node(idx)
	if len(n.Children) != 2 {
		return SubjectPublicKeyInfo{}, fmt.Errorf("expected 2 elements, got %d", len(n.Children))
	}
	algIdx, keyIdx := n.Children[0], n.Children[1]
	algNode := a.Node(algIdx)
	if len(algNode.Children) == 0 {
		return SubjectPublicKeyInfo{}, fmt.Errorf("algorithm: missing")
	}
	oid, ok := a.Node(algNode.Children[0]).Value.(string)
	if !ok {
		return SubjectPublicKeyInfo{}, fmt.Errorf("algorithm: not an OID")
	}
	var params []byte
	if len(algNode.Children) > 1 {
		params = a.Node(algNode.Children[1]).Raw
	}
	keyBS, ok := a.Node(keyIdx).Value.(asn1der.BitString)
	if !ok {
		return SubjectPublicKeyInfo{}, fmt.Errorf("subjectPublicKey: not a BIT STRING")
	}
	return SubjectPublicKeyInfo{AlgorithmOID: oid, Parameters: params, PublicKey: keyBS.Bytes}, nil
}

// RevokedCertificate is one entry of a CRL's revokedCertificates list.
type RevokedCertificate struct {
	Serial         []byte
	RevocationDate time.Time
}

// CertificateList is a typed view of a DER-encoded CRL.
type CertificateList struct {
	Raw       []byte
	TBSRaw    []byte
	SigAlgOID string
	SigValue  []byte

	Issuer     Name
	ThisUpdate time.Time
	NextUpdate time.Time
	Revoked    []RevokedCertificate
	Extensions []Extension
}

// AuthorityKeyID returns the keyIdentifier field of the CRL's Authority
// Key Identifier extension, if present.
func (cl *CertificateList) AuthorityKeyID() ([]byte, bool) {
	ext, ok := FindExtension(cl.Extensions, OIDAuthorityKeyIdentifier)
	if !ok {
		return nil, false
	}
	return extractAKIKeyID(ext.Value)
}

// IsRevoked reports whether serial appears in the revoked list.
func (cl *CertificateList) IsRevoked(serial []byte) bool {
	for _, r := range cl.Revoked {
		if byteEqual(r.Serial, serial) {
			return true
		}
	}
	return false
}

func byteEqual(a, b []byte) bool {
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

// ParseCRL parses a DER-encoded CertificateList.
func ParseCRL(der []byte) (*CertificateList, error) {
	a, root, rest, err := asn1der.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("x509view: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("x509view: %d trailing bytes after CertificateList", len(rest))
	}
	rootNode := a.Node(root)
	if rootNode.Tag != asn1der.TagSequence || len(rootNode.Children) != 3 {
		return nil, fmt.Errorf("x509view: CertificateList: expected 3-element SEQUENCE")
	}
	tbsIdx, sigAlgIdx, sigValIdx := rootNode.Children[0], rootNode.Children[1], rootNode.Children[2]

	sigAlgOID, err := algorithmOID(a, sigAlgIdx)
	if err != nil {
		return nil, fmt.Errorf("x509view: signatureAlgorithm: %w", err)
	}
	sigBS, ok := a.Node(sigValIdx).Value.(asn1der.BitString)
	if !ok {
		return nil, fmt.Errorf("x509view: signatureValue is not a BIT STRING")
	}

	cl := &CertificateList{
		Raw:       rootNode.Raw,
		TBSRaw:    a.Node(tbsIdx).Raw,
		SigAlgOID: sigAlgOID,
		SigValue:  sigBS.Bytes,
	}
	if err := parseTBSCertList(a, tbsIdx, cl); err != nil {
		return nil, fmt.Errorf("x509view: tbsCertList: %w", err)
	}
	return cl, nil
}

// parseTBSCertList walks TBSCertList ::= SEQUENCE {
//   version Version OPTIONAL, signature AlgorithmIdentifier, issuer Name,
//   thisUpdate Time, nextUpdate Time OPTIONAL,
//   revokedCertificates SEQUENCE OF SEQUENCE {...} OPTIONAL,
//   crlExtensions [0] EXPLICIT Extensions OPTIONAL }
// by type, since version/nextUpdate/revokedCertificates are all optional
// and any subset of them may be absent from a given CRL.
func parseTBSCertList(a *asn1der.Arena, tbsIdx int, cl *CertificateList) error {
	cu := newCursor(a, tbsIdx)

	if n := cu.peek(); n != nil && n.Tag == asn1der.TagInteger && n.Class == asn1der.ClassUniversal {
		// version is present only when != v1; distinguish it from the
		// following AlgorithmIdentifier (a SEQUENCE) rather than assuming
		// a fixed slot.
		cu.take()
	}

	sigIdx := cu.takeIdx()
	if sigIdx < 0 {
		return fmt.Errorf("signature: missing")
	}
	if _, err := algorithmOID(a, sigIdx); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	issuerIdx := cu.takeIdx()
	if issuerIdx < 0 {
		return fmt.Errorf("issuer: missing")
	}
	var err error
	cl.Issuer, err = parseName(a, issuerIdx)
	if err != nil {
		return fmt.Errorf("issuer: %w", err)
	}

	thisUpdateNode := cu.take()
	if thisUpdateNode == nil {
		return fmt.Errorf("thisUpdate: missing")
	}
	tu, ok := thisUpdateNode.Value.(time.Time)
	if !ok {
		return fmt.Errorf("thisUpdate: not a recognized time")
	}
	cl.ThisUpdate = tu

	if n := cu.peek(); n != nil && (n.Tag == asn1der.TagUTCTime || n.Tag == asn1der.TagGeneralizedTime) {
		cu.take()
		cl.NextUpdate, _ = n.Value.(time.Time)
	}

	if n := cu.peek(); n != nil && n.Tag == asn1der.TagSequence && n.Class == asn1der.ClassUniversal {
		cu.take()
		for _, entryIdx := range n.Children {
			entry := a.Node(entryIdx)
			if len(entry.Children) < 2 {
				return fmt.Errorf("revokedCertificate: expected at least 2 elements")
			}
			serial, ok := a.Node(entry.Children[0]).Value.([]byte)
			if !ok {
				return fmt.Errorf("revokedCertificate.userCertificate: not an INTEGER")
			}
			revDate, ok := a.Node(entry.Children[1]).Value.(time.Time)
			if !ok {
				return fmt.Errorf("revokedCertificate.revocationDate: not a recognized time")
			}
			cl.Revoked = append(cl.Revoked, RevokedCertificate{Serial: serial, RevocationDate: revDate})
		}
	}

	if n := cu.peek(); n != nil && n.Class == asn1der.ClassContext && n.Tag == 0 {
		cu.take()
		if len(n.Children) != 1 {
			return fmt.Errorf("crlExtensions: expected 1 explicit child, got %d", len(n.Children))
		}
		cl.Extensions, err = parseExtensions(a, n.Children[0])
		if err != nil {
			return fmt.Errorf("crlExtensions: %w", err)
		}
	}

	return nil
}
