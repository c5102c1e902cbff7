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

// Package output renders CLI results either as JSON (for scripting) or
// as colored terminal text (for a human), selected by the --json
// persistent flag.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Options controls how a result is rendered.
type Options struct {
	JSON    bool
	NoColor bool
	Verbose bool
}

// PrintJSON marshals v as indented JSON to w.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// VerifyResult is the structured outcome of `vds-nc verify`.
type VerifyResult struct {
	Valid          bool   `json:"valid"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ErrorDetail    string `json:"error_detail,omitempty"`
	IssuingCountry string `json:"issuing_country,omitempty"`
	MessageType    string `json:"message_type,omitempty"`
}

// PrintVerifyResult renders a VerifyResult per opts.
func PrintVerifyResult(w io.Writer, res VerifyResult, opts Options) error {
	if opts.JSON {
		return PrintJSON(w, res)
	}
	if opts.NoColor {
		color.NoColor = true
	}
	if res.Valid {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "VALID")
		fmt.Fprintf(w, "  issuing country: %s\n", res.IssuingCountry)
		fmt.Fprintf(w, "  message type:    %s\n", res.MessageType)
		return nil
	}
	color.New(color.FgRed, color.Bold).Fprintln(w, "INVALID")
	fmt.Fprintf(w, "  reason: %s\n", res.ErrorKind)
	if opts.Verbose && res.ErrorDetail != "" {
		fmt.Fprintf(w, "  detail: %s\n", res.ErrorDetail)
	}
	return nil
}

// DecodedVDS is the structured output of `vds-nc decode`.
type DecodedVDS struct {
	IssuingCountry string `json:"issuing_country"`
	MessageType    string `json:"message_type"`
	Version        int    `json:"version"`
	SigAlg         string `json:"sig_alg"`
	BSCSubject     string `json:"bsc_subject,omitempty"`
	BSCIssuer      string `json:"bsc_issuer,omitempty"`
}

// PrintDecodedVDS renders a DecodedVDS per opts.
func PrintDecodedVDS(w io.Writer, d DecodedVDS, opts Options) error {
	if opts.JSON {
		return PrintJSON(w, d)
	}
	if opts.NoColor {
		color.NoColor = true
	}
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(w, "%s %s (v%d)\n", label("type:"), d.MessageType, d.Version)
	fmt.Fprintf(w, "%s %s\n", label("issuing country:"), d.IssuingCountry)
	fmt.Fprintf(w, "%s %s\n", label("signature alg:"), d.SigAlg)
	if d.BSCSubject != "" {
		fmt.Fprintf(w, "%s %s\n", label("bsc subject:"), d.BSCSubject)
	}
	if d.BSCIssuer != "" {
		fmt.Fprintf(w, "%s %s\n", label("bsc issuer:"), d.BSCIssuer)
	}
	return nil
}

// TrustEntry is one CSCA's status, used by `vds-nc trust status`.
type TrustEntry struct {
	Subject        string `json:"subject"`
	SHA256         string `json:"sha256"`
	IntegrityOK    bool   `json:"integrity_ok"`
	HasCRLURL      bool   `json:"has_crl_url"`
	Overdue        bool   `json:"overdue"`
	LastDownloaded string `json:"last_downloaded,omitempty"`
}

// PrintTrustStatus renders a batch of TrustEntry per opts.
func PrintTrustStatus(w io.Writer, entries []TrustEntry, opts Options) error {
	if opts.JSON {
		return PrintJSON(w, entries)
	}
	if opts.NoColor {
		color.NoColor = true
	}
	for _, e := range entries {
		status := color.New(color.FgGreen).Sprint("ok")
		if !e.IntegrityOK {
			status = color.New(color.FgRed).Sprint("HASH MISMATCH")
		} else if e.Overdue {
			status = color.New(color.FgYellow).Sprint("overdue")
		}
		fmt.Fprintf(w, "%s [%s]\n", e.Subject, status)
		if opts.Verbose {
			fmt.Fprintf(w, "  sha256: %s\n", e.SHA256)
			if e.HasCRLURL {
				fmt.Fprintf(w, "  last downloaded: %s\n", nonEmpty(e.LastDownloaded, "never"))
			} else {
				fmt.Fprintln(w, "  crl: static")
			}
		}
	}
	return nil
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
