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

package cmd

import (
	"fmt"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/format"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/output"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/vdsmodel"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/x509view"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [input]",
	Short: "Decode an ICAO VDS-NC digital seal without verifying it",
	Long:  "Parses a VDS-NC envelope and prints its header, message, and embedded BSC certificate, without checking the signature or trust chain. Input can be a file path, URL, raw JSON string, or piped via stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	input := ""
	if len(args) > 0 {
		input = args[0]
	}

	raw, err := format.ReadInput(input)
	if err != nil {
		return err
	}

	opts := output.Options{
		JSON:    jsonOutput,
		NoColor: noColor,
		Verbose: verbose,
	}

	vds, err := vdsmodel.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("decoding VDS: %w", err)
	}

	out := output.DecodedVDS{
		IssuingCountry: vds.Header.IssuingCountry,
		MessageType:    vds.Header.Type,
		Version:        vds.Header.Version,
		SigAlg:         vds.Signature.Alg,
	}

	if bscDER, err := vds.DecodeSigCer(); err == nil {
		if cert, err := x509view.ParseCertificate(bscDER); err == nil {
			out.BSCSubject = cert.Subject.String()
			out.BSCIssuer = cert.Issuer.String()
		}
	}

	return output.PrintDecodedVDS(cmd.OutOrStdout(), out, opts)
}
