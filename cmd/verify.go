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

	"github.com/australian-passport-office/vds-nc-verify-go/internal/certutil"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/format"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/output"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/trust"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/vdsmodel"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/verify"
	"github.com/spf13/cobra"
)

var trustDir string

var verifyCmd = &cobra.Command{
	Use:   "verify [input]",
	Short: "Verify an ICAO VDS-NC digital seal against a CSCA trust store",
	Long: `Decodes a VDS-NC envelope and runs the full seven-step verification pipeline:
CSCA candidate selection, CSCA self-integrity, CRL signature, BSC revocation,
AKI/SKI linkage, BSC signature, and finally the VDS signature itself.

Input can be a file path, URL, raw JSON string, or piped via stdin.
--trust-dir must point at a directory of CSCA certificates (.pem/.der),
optionally paired with sibling .crl files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&trustDir, "trust-dir", "", "Directory of CSCA certificates to verify against (required)")
	_ = verifyCmd.MarkFlagRequired("trust-dir")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	cscas, err := certutil.LoadCSCADir(trustDir)
	if err != nil {
		return fmt.Errorf("loading trust store: %w", err)
	}
	store := trust.NewStore(nil)
	for _, csca := range cscas {
		if err := store.Add(csca); err != nil {
			return fmt.Errorf("adding CSCA to trust store: %w", err)
		}
	}

	vds, err := vdsmodel.Decode([]byte(raw))
	if err != nil {
		res := output.VerifyResult{Valid: false, ErrorKind: "JsonDecodingError", ErrorDetail: err.Error()}
		_ = output.PrintVerifyResult(cmd.OutOrStdout(), res, opts)
		return fmt.Errorf("decoding VDS: %w", err)
	}

	verr := verify.Verify(vds, store)
	res := output.VerifyResult{
		Valid:          verr == nil,
		IssuingCountry: vds.Header.IssuingCountry,
		MessageType:    vds.Header.Type,
	}
	if verr != nil {
		if ve, ok := verr.(*verify.Error); ok {
			res.ErrorKind = string(ve.Kind)
		} else {
			res.ErrorKind = "VerificationFailed"
		}
		res.ErrorDetail = verr.Error()
	}
	if err := output.PrintVerifyResult(cmd.OutOrStdout(), res, opts); err != nil {
		return err
	}
	if verr != nil {
		return fmt.Errorf("verification failed: %s", res.ErrorKind)
	}
	return nil
}
