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
	"context"
	"fmt"
	"time"

	"github.com/australian-passport-office/vds-nc-verify-go/internal/certutil"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/output"
	"github.com/australian-passport-office/vds-nc-verify-go/internal/trust"
	"github.com/spf13/cobra"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Inspect and refresh the CSCA trust store",
	Long:  "Subcommands for loading a directory of CSCA certificates and inspecting or refreshing the CRL state each one carries.",
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the CSCA certificates in a trust directory",
	Args:  cobra.NoArgs,
	RunE:  runTrustList,
}

var trustStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show integrity and CRL-freshness status for each CSCA",
	Args:  cobra.NoArgs,
	RunE:  runTrustStatus,
}

var trustRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download fresh CRLs for every URL-backed CSCA",
	Args:  cobra.NoArgs,
	RunE:  runTrustRefresh,
}

func init() {
	for _, c := range []*cobra.Command{trustListCmd, trustStatusCmd, trustRefreshCmd} {
		c.Flags().StringVar(&trustDir, "trust-dir", "", "Directory of CSCA certificates (required)")
		_ = c.MarkFlagRequired("trust-dir")
	}
	trustCmd.AddCommand(trustListCmd, trustStatusCmd, trustRefreshCmd)
	rootCmd.AddCommand(trustCmd)
}

func loadTrustStore() (*trust.Store, error) {
	cscas, err := certutil.LoadCSCADir(trustDir)
	if err != nil {
		return nil, fmt.Errorf("loading trust store: %w", err)
	}
	store := trust.NewStore(nil)
	for _, csca := range cscas {
		if err := store.Add(csca); err != nil {
			return nil, fmt.Errorf("adding CSCA to trust store: %w", err)
		}
	}
	return store, nil
}

func runTrustList(cmd *cobra.Command, args []string) error {
	store, err := loadTrustStore()
	if err != nil {
		return err
	}
	opts := output.Options{JSON: jsonOutput, NoColor: noColor, Verbose: verbose}
	entries := trustEntries(store)
	if opts.JSON {
		return output.PrintJSON(cmd.OutOrStdout(), entries)
	}
	for _, e := range entries {
		fmt.Fprintln(cmd.OutOrStdout(), e.Subject)
	}
	return nil
}

func runTrustStatus(cmd *cobra.Command, args []string) error {
	store, err := loadTrustStore()
	if err != nil {
		return err
	}
	opts := output.Options{JSON: jsonOutput, NoColor: noColor, Verbose: verbose}
	return output.PrintTrustStatus(cmd.OutOrStdout(), trustEntries(store), opts)
}

func runTrustRefresh(cmd *cobra.Command, args []string) error {
	store, err := loadTrustStore()
	if err != nil {
		return err
	}
	opts := output.Options{JSON: jsonOutput, NoColor: noColor, Verbose: verbose}

	done := make(chan map[string]error, 1)
	store.RefreshNow(context.Background(), func(results map[string]error) {
		done <- results
	})
	results := <-done

	if opts.JSON {
		out := make(map[string]string, len(results))
		for url, err := range results {
			if err != nil {
				out[url] = err.Error()
			} else {
				out[url] = "ok"
			}
		}
		return output.PrintJSON(cmd.OutOrStdout(), out)
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no URL-backed CRLs to refresh")
		return nil
	}
	for url, err := range results {
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED: %v\n", url, err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", url)
		}
	}
	return nil
}

func trustEntries(store *trust.Store) []output.TrustEntry {
	members := store.Members()
	entries := make([]output.TrustEntry, 0, len(members))
	for _, m := range members {
		e := output.TrustEntry{
			Subject:     m.Parsed.Subject.String(),
			SHA256:      m.SHA256,
			IntegrityOK: m.VerifyIntegrity(),
			HasCRLURL:   m.CRL.URL() != "",
			Overdue:     m.CRL.IsOverdue(time.Now(), trust.DefaultOverdueAfter),
		}
		if !m.CRL.LastDownloaded().IsZero() {
			e.LastDownloaded = m.CRL.LastDownloaded().Format("2006-01-02T15:04:05Z07:00")
		}
		entries = append(entries, e)
	}
	return entries
}
