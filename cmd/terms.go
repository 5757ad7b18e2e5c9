/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage custom banned terms",
	Long: `Add, list, and delete banned terms stored in the database.

Stored terms are merged into the configured rule catalog on every run, so a
marketplace policy change does not need a config edit. Synonyms are what the
repair step substitutes for the term.`,
}

var termsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom banned terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListBannedTerms(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list banned terms: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No custom banned terms.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TERM\tSYNONYMS\tADDED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Term, strings.Join(e.Synonyms, ", "), e.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var termsAddCmd = &cobra.Command{
	Use:   "add <term> [synonym...]",
	Short: "Add or update a banned term",
	Long: `Ban a term and register the synonyms a repair may substitute for it.

Example:
  listingfix terms add luxury refined elegant`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.AddBannedTerm(cmd.Context(), args[0], args[1:]); err != nil {
			return fmt.Errorf("failed to add banned term: %w", err)
		}
		if len(args) == 1 {
			fmt.Printf("Added: %q (no synonyms, matches cannot be repaired)\n", args[0])
		} else {
			fmt.Printf("Added: %q → %s\n", args[0], strings.Join(args[1:], ", "))
		}
		return nil
	},
}

var termsDeleteCmd = &cobra.Command{
	Use:   "delete <term>",
	Short: "Delete a custom banned term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteBannedTerm(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete banned term: %w", err)
		}
		fmt.Printf("Deleted banned term: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(termsCmd)

	termsCmd.PersistentFlags().StringVar(&cacheDBPath, "db", "", "Database path (default from config)")

	termsCmd.AddCommand(termsListCmd)
	termsCmd.AddCommand(termsAddCmd)
	termsCmd.AddCommand(termsDeleteCmd)
}
