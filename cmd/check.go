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
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/validator"
)

var (
	checkInputFile string
	checkQuiet     bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Re-validate the refined columns of an output CSV",
	Long: `Validate every row of a CSV written by "listingfix csv" against the
current rule catalog and report the violations found.

The command exits with an error when any row is not compliant, so it can gate
an import pipeline.

Example:
  listingfix check -i refined.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}

		f, err := os.Open(checkInputFile)
		if err != nil {
			return fmt.Errorf("failed to open CSV: %w", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(records) < 2 {
			return fmt.Errorf("CSV file has no data rows")
		}
		header, rows := records[0], records[1:]

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		catalog, err := loadCatalog(cmd.Context(), db)
		if err != nil {
			return err
		}
		v, err := validator.New(catalog)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if !checkQuiet {
			fmt.Fprintln(w, "ROW\tFIELD\tKIND\tDETAIL")
		}

		compliant := 0
		byKind := make(map[content.Kind]int)
		for i, row := range rows {
			out, ok := internal.ProductOutputFromRecord(header, row)
			if !ok {
				return fmt.Errorf("CSV has no %s column; run it through \"listingfix csv\" first", internal.OutputColumns[0])
			}
			in := internal.ProductInputFromRecord(header, row)

			vs := v.Validate(content.FromOutput(out), content.NewContext(in))
			if len(vs) == 0 {
				compliant++
				continue
			}
			for kind, n := range content.CountByKind(vs) {
				byKind[kind] += n
			}
			if checkQuiet {
				continue
			}
			for _, viol := range vs {
				d := viol.Descriptor()
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, d.Field, d.Kind, d.Detail)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nCompliant rows: %d of %d (%.1f%%)\n",
			compliant, len(rows), 100*float64(compliant)/float64(len(rows)))

		kinds := make([]string, 0, len(byKind))
		for k := range byKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-22s %d\n", k, byKind[content.Kind(k)])
		}

		if compliant < len(rows) {
			return fmt.Errorf("%d rows are not compliant", len(rows)-compliant)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkInputFile, "input", "i", "", "Refined CSV file (required)")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Only print the summary")
	addStoreFlags(checkCmd)

	checkCmd.MarkFlagRequired("input")
}
