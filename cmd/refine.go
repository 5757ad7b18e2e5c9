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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/orchestrator"
	"github.com/valpere/listingfix/internal/store"
)

var (
	refineInputFile   string
	refineBrand       string
	refineProductType string
	refineAttributes  []string
	refineDescription string
	refineBullets     []string
	refineVerbose     bool
)

// refineOutput is what refine prints: the output record plus the run summary.
type refineOutput struct {
	internal.ProductOutput
	ID       string                 `json:"id,omitempty"`
	State    string                 `json:"state"`
	Cached   bool                   `json:"cached,omitempty"`
	Attempts []orchestrator.Attempt `json:"attempts,omitempty"`
}

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine a single product record",
	Long: `Generate compliant listing content for one product.

The record is read from a JSON file (-i, "-" for stdin) or built from flags.
The refined record is printed as JSON together with any violations that
could not be cleared.

Example:
  listingfix refine --brand TechBrand --product-type headphones \
    --attr Color=Black --attr Connectivity=Bluetooth
  listingfix refine -i record.json --provider openai --models gpt-4o-mini`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}

		in, err := readRefineInput()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		orch, catalog, err := buildOrchestrator(ctx, db)
		if err != nil {
			return err
		}

		var key string
		if db != nil {
			key = store.InputKey(in, store.CatalogFingerprint(catalog))
			out, found, cacheErr := db.GetCachedRefinement(ctx, key)
			if cacheErr != nil {
				logger.Warn("cache lookup failed", zap.Error(cacheErr))
			} else if found {
				return printJSON(cmd.OutOrStdout(), refineOutput{ProductOutput: *out, State: string(orchestrator.StateCompliant), Cached: true})
			}
		}

		r := orch.Refine(ctx, in)
		if db != nil {
			if err := db.SaveRefinement(ctx, key, in, r); err != nil {
				logger.Warn("failed to store refinement", zap.String("refinement", r.ID), zap.Error(err))
			}
		}

		res := refineOutput{ProductOutput: r.Output(), ID: r.ID, State: string(r.State)}
		if refineVerbose {
			res.Attempts = r.Attempts
		}
		if !r.Compliant() {
			fmt.Fprintf(os.Stderr, "Record is %s with %d unresolved violations\n", r.State, len(r.Violations))
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func readRefineInput() (internal.ProductInput, error) {
	var in internal.ProductInput

	if refineInputFile != "" {
		var (
			data []byte
			err  error
		)
		if refineInputFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(refineInputFile)
		}
		if err != nil {
			return in, fmt.Errorf("failed to read input record: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return in, fmt.Errorf("failed to parse input record: %w", err)
		}
	}

	if refineBrand != "" {
		in.Brand = refineBrand
	}
	if refineProductType != "" {
		in.ProductType = refineProductType
	}
	if len(refineAttributes) > 0 {
		if in.Attributes == nil {
			in.Attributes = make(map[string]string, len(refineAttributes))
		}
		for _, a := range refineAttributes {
			name, value, ok := strings.Cut(a, "=")
			if !ok {
				return in, fmt.Errorf("attribute %q must be name=value", a)
			}
			in.Attributes[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}
	if refineDescription != "" {
		in.CurrentDescription = refineDescription
	}
	if len(refineBullets) > 0 {
		in.CurrentBullets = refineBullets
	}

	if in.Brand == "" && in.ProductType == "" && len(in.Attributes) == 0 {
		return in, fmt.Errorf("no input record: use -i or --brand/--product-type/--attr")
	}
	return in, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(refineCmd)

	refineCmd.Flags().StringVarP(&refineInputFile, "input", "i", "", `Input record as JSON ("-" for stdin)`)
	refineCmd.Flags().StringVar(&refineBrand, "brand", "", "Brand name")
	refineCmd.Flags().StringVar(&refineProductType, "product-type", "", "Product type")
	refineCmd.Flags().StringArrayVar(&refineAttributes, "attr", nil, "Attribute as name=value (repeatable)")
	refineCmd.Flags().StringVar(&refineDescription, "description", "", "Current description")
	refineCmd.Flags().StringArrayVar(&refineBullets, "bullet", nil, "Current bullet (repeatable)")
	refineCmd.Flags().BoolVar(&refineVerbose, "attempts", false, "Include every attempt in the output")

	addGeneratorFlags(refineCmd)
	addStoreFlags(refineCmd)
}
