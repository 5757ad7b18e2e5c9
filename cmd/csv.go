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
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/orchestrator"
	"github.com/valpere/listingfix/internal/store"
)

var (
	csvInputFile  string
	csvOutputFile string
	csvWorkers    int
	csvResume     string
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Refine every record of a CSV file",
	Long: `Refine product records read from a CSV file.

The input needs a header row with any of the columns brand, product_type,
attributes, current_description and current_bullets. The output repeats every
input column and appends refined_title, refined_bullets, refined_description,
meta_title, meta_description and violations.

A checkpoint ID is printed at the start of each run. If the job is interrupted,
use --resume with that ID to skip already-refined rows.

Example:
  listingfix csv -i products.csv -o refined.csv --workers 8
  listingfix csv -i products.csv -o refined.csv --resume cp_0b7e...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("workers") {
			cfg.Batch.Workers = csvWorkers
		}
		if err := applyFlags(cmd); err != nil {
			return err
		}
		if csvInputFile == csvOutputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		f, err := os.Open(csvInputFile)
		if err != nil {
			return fmt.Errorf("failed to open input CSV: %w", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(records) == 0 {
			return fmt.Errorf("CSV file is empty")
		}
		header, rows := records[0], records[1:]

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// Open store for cache and checkpoint support.
		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		// Load or create checkpoint.
		var checkpointID string
		done := make(map[int]internal.ProductOutput)

		if csvResume != "" {
			if db == nil {
				return fmt.Errorf("--resume requires the cache to be enabled")
			}
			if _, cpErr := db.GetCSVCheckpoint(ctx, csvResume); cpErr != nil {
				return fmt.Errorf("failed to load checkpoint: %w", cpErr)
			}
			checkpointID = csvResume
			done, err = db.GetCSVRows(ctx, checkpointID)
			if err != nil {
				return fmt.Errorf("failed to load checkpoint rows: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Resuming checkpoint %s (%d rows already done)\n", checkpointID, len(done))
		} else if db != nil {
			checkpointID, err = db.CreateCSVCheckpoint(ctx, csvInputFile, csvOutputFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create checkpoint: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "Checkpoint ID: %s (use --resume %s to resume if interrupted)\n", checkpointID, checkpointID)
			}
		}

		orch, catalog, err := buildOrchestrator(ctx, db)
		if err != nil {
			return err
		}
		var fingerprint string
		if db != nil {
			fingerprint = store.CatalogFingerprint(catalog)
		}

		outputs := make([]*internal.ProductOutput, len(rows))
		var (
			pending      []internal.ProductInput
			pendingIndex []int
		)
		for i, row := range rows {
			if out, ok := done[i]; ok {
				outputs[i] = &out
				continue
			}

			in := internal.ProductInputFromRecord(header, row)
			if db != nil {
				cached, found, cacheErr := db.GetCachedRefinement(ctx, store.InputKey(in, fingerprint))
				if cacheErr == nil && found {
					outputs[i] = cached
					saveRow(ctx, db, checkpointID, i, *cached)
					continue
				}
			}
			pending = append(pending, in)
			pendingIndex = append(pendingIndex, i)
		}
		fmt.Fprintf(os.Stderr, "Refining %d of %d rows with %d workers\n", len(pending), len(rows), cfg.Batch.Workers)

		var (
			mu       sync.Mutex
			finished int
		)
		saveCtx := context.WithoutCancel(ctx)
		orch.RefineAll(ctx, pending, cfg.Batch.Workers, func(idx int, r *orchestrator.Result) {
			rowIdx := pendingIndex[idx]
			out := r.Output()
			in := pending[idx]

			// Checkpoints and cache entries must not record a row the
			// interrupt cut short.
			if r.State != orchestrator.StateCancelled && db != nil {
				if err := db.SaveRefinement(saveCtx, store.InputKey(in, fingerprint), in, r); err != nil {
					logger.Warn("failed to store refinement", zap.Int("row", rowIdx+1), zap.Error(err))
				}
				saveRow(saveCtx, db, checkpointID, rowIdx, out)
			}

			mu.Lock()
			defer mu.Unlock()
			if r.State != orchestrator.StateCancelled {
				outputs[rowIdx] = &out
			}
			finished++
			if !r.Compliant() {
				fmt.Fprintf(os.Stderr, "Row %d: %s with %d violations\n", rowIdx+1, r.State, len(r.Violations))
			}
			logger.Debug("row refined",
				zap.Int("row", rowIdx+1),
				zap.Int("finished", finished),
				zap.Int("total", len(pending)),
				zap.String("state", string(r.State)))
		})

		written, compliant, err := writeOutputCSV(csvOutputFile, header, rows, outputs)
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "Interrupted: %d of %d rows refined; resume with --resume %s\n", written, len(rows), checkpointID)
			return ctx.Err()
		}

		// Mark checkpoint complete.
		if db != nil && checkpointID != "" {
			_ = db.CompleteCSVCheckpoint(saveCtx, checkpointID)
		}

		fmt.Printf("CSV refined successfully: %s (%d of %d rows compliant)\n", csvOutputFile, compliant, written)
		return nil
	},
}

func saveRow(ctx context.Context, db *store.Store, checkpointID string, rowIdx int, out internal.ProductOutput) {
	if db == nil || checkpointID == "" {
		return
	}
	if err := db.SaveCSVRow(ctx, checkpointID, rowIdx, out); err != nil {
		logger.Warn("failed to save checkpoint row", zap.Int("row", rowIdx+1), zap.Error(err))
	}
}

// writeOutputCSV writes every input row with the refined columns appended.
// Rows without an output keep empty refined columns. It returns how many
// refined rows were written and how many of those are compliant.
func writeOutputCSV(path string, header []string, rows [][]string, outputs []*internal.ProductOutput) (written, compliant int, err error) {
	outFile, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create output CSV: %w", err)
	}
	defer outFile.Close()

	writer := csv.NewWriter(outFile)
	if err := writer.Write(append(append([]string{}, header...), internal.OutputColumns...)); err != nil {
		return 0, 0, fmt.Errorf("failed to write output CSV: %w", err)
	}

	empty := make([]string, len(internal.OutputColumns))
	for i, row := range rows {
		rec := make([]string, len(header), len(header)+len(internal.OutputColumns))
		copy(rec, row)
		if outputs[i] != nil {
			rec = append(rec, outputs[i].OutputRecord()...)
			written++
			if len(outputs[i].Violations) == 0 {
				compliant++
			}
		} else {
			rec = append(rec, empty...)
		}
		if err := writer.Write(rec); err != nil {
			return written, compliant, fmt.Errorf("failed to write output CSV: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return written, compliant, fmt.Errorf("failed to flush output CSV: %w", err)
	}
	return written, compliant, nil
}

func init() {
	rootCmd.AddCommand(csvCmd)

	csvCmd.Flags().StringVarP(&csvInputFile, "input", "i", "", "Input CSV file (required)")
	csvCmd.Flags().StringVarP(&csvOutputFile, "output", "o", "", "Output CSV file (required)")
	csvCmd.Flags().IntVarP(&csvWorkers, "workers", "w", 0, "Records refined concurrently (default from config)")
	csvCmd.Flags().StringVar(&csvResume, "resume", "", "Resume from checkpoint ID (printed at start of original run)")

	addGeneratorFlags(csvCmd)
	addStoreFlags(csvCmd)

	csvCmd.MarkFlagRequired("input")
	csvCmd.MarkFlagRequired("output")
}
