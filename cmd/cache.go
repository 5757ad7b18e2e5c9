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
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/listingfix/internal/store"
)

var (
	cacheDBPath string
	cacheLimit  int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the refinement cache",
	Long:  `List, inspect, invalidate and clear stored refinements.`,
}

func openCacheStore() (*store.Store, error) {
	path := cacheDBPath
	if path == "" {
		path = cfg.Store.Path
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored refinements",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListRefinements(cmd.Context(), cacheLimit)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No stored refinements.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBRAND\tTYPE\tSTATE\tCALLS\tBEST\tVIOLATIONS\tUSED\tLAST USED\tINVALID")
		for _, e := range entries {
			productType := e.ProductType
			if len(productType) > 30 {
				productType = productType[:27] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%v\n",
				e.ID, e.Brand, productType, e.State,
				e.GeneratorCalls, e.BestAttempt, e.ViolationCount,
				e.UsageCount, e.LastUsed.Format("2006-01-02 15:04"),
				e.Invalidated)
		}
		return w.Flush()
	},
}

var cacheAttemptsCmd = &cobra.Command{
	Use:   "attempts <id>",
	Short: "Show the attempt log of a stored refinement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		attempts, err := db.GetAttempts(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load attempts: %w", err)
		}
		if len(attempts) == 0 {
			return fmt.Errorf("no attempts recorded for %s", args[0])
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSOURCE\tSTATUS\tFOUND\tREMAINING\tLATENCY\tERROR")
		for _, a := range attempts {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%dms\t%s\n",
				a.Number, a.Source, a.Status, a.FoundCount, a.RemainingCount, a.LatencyMs, a.Error)
		}
		return w.Flush()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show refinement cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total entries:   %d\n", stats.TotalEntries)
		fmt.Printf("Compliant:       %d\n", stats.Compliant)
		fmt.Printf("Exhausted:       %d\n", stats.Exhausted)
		fmt.Printf("Cancelled:       %d\n", stats.Cancelled)
		fmt.Printf("Invalid entries: %d\n", stats.InvalidEntries)
		fmt.Printf("Total usage:     %d\n", stats.TotalUsage)

		if len(stats.ViolationsByKind) > 0 {
			kinds := make([]string, 0, len(stats.ViolationsByKind))
			for k := range stats.ViolationsByKind {
				kinds = append(kinds, k)
			}
			sort.Strings(kinds)
			fmt.Println("Unresolved violations:")
			for _, k := range kinds {
				fmt.Printf("  %-22s %d\n", k, stats.ViolationsByKind[k])
			}
		}
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>",
	Short: "Stop serving a stored refinement from the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InvalidateRefinement(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to invalidate entry: %w", err)
		}
		fmt.Printf("Invalidated entry: %s\n", args[0])
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored refinement by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRefinement(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Printf("Deleted entry: %s\n", args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored refinements",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCacheStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRefinements(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d stored refinements.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDBPath, "db", "", "Database path (default from config)")
	cacheListCmd.Flags().IntVarP(&cacheLimit, "limit", "n", 50, "Maximum entries to list (0 for all)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheAttemptsCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
