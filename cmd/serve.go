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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/listingfix/internal/server"
	"github.com/valpere/listingfix/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve refinement over HTTP",
	Long: `Start an HTTP server exposing:

  POST /refine     refine one product record
  POST /validate   check an output record against the rule catalog
  GET  /healthz    liveness probe
  GET  /metrics    Prometheus metrics

Example:
  listingfix serve --addr :8080 --provider ollama`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlags(cmd); err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
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

		opts := []server.Option{server.WithLogger(logger)}
		if db != nil {
			opts = append(opts, server.WithStore(db, store.CatalogFingerprint(catalog)))
		}
		srv := server.New(orch, version, opts...)

		if err := srv.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	addGeneratorFlags(serveCmd)
	addStoreFlags(serveCmd)
}
