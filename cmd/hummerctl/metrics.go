/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomoncle/hummer-mongo/database"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print pool metrics in Prometheus text format, or serve them with --listen",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		manager := database.GetDatabaseManager()
		if err := manager.Ping(ctx); err != nil {
			return err
		}
		reg := newMetricsRegistry(manager, database.GetConfig().ConnectionConfig.Database, viper.GetDuration("timeout"))

		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			return writeMetrics(cmd.OutOrStdout(), reg)
		}
		serveCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return serveMetrics(serveCtx, listen, reg)
	},
}

func init() {
	metricsCmd.Flags().String("listen", "", "Serve /metrics on this address until interrupted, e.g. :9216")
}

func newMetricsRegistry(manager database.AbstractDatabaseManager, name string, healthTimeout time.Duration) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(database.NewStatsCollector(manager, name, healthTimeout))
	return reg
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
