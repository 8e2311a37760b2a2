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

package database

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hummer_mongo"

// StatsCollector exports pool counters and server health as Prometheus
// metrics. Values are read from the manager on every scrape.
type StatsCollector struct {
	manager       AbstractDatabaseManager
	healthTimeout time.Duration

	up               *prometheus.Desc
	responseSeconds  *prometheus.Desc
	maxPoolSize      *prometheus.Desc
	connections      *prometheus.Desc
	checkOutFailures *prometheus.Desc
	poolCleared      *prometheus.Desc
	commands         *prometheus.Desc
	commandsFailed   *prometheus.Desc
}

// NewStatsCollector returns a collector for manager labelled with database.
// A zero healthTimeout skips the health ping and the up metric.
func NewStatsCollector(manager AbstractDatabaseManager, database string, healthTimeout time.Duration) *StatsCollector {
	constLabels := prometheus.Labels{"database": database}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, labels, constLabels)
	}
	return &StatsCollector{
		manager:          manager,
		healthTimeout:    healthTimeout,
		up:               desc("up", "Whether the last ping succeeded"),
		responseSeconds:  desc("ping_duration_seconds", "Duration of the last ping"),
		maxPoolSize:      desc("pool_max_size", "Configured maximum pool size"),
		connections:      desc("pool_connections", "Pool connections by state", "state"),
		checkOutFailures: desc("pool_checkout_failures_total", "Total connection check out failures"),
		poolCleared:      desc("pool_cleared_total", "Total pool clear events"),
		commands:         desc("commands_total", "Total commands completed"),
		commandsFailed:   desc("commands_failed_total", "Total commands failed"),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	if c.healthTimeout > 0 {
		ch <- c.up
		ch <- c.responseSeconds
	}
	ch <- c.maxPoolSize
	ch <- c.connections
	ch <- c.checkOutFailures
	ch <- c.poolCleared
	ch <- c.commands
	ch <- c.commandsFailed
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.healthTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.healthTimeout)
		status := c.manager.HealthCheck(ctx)
		cancel()
		up := 0.0
		if status.Healthy {
			up = 1
		}
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
		ch <- prometheus.MustNewConstMetric(c.responseSeconds, prometheus.GaugeValue, status.ResponseTime.Seconds())
	}

	stats := c.manager.GetStats()
	ch <- prometheus.MustNewConstMetric(c.maxPoolSize, prometheus.GaugeValue, float64(stats.MaxPoolSize))
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(stats.OpenConns), "open")
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(stats.InUse), "in_use")
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(stats.Idle), "idle")
	ch <- prometheus.MustNewConstMetric(c.checkOutFailures, prometheus.CounterValue, float64(stats.CheckOutFailures))
	ch <- prometheus.MustNewConstMetric(c.poolCleared, prometheus.CounterValue, float64(stats.PoolCleared))
	ch <- prometheus.MustNewConstMetric(c.commands, prometheus.CounterValue, float64(stats.CommandsExecuted))
	ch <- prometheus.MustNewConstMetric(c.commandsFailed, prometheus.CounterValue, float64(stats.CommandsFailed))
}
