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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/event"
)

func TestStatsCollectorExportsPoolCounters(t *testing.T) {
	dm := NewDatabaseManager(nil).(*defaultDatabaseManager)
	for _, typ := range []string{
		event.ConnectionCreated, event.ConnectionCreated,
		event.ConnectionCheckedOut, event.ConnectionCheckOutFailed,
	} {
		dm.onPoolEvent(&event.PoolEvent{Type: typ})
	}
	dm.pool.commandsExecuted.Add(3)
	dm.pool.commandsFailed.Add(1)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewStatsCollector(dm, "shop", 0)))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "state" {
					name += "{" + lp.GetValue() + "}"
				}
				if lp.GetName() == "database" {
					assert.Equal(t, "shop", lp.GetValue())
				}
			}
			if g := m.GetGauge(); g != nil {
				values[name] = g.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				values[name] = c.GetValue()
			}
		}
	}

	assert.Equal(t, 100.0, values["hummer_mongo_pool_max_size"])
	assert.Equal(t, 2.0, values["hummer_mongo_pool_connections{open}"])
	assert.Equal(t, 1.0, values["hummer_mongo_pool_connections{in_use}"])
	assert.Equal(t, 1.0, values["hummer_mongo_pool_connections{idle}"])
	assert.Equal(t, 1.0, values["hummer_mongo_pool_checkout_failures_total"])
	assert.Equal(t, 0.0, values["hummer_mongo_pool_cleared_total"])
	assert.Equal(t, 3.0, values["hummer_mongo_commands_total"])
	assert.Equal(t, 1.0, values["hummer_mongo_commands_failed_total"])
	assert.NotContains(t, values, "hummer_mongo_up")
}

func TestStatsCollectorReportsDownWithoutClient(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewStatsCollector(NewDatabaseManager(nil), "shop", time.Second)))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "hummer_mongo_up" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 0.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}
