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
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomoncle/hummer-mongo/database"
	"github.com/tomoncle/hummer-mongo/repository"
	"github.com/tomoncle/hummer-mongo/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// rawDocument keeps every stored field next to the identity and timestamps.
type rawDocument struct {
	types.Document `bson:",inline"`
	Fields         bson.M `bson:",inline"`
}

func (d *rawDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+3)
	for k, v := range d.Fields {
		out[k] = v
	}
	out[types.IDField] = d.GetID()
	if !d.CreatedOn.IsZero() {
		out[types.CreatedOnField] = d.CreatedOn
	}
	if !d.ModifiedOn.IsZero() {
		out[types.ModifiedOnField] = d.ModifiedOn
	}
	return json.Marshal(out)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		if err := database.GetDatabaseManager().Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pong in %s\n", time.Since(start).Round(time.Microsecond))
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print the connection health status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return printJSON(cmd.OutOrStdout(), database.GetHealthStatus(ctx))
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print connection pool statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := database.GetDatabaseManager().Ping(ctx); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), database.GetDatabaseStats())
	},
}

var countCmd = &cobra.Command{
	Use:   "count <collection>",
	Short: "Count documents matching --filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseFilter(cmd)
		if err != nil {
			return err
		}
		ctx, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		n, err := collectionRepository(args[0]).Count(ctx, filter)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <collection>",
	Short: "Print one page of documents matching --filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseFilter(cmd)
		if err != nil {
			return err
		}
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		ctx, cleanup, err := connect(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		docs, err := collectionRepository(args[0]).FindSorted(ctx, filter, parseSort(cmd), types.NewPageRequest(page, size))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), docs)
	},
}

var firstCmd = &cobra.Command{
	Use:   "first <collection>",
	Short: "Print the first document matching --filter under --sort",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdge(cmd, args[0], func(r repository.Repository[rawDocument], ctx context.Context, filter any, sort types.Sort) (*rawDocument, error) {
			return r.FirstSorted(ctx, filter, sort)
		})
	},
}

var lastCmd = &cobra.Command{
	Use:   "last <collection>",
	Short: "Print the last document matching --filter under --sort",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdge(cmd, args[0], func(r repository.Repository[rawDocument], ctx context.Context, filter any, sort types.Sort) (*rawDocument, error) {
			return r.LastSorted(ctx, filter, sort)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{countCmd, findCmd, firstCmd, lastCmd} {
		c.Flags().String("filter", "", "Filter as extended JSON, e.g. '{\"tag\": \"a\"}'")
	}
	for _, c := range []*cobra.Command{findCmd, firstCmd, lastCmd} {
		c.Flags().String("sort", types.IDField, "Field to order by")
		c.Flags().Bool("desc", false, "Order descending")
	}
	findCmd.Flags().Int("page", 0, "Zero-based page index")
	findCmd.Flags().Int("size", types.DefaultPageSize, "Page size")
}

type edgeLookup func(repository.Repository[rawDocument], context.Context, any, types.Sort) (*rawDocument, error)

func runEdge(cmd *cobra.Command, collection string, lookup edgeLookup) error {
	filter, err := parseFilter(cmd)
	if err != nil {
		return err
	}
	ctx, cleanup, err := connect(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	doc, err := lookup(collectionRepository(collection), ctx, filter, parseSort(cmd))
	if err != nil {
		return err
	}
	if doc == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "null")
		return nil
	}
	return printJSON(cmd.OutOrStdout(), doc)
}

func collectionRepository(name string) repository.Repository[rawDocument] {
	return repository.NewRepository[rawDocument](database.GetDB().Collection(name))
}

func parseFilter(cmd *cobra.Command) (any, error) {
	raw, _ := cmd.Flags().GetString("filter")
	if raw == "" {
		return types.All(), nil
	}
	var filter bson.D
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &filter); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return filter, nil
}

func parseSort(cmd *cobra.Command) types.Sort {
	field, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	return types.SortBy(field).WithDirection(desc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
