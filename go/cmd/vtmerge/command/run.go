/*
Copyright 2024 The Vitess Authors.

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

package command

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shardmerge.io/shardmerge/go/cmd/vtmerge/cli"
	"shardmerge.io/shardmerge/go/stats/prometheusbackend"
	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/merger"
	"shardmerge.io/shardmerge/go/vt/merger/shardstream"
	"shardmerge.io/shardmerge/go/vt/merger/statement"
	"shardmerge.io/shardmerge/go/vt/servenv"
	"shardmerge.io/shardmerge/go/vt/utils"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

var (
	// Run runs a query on every shard and merges the results.
	Run = &cobra.Command{
		Use:                   "run --statement <path> --query <sql> --shard <name>=<driver>:<dsn> [--shard ...] [--json|-j] [--explain] [--metrics-addr <addr>]",
		Short:                 "Runs the query on every shard and prints the merged result.",
		Long:                  "Runs the query on every shard and prints the merged result.\n\nThe statement file describes the ORDER BY, GROUP BY, aggregations and LIMIT of the query in YAML or JSON.\nShards are opened with one of the " + fmt.Sprint(cli.Drivers) + " database/sql drivers.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  commandRun,
	}
)

var runOptions = struct {
	Statement   string
	Query       string
	Shards      []string
	JSON        bool
	Explain     bool
	MetricsAddr string
}{}

func commandRun(cmd *cobra.Command, args []string) error {
	targets, err := cli.ParseShardTargets(runOptions.Shards)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return vterrors.Errorf(vtrpc.CodeInvalidArgument, "at least one --shard is required")
	}
	if runOptions.Query == "" {
		return vterrors.Errorf(vtrpc.CodeInvalidArgument, "--query is required")
	}

	cli.FinishedParsing(cmd)

	stmt, err := statement.Load(configFS, runOptions.Statement)
	if err != nil {
		return err
	}

	if runOptions.MetricsAddr != "" {
		l, err := serveMetrics(runOptions.MetricsAddr)
		if err != nil {
			return err
		}
		defer l.Close()
	}

	return runMerge(commandCtx, cmd.OutOrStdout(), mergeRequest{
		stmt:    stmt,
		query:   runOptions.Query,
		targets: targets,
		json:    runOptions.JSON,
		explain: runOptions.Explain,
	})
}

type mergeRequest struct {
	stmt    *statement.Statement
	query   string
	targets []cli.ShardTarget
	json    bool
	explain bool
}

func runMerge(ctx context.Context, w io.Writer, req mergeRequest) error {
	dbs := make([]*sql.DB, 0, len(req.targets))
	defer func() {
		for _, db := range dbs {
			_ = db.Close()
		}
	}()
	for _, t := range req.targets {
		db, err := t.Open()
		if err != nil {
			return err
		}
		dbs = append(dbs, db)
	}

	streams, err := queryShards(ctx, req.targets, dbs, req.query)
	if err != nil {
		return err
	}

	cursor, err := merger.Merge(ctx, streams, req.stmt, mergeConfig.Options()...)
	if err != nil {
		return err
	}
	defer cursor.Close()

	if req.explain {
		_, err := fmt.Fprint(w, cursor.Describe().String())
		return err
	}

	result, err := cursor.ReadAll(ctx)
	if err != nil {
		return err
	}

	if req.json {
		data, err := cli.MarshalJSON(cli.MergedResult{
			ExecutionID: cursor.ExecutionID(),
			Mode:        cursor.Mode().String(),
			Fields:      result.Fields,
			Rows:        result.Rows,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	if err := cli.WriteResultTable(w, result); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "execution %s (%s)\n", cursor.ExecutionID(), cursor.Mode())
	return err
}

// queryShards starts the query on every shard concurrently. The rows stay
// bound to ctx, so the merge must run under the same context.
func queryShards(ctx context.Context, targets []cli.ShardTarget, dbs []*sql.DB, query string) ([]shardstream.Stream, error) {
	results := make([]*shardstream.SQLStream, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			s, err := shardstream.Query(ctx, t.Name, dbs[i], query)
			if err != nil {
				return err
			}
			results[i] = s
			return nil
		})
	}
	err := g.Wait()

	streams := make([]shardstream.Stream, 0, len(results))
	for _, s := range results {
		if s != nil {
			streams = append(streams, s)
		}
	}
	if err != nil {
		if cerr := shardstream.CloseAll(streams); cerr != nil {
			log.Warningf("closing shards after failed query: %v", cerr)
		}
		return nil, err
	}
	return streams, nil
}

var metricsOnce sync.Once

// serveMetrics exports the stats variables to Prometheus and serves them,
// along with /debug/vars and pprof, on addr until the returned listener is
// closed.
func serveMetrics(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, vterrors.Wrapf(err, "cannot listen on %s", addr)
	}

	metricsOnce.Do(func() {
		merger.InitializeMetrics()
		prometheusbackend.Init("shardmerge")
		servenv.HTTPHandle("/metrics", promhttp.Handler())
		servenv.HTTPRegisterProfile()
	})

	go func() {
		if err := servenv.HTTPServe(l); err != nil {
			log.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	log.InfoS("serving metrics", "addr", l.Addr().String())
	return l, nil
}

func init() {
	fs := Run.Flags()
	utils.SetFlagStringVar(fs, &runOptions.Statement, "statement", "", "path to the YAML or JSON statement file")
	utils.SetFlagStringVar(fs, &runOptions.Query, "query", "", "query to run on every shard")
	utils.SetFlagStringArrayVar(fs, &runOptions.Shards, "shard", nil, "shard to query, as <name>=<driver>:<dsn>; repeat once per shard")
	fs.BoolVarP(&runOptions.JSON, "json", "j", false, "Output the results in JSON instead of a human-readable table.")
	utils.SetFlagBoolVar(fs, &runOptions.Explain, "explain", false, "print the merge plan instead of running it")
	utils.SetFlagStringVar(fs, &runOptions.MetricsAddr, "metrics-addr", "", "if set, serve /metrics, /debug/vars and /debug/pprof on this address while the command runs")
	_ = Run.MarkFlagRequired("statement")
	Root.AddCommand(Run)
}
