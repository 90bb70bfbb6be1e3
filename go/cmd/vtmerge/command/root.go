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
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/merger"
	"shardmerge.io/shardmerge/go/vt/servenv"
	"shardmerge.io/shardmerge/go/vt/utils"
)

var (
	// configFS holds the --config-file and statement files.
	configFS = afero.NewOsFs()

	configFile    string
	actionTimeout time.Duration
	mergeConfig   = merger.NewConfig()

	commandCtx    context.Context
	commandCancel func()

	// Root is the root command of vtmerge.
	Root = &cobra.Command{
		Use:   "vtmerge",
		Short: "Merges the results of a query run on several shards into one result.",
		Long: `vtmerge runs a query on every shard it is given and merges the shard
results the way a sharding proxy would: ordering, grouping, aggregation and
pagination are applied across shards.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := servenv.LoadConfig(cmd.Flags(), servenv.NewViper(configFS), servenv.ConfigFileFlag); err != nil {
				return err
			}
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			commandCtx, commandCancel = context.WithTimeout(ctx, actionTimeout)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if commandCancel != nil {
				commandCancel()
			}
			log.Flush()
			return nil
		},
		SilenceErrors: true,
		Version:       servenv.AppVersion.String(),
	}
)

func init() {
	Root.SetGlobalNormalizationFunc(utils.NormalizeUnderscoresToDashes)

	fs := Root.PersistentFlags()
	servenv.RegisterConfigFlags(fs, &configFile)
	utils.SetFlagDurationVar(fs, &actionTimeout, "action-timeout", time.Hour, "timeout for the total command")
	log.RegisterFlags(fs)
	mergeConfig.RegisterFlags(fs)
}
