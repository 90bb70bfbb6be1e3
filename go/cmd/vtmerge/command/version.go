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
	"fmt"

	"github.com/spf13/cobra"

	"shardmerge.io/shardmerge/go/cmd/vtmerge/cli"
	"shardmerge.io/shardmerge/go/vt/servenv"
)

var (
	// Version prints the build information of the binary.
	Version = &cobra.Command{
		Use:                   "version [--json|-j]",
		Short:                 "Prints the vtmerge version and build information.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE:                  commandVersion,
	}
)

var versionOptions = struct {
	JSON bool
}{}

func commandVersion(cmd *cobra.Command, args []string) error {
	cli.FinishedParsing(cmd)

	if versionOptions.JSON {
		data, err := cli.MarshalJSON(servenv.AppVersion.ToStringMap())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return err
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), servenv.AppVersion.String())
	return err
}

func init() {
	Version.Flags().BoolVarP(&versionOptions.JSON, "json", "j", false, "Output the build information in JSON.")
	Root.AddCommand(Version)
}
