/*
Copyright 2023 The Vitess Authors.

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

package servenv

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"shardmerge.io/shardmerge/go/vt/log"
	"shardmerge.io/shardmerge/go/vt/utils"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

const (
	// ConfigFileFlag is the name of the flag pointing at an optional
	// config file.
	ConfigFileFlag = "config-file"

	// EnvPrefix prefixes every environment variable read as configuration.
	// --merge-max-memory-rows is read from SHARDMERGE_MERGE_MAX_MEMORY_ROWS.
	EnvPrefix = "SHARDMERGE"
)

// RegisterConfigFlags installs the --config-file flag on fs.
func RegisterConfigFlags(fs *pflag.FlagSet, p *string) {
	utils.SetFlagStringVar(fs, p, ConfigFileFlag, "", "path to a YAML (or JSON, TOML) config file whose keys are flag names")
}

// NewViper returns a viper reading config files from afs and environment
// variables under EnvPrefix.
func NewViper(afs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(afs)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig binds every flag of fs to v, reads the config file named by
// the fileFlag flag if it is set, and copies the resolved values back into
// the flags that were not set on the command line.
//
// Precedence is command line, then environment, then config file, then the
// flag default.
func LoadConfig(fs *pflag.FlagSet, v *viper.Viper, fileFlag string) error {
	if err := v.BindPFlags(fs); err != nil {
		return vterrors.Wrap(err, "cannot bind flags")
	}

	if f := fs.Lookup(fileFlag); f != nil && f.Value.String() != "" {
		path := f.Value.String()
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return vterrors.Errorf(vtrpc.CodeInvalidArgument, "cannot read config file %s: %v", path, err)
		}
		log.V(1).Infof("loaded config file %s", v.ConfigFileUsed())
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == fileFlag || !v.IsSet(f.Name) {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			if err := sv.Replace(v.GetStringSlice(f.Name)); err != nil {
				errs = append(errs, vterrors.Wrapf(err, "invalid value for %s", f.Name))
			}
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			errs = append(errs, vterrors.Errorf(vtrpc.CodeInvalidArgument, "invalid value for %s: %v", f.Name, err))
		}
	})
	return vterrors.Aggregate(errs)
}
