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

package statement

import (
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// Parse reads a statement from YAML or JSON and validates it.
func Parse(data []byte) (*Statement, error) {
	var stmt Statement
	if err := yaml.UnmarshalStrict(data, &stmt); err != nil {
		return nil, vterrors.Errorf(vtrpc.CodeInvalidArgument, "cannot parse statement: %v", err)
	}
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	return &stmt, nil
}

// Load reads and parses the statement file at path on fs.
func Load(fs afero.Fs, path string) (*Statement, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, vterrors.Wrapf(err, "cannot read statement file %s", path)
	}
	stmt, err := Parse(data)
	if err != nil {
		return nil, vterrors.Wrapf(err, "%s", path)
	}
	return stmt, nil
}

// Marshal renders the statement as YAML.
func Marshal(stmt *Statement) ([]byte, error) {
	return yaml.Marshal(stmt)
}
