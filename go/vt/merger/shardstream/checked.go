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

package shardstream

import (
	"context"

	"shardmerge.io/shardmerge/go/sqltypes"
)

// CheckFunc validates one row of a shard.
type CheckFunc func(shard string, row sqltypes.Row) error

var _ Stream = (*checkedStream)(nil)

type checkedStream struct {
	Stream
	check CheckFunc
}

// Check returns a Stream which runs check on every row of s. The first row
// that fails the check ends the stream with the check's error.
func Check(s Stream, check CheckFunc) Stream {
	return &checkedStream{Stream: s, check: check}
}

// Next implements Stream.
func (c *checkedStream) Next(ctx context.Context) (sqltypes.Row, error) {
	row, err := c.Stream.Next(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.check(c.Shard(), row); err != nil {
		return nil, err
	}
	return row, nil
}

// MinWidth returns a CheckFunc rejecting rows with fewer than width values.
func MinWidth(width int, mismatch func(shard string, want, got int) error) CheckFunc {
	return func(shard string, row sqltypes.Row) error {
		if len(row) < width {
			return mismatch(shard, width, len(row))
		}
		return nil
	}
}
