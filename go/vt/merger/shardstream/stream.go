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

// Package shardstream defines the forward-only row stream one shard hands to
// the merger, and the adapters that produce it.
package shardstream

import (
	"context"

	"shardmerge.io/shardmerge/go/sqltypes"
	"shardmerge.io/shardmerge/go/vt/vterrors"
	"shardmerge.io/shardmerge/go/vt/vtrpc"
)

// Stream is the result of one statement on one shard.
//
// Next returns io.EOF once every row was returned. Close releases the
// underlying resources and may be called more than once. A Stream is owned
// by a single execution and is not safe for concurrent use, except for
// Close which may race with a blocked Next.
type Stream interface {
	// Shard is the name of the shard the rows come from.
	Shard() string
	// Fields describes the columns of every row. Ordinals are 1-based
	// positions in this slice.
	Fields() []*sqltypes.Field
	Next(ctx context.Context) (sqltypes.Row, error)
	Close() error
}

func errClosed(shard string) error {
	return vterrors.Errorf(vtrpc.CodeFailedPrecondition, "stream for shard %s is closed", shard)
}

// CloseAll closes every stream and returns the aggregated close errors.
func CloseAll(streams []Stream) error {
	var errs []error
	for _, s := range streams {
		if err := s.Close(); err != nil {
			errs = append(errs, vterrors.Wrapf(err, "closing shard %s", s.Shard()))
		}
	}
	return vterrors.Aggregate(errs)
}
