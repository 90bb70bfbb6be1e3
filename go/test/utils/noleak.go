/*
Copyright 2020 The Vitess Authors.

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

package utils

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// LeakCheckContext returns a Context that is cancelled at the end of the
// test. Once it is cancelled, a test that passed is checked for leaked
// goroutines, like shard readers that outlived their merge.
func LeakCheckContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		EnsureNoLeaks(t)
	})
	return ctx
}

// EnsureNoLeaks fails the test if goroutines are still running that the
// test started.
func EnsureNoLeaks(t testing.TB) {
	if t.Failed() {
		return
	}
	if err := findLeaks(); err != nil {
		t.Fatal(err)
	}
}

// backgroundGoroutines run for the life of the process.
var backgroundGoroutines = []goleak.Option{
	goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
	goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	goleak.IgnoreTopFunction("testing.tRunner.func1"),
	goleak.IgnoreCurrent(),
}

// findLeaks retries for a while, as cancelled goroutines need a moment
// to return.
func findLeaks() error {
	var err error
	for range 5 {
		if err = goleak.Find(backgroundGoroutines...); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return err
}
