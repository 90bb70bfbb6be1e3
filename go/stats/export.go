/*
Copyright 2019 The Vitess Authors.

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

// Package stats is a wrapper for expvar. It additionally
// exports new types that can be used to track performance.
// It also provides a callback hook that allows a program
// to export the variables using methods other than /debug/vars.
// All variables support a String function that
// is expected to return a JSON representation
// of the variable.
// Any function named Add will add the specified
// number to the variable.
// Any function named Counts returns a map of counts
// that can be used by Rates to track rates over time.
package stats

import (
	"expvar"
	"sync"
)

// Variable is the minimal interface which each type in this "stats" package
// must implement.
// When integrating the Vitess stats types ("variables") with the different
// monitoring systems, you can rely on this interface.
type Variable interface {
	// Help returns the description of the variable.
	Help() string

	// String must implement String() from the expvar.Var interface.
	String() string
}

// NewVarHook is the type of a hook to export variables in a different way
type NewVarHook func(name string, v expvar.Var)

type varGroup struct {
	sync.Mutex
	names []string
	vars  map[string]expvar.Var
	hooks []NewVarHook
}

// register adds a hook and replays every variable published so far,
// in publication order.
func (vg *varGroup) register(nvh NewVarHook) {
	vg.Lock()
	defer vg.Unlock()
	if nvh == nil {
		return
	}
	vg.hooks = append(vg.hooks, nvh)
	for _, name := range vg.names {
		nvh(name, vg.vars[name])
	}
}

func (vg *varGroup) publish(name string, v expvar.Var) {
	vg.Lock()
	defer vg.Unlock()

	expvar.Publish(name, v)
	vg.names = append(vg.names, name)
	vg.vars[name] = v
	for _, hook := range vg.hooks {
		hook(name, v)
	}
}

var defaultVarGroup = varGroup{vars: make(map[string]expvar.Var)}

// Register allows you to register a callback function
// that will be called whenever a new stats variable gets
// created. This can be used to build alternate methods
// of exporting stats variables. Variables published before
// the call are passed to the hook right away.
func Register(nvh NewVarHook) {
	defaultVarGroup.register(nvh)
}

// Publish is expvar.Publish+hook
func Publish(name string, v expvar.Var) {
	publish(name, v)
}

func publish(name string, v expvar.Var) {
	defaultVarGroup.publish(name, v)
}
