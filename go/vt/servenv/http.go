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
	"errors"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
)

// mux is the servenv HTTP mux. It starts with /debug/vars so the stats
// package variables are always reachable.
var mux = newMux()

func newMux() *http.ServeMux {
	m := http.NewServeMux()
	m.Handle("/debug/vars", expvar.Handler())
	return m
}

// HTTPHandle registers the given handler for the internal servenv mux.
func HTTPHandle(pattern string, handler http.Handler) {
	mux.Handle(pattern, handler)
}

// HTTPHandleFunc registers the given handler func for the internal servenv mux.
func HTTPHandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	mux.HandleFunc(pattern, handler)
}

// HTTPServe starts the HTTP server for the internal servenv mux on the listener.
// It returns nil once the listener is closed.
func HTTPServe(l net.Listener) error {
	err := http.Serve(l, mux)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// HTTPRegisterProfile registers the default pprof HTTP endpoints with the internal servenv mux.
func HTTPRegisterProfile() {
	HTTPHandleFunc("/debug/pprof/", pprof.Index)
	HTTPHandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	HTTPHandleFunc("/debug/pprof/profile", pprof.Profile)
	HTTPHandleFunc("/debug/pprof/symbol", pprof.Symbol)
	HTTPHandleFunc("/debug/pprof/trace", pprof.Trace)
}
