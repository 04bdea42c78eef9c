/*
Copyright 2026 The MPPDB Authors.

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
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"

	"github.com/mppdb/coordinator/go/vt/log"
)

// HTTPServe serves srv on l. A closed server or listener is not an error.
func HTTPServe(srv *http.Server, l net.Listener) error {
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// HTTPRegisterProfile registers the pprof endpoints on r.
func HTTPRegisterProfile(r *mux.Router) {
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
}

// HTTPRegisterDebug registers /debug/flushlogs and /debug/version on r.
func HTTPRegisterDebug(r *mux.Router) {
	r.HandleFunc("/debug/flushlogs", func(w http.ResponseWriter, r *http.Request) {
		log.Flush()
		fmt.Fprint(w, "flushed")
	})
	r.HandleFunc("/debug/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, AppVersion.String())
	})
}
