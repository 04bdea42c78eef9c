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

// Package servenv contains the process lifecycle shared by coordinator
// binaries: configuration, the HTTP listener, lameduck handling and
// shutdown hooks.
package servenv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mppdb/coordinator/go/vt/log"
)

// hooks is a list of functions run in parallel.
type hooks struct {
	mu    sync.Mutex
	funcs []func()
}

func (h *hooks) Add(f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.funcs = append(h.funcs, f)
}

// Fire runs all hooks in parallel and waits for them.
func (h *hooks) Fire() {
	h.mu.Lock()
	funcs := append([]func(){}, h.funcs...)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, f := range funcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	wg.Wait()
}

var (
	onRunHooks   hooks
	onTermHooks  hooks
	onCloseHooks hooks
)

// OnRun registers f to be run once the listener is up.
func OnRun(f func()) { onRunHooks.Add(f) }

// OnTerm registers f to be run when the lameduck period starts.
// All hooks are run in parallel.
func OnTerm(f func()) { onTermHooks.Add(f) }

// OnClose registers f to be run at the end of the app lifecycle, after the
// lameduck period. All hooks are run in parallel.
func OnClose(f func()) { onCloseHooks.Add(f) }

// Run serves handler on cfg.Port until ctx is done, then keeps serving for
// cfg.LameduckPeriod before shutting down. OnRun, OnTerm and OnClose hooks
// fire at the matching points.
func Run(ctx context.Context, cfg *Config, handler http.Handler) error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return err
	}
	return Serve(ctx, cfg, l, handler)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, cfg *Config, l net.Listener, handler http.Handler) error {
	if err := writePidFile(cfg.PidFile); err != nil {
		l.Close()
		return err
	}
	defer removePidFile(cfg.PidFile)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		errc <- HTTPServe(srv, l)
	}()
	log.InfoS("serving", "addr", l.Addr().String())
	onRunHooks.Fire()

	select {
	case err := <-errc:
		onCloseHooks.Fire()
		return err
	case <-ctx.Done():
	}

	log.InfoS("entering lameduck mode", "period", cfg.LameduckPeriod)
	go onTermHooks.Fire()
	time.Sleep(cfg.LameduckPeriod)

	log.InfoS("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	onCloseHooks.Fire()
	if serveErr := <-errc; serveErr != nil {
		return serveErr
	}
	return err
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644); err != nil {
		return fmt.Errorf("unable to create pid file %q: %w", path, err)
	}
	return nil
}

func removePidFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Errorf("Unable to remove pid file '%s': %v", path, err)
	}
}
