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

// Package log is the coordinator's logging facade. Messages go to glog
// unless --log-fmt is set, in which case they are emitted through slog as
// json, logfmt or colored text records.
package log

import (
	"strconv"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
)

var (
	// Flush ensures any pending I/O is written.
	Flush = glog.Flush

	// V reports whether verbose logging at the given level is enabled.
	V = glog.V

	// Infof formats and logs at the Info level through glog.
	Infof = glog.Infof
	// Warningf formats and logs at the Warning level through glog.
	Warningf = glog.Warningf
	// Errorf formats and logs at the Error level through glog.
	Errorf = glog.Errorf
	// Exitf formats and logs at the Fatal level, then exits without a stack dump.
	Exitf = glog.Exitf
)

// Level is the glog verbosity level.
type Level = glog.Level

// RegisterFlags installs the log flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	maxSize := &rotateMaxSize{val: strconv.FormatUint(atomic.LoadUint64(&glog.MaxSize), 10)}
	fs.Var(maxSize, "log-rotate-max-size", "size in bytes at which logs are rotated (glog.MaxSize)")
	fs.StringVar(&logFormat, "log-fmt", "json", "format for structured logging output: json, logfmt or text (colored, for terminals)")
	fs.StringVar(&logLevel, "log-level", "info", "minimum structured logging level: debug, info, warn or error")
}

// rotateMaxSize is a pflag.Value giving atomic access to glog.MaxSize.
type rotateMaxSize struct {
	val string
}

func (r *rotateMaxSize) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	atomic.StoreUint64(&glog.MaxSize, n)
	r.val = s
	return nil
}

func (r *rotateMaxSize) String() string { return r.val }

func (r *rotateMaxSize) Type() string { return "uint64" }
