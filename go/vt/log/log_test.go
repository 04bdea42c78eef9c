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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer

	_, err := newHandler(&buf, "yaml", "info")
	require.ErrorContains(t, err, "invalid log-fmt")

	_, err = newHandler(&buf, "json", "loud")
	require.ErrorContains(t, err, "invalid log-level")

	h, err := newHandler(&buf, " JSON ", "warn")
	require.NoError(t, err)
	restore := SetLogger(slog.New(h))
	defer restore()

	InfoS("dropped")
	WarnS("kept", "db", "sales")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "sales", rec["db"])
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	h, err := newHandler(&buf, "text", "debug")
	require.NoError(t, err)
	restore := SetLogger(slog.New(h))
	defer restore()

	DebugS("leader changed", "leader", "fe1:8030")
	assert.Contains(t, buf.String(), "leader changed")
	assert.Contains(t, buf.String(), "fe1:8030")
}

func TestInitWithoutFormatFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Init(fs))
	assert.False(t, structured.Load())
}

func TestRotateMaxSize(t *testing.T) {
	r := &rotateMaxSize{}
	require.Error(t, r.Set("lots"))
	require.NoError(t, r.Set("1024"))
	assert.Equal(t, "1024", r.String())
	assert.Equal(t, "uint64", r.Type())
}
