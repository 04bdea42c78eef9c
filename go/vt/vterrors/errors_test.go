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

package vterrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "no error"))
	assert.Nil(t, Wrapf(nil, "no %s", "error"))
	assert.Nil(t, WithState(nil, codes.Unavailable, NoLeader, "x"))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		err         error
		message     string
		wantMessage string
		wantCode    codes.Code
	}{
		{io.EOF, "read error", "read error: EOF", codes.Unknown},
		{New(codes.AlreadyExists, "oops"), "client error", "client error: oops", codes.AlreadyExists},
		{context.Canceled, "finalize", "finalize: context canceled", codes.Canceled},
	}

	for _, tt := range tests {
		got := Wrap(tt.err, tt.message)
		assert.Equal(t, tt.wantMessage, got.Error())
		assert.Equal(t, tt.wantCode, Code(got))
		assert.True(t, errors.Is(got, tt.err))
	}
}

func TestStateSurvivesWrapping(t *testing.T) {
	base := NewErrorf(codes.Unavailable, HostResolutionFailed, "cannot resolve %s", "coordinator")
	err := fmt.Errorf("compile: %w", Wrapf(base, "finalize node %d", 3))

	assert.Equal(t, codes.Unavailable, Code(err))
	assert.Equal(t, HostResolutionFailed, ErrState(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "compile: finalize node 3: cannot resolve coordinator", err.Error())
}

func TestWithState(t *testing.T) {
	err := WithState(io.ErrUnexpectedEOF, codes.Unavailable, MetadataUnreachable, "placement lookup")
	require.Error(t, err)
	assert.Equal(t, MetadataUnreachable, ErrState(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(New(codes.InvalidArgument, "No database selected")))
	assert.False(t, IsRetryable(New(codes.PermissionDenied, "denied")))
	assert.False(t, IsRetryable(New(codes.NotFound, "missing")))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(NewErrorf(codes.Unavailable, MetadataUnreachable, "down")))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NoLiveReplica", NoLiveReplica.String())
	assert.Equal(t, "Undefined", NumOfStates.String())
	assert.Equal(t, "Undefined", ErrState(io.EOF).String())
}
