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

// Package ptr holds helpers for the pointer-typed optional fields used on
// the wire, where nil means absent.
package ptr

// Of returns a pointer to the given value.
func Of[T any](x T) *T {
	return &x
}

// Unwrap dereferences x if it's not nil. Otherwise, it returns def.
func Unwrap[T any](x *T, def T) T {
	if x != nil {
		return *x
	}
	return def
}

// Clone returns a fresh pointer holding the same value, or nil.
func Clone[T any](x *T) *T {
	if x == nil {
		return nil
	}
	v := *x
	return &v
}

// Equal reports whether a and b are both absent, or both present and equal.
func Equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
