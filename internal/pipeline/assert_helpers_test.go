// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// Assertion helpers. Each calls t.Helper so failures point at the caller;
// check* helpers report and continue, require* helpers stop the test.

// describe formats optional printf-style context for a failure message.
func describe(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return " (" + fmt.Sprintf(format, msgAndArgs[1:]...) + ")"
	}
	return " (" + fmt.Sprint(msgAndArgs...) + ")"
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// lengthOf returns the length of a string, slice, map, array or channel, and
// false for anything else.
func lengthOf(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len(), true
	}
	return 0, false
}

// checkNoError fails the test immediately if err is not nil
func checkNoError(t *testing.T, err error, msgAndArgs ...any) bool {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v%s", err, describe(msgAndArgs))
		return false
	}
	return true
}

// checkError fails the test immediately if err is nil
func checkError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil%s", describe(msgAndArgs))
	}
}

func checkErrorIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("expected error matching %v, got %v%s", target, err, describe(msgAndArgs))
	}
}

func requireErrorIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error matching %v, got %v%s", target, err, describe(msgAndArgs))
	}
}

func checkNotErrorIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	if errors.Is(err, target) {
		t.Errorf("error %v should not match %v%s", err, target, describe(msgAndArgs))
	}
}

// checkEqual compares with reflect.DeepEqual, so pointers compare by target
func checkEqual(t *testing.T, got, want any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v%s", want, got, describe(msgAndArgs))
	}
}

func requireEqual(t *testing.T, got, want any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v%s", want, got, describe(msgAndArgs))
	}
}

func checkLen(t *testing.T, collection any, want int, msgAndArgs ...any) {
	t.Helper()
	if n, ok := lengthOf(collection); !ok || n != want {
		t.Errorf("expected length %d, got %d%s", want, n, describe(msgAndArgs))
	}
}

func requireLen(t *testing.T, collection any, want int, msgAndArgs ...any) {
	t.Helper()
	if n, ok := lengthOf(collection); !ok || n != want {
		t.Fatalf("expected length %d, got %d%s", want, n, describe(msgAndArgs))
	}
}

func checkNil(t *testing.T, v any, msgAndArgs ...any) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("expected nil, got %v%s", v, describe(msgAndArgs))
	}
}

func checkNotNil(t *testing.T, v any, msgAndArgs ...any) {
	t.Helper()
	if isNil(v) {
		t.Errorf("expected a value, got nil%s", describe(msgAndArgs))
	}
}

func requireNotNil(t *testing.T, v any, msgAndArgs ...any) {
	t.Helper()
	if isNil(v) {
		t.Fatalf("expected a value, got nil%s", describe(msgAndArgs))
	}
}

func checkFalse(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if cond {
		t.Errorf("expected false%s", describe(msgAndArgs))
	}
}

func checkZero(t *testing.T, v any, msgAndArgs ...any) {
	t.Helper()
	if v != nil && !reflect.ValueOf(v).IsZero() {
		t.Errorf("expected zero value, got %v%s", v, describe(msgAndArgs))
	}
}

func checkNotEmpty(t *testing.T, collection any, msgAndArgs ...any) {
	t.Helper()
	if n, ok := lengthOf(collection); !ok || n == 0 {
		t.Errorf("expected a non-empty value%s", describe(msgAndArgs))
	}
}

func checkPositive[T cmp.Ordered](t *testing.T, v T, msgAndArgs ...any) {
	t.Helper()
	var zero T
	if v <= zero {
		t.Errorf("expected a positive value, got %v%s", v, describe(msgAndArgs))
	}
}

func checkLess[T cmp.Ordered](t *testing.T, got, than T, msgAndArgs ...any) {
	t.Helper()
	if got >= than {
		t.Errorf("expected %v < %v%s", got, than, describe(msgAndArgs))
	}
}

// checkSame checks that got and want are the same pointer
func checkSame(t *testing.T, got, want any, msgAndArgs ...any) {
	t.Helper()
	if got != want {
		t.Errorf("expected the same pointer: want %p, got %p%s", want, got, describe(msgAndArgs))
	}
}

// waitFor polls cond every tick until it holds or timeout passes.
func waitFor(cond func() bool, timeout, tick time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(tick)
	}
}

func checkEventually(t *testing.T, cond func() bool, timeout, tick time.Duration, msgAndArgs ...any) {
	t.Helper()
	if !waitFor(cond, timeout, tick) {
		t.Errorf("condition not met within %v%s", timeout, describe(msgAndArgs))
	}
}

func requireEventually(t *testing.T, cond func() bool, timeout, tick time.Duration, msgAndArgs ...any) {
	t.Helper()
	if !waitFor(cond, timeout, tick) {
		t.Fatalf("condition not met within %v%s", timeout, describe(msgAndArgs))
	}
}
