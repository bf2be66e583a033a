package main

import (
	"errors"
	"testing"
)

func TestExitCodeForCodedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("boom"), 1},
		{"config error", configErr(errors.New("bad config")), 2},
		{"migration error", migrationErr(errors.New("bad migration")), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCodeFor(tc.err); got != tc.want {
				t.Fatalf("exitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestCodedErrorUnwraps(t *testing.T) {
	inner := errors.New("db unreachable")
	wrapped := migrationErr(inner)
	if !errors.Is(wrapped, inner) {
		t.Fatalf("expected wrapped error to unwrap to inner error")
	}
}
