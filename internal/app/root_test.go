package app

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Nil", nil, 0},
		{"PartialFailure", &exitError{code: 1}, 1},
		{"AllFailure", &exitError{code: 2}, 2},
		{"WrappedExitError", fmt.Errorf("apply: %w", &exitError{code: 2}), 2},
		{"PlainError", fmt.Errorf("config unreadable"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
