// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestResourceExhausted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{syscall.ENOSPC, true},
		{syscall.EMFILE, true},
		{fmt.Errorf("inotify: %w", syscall.ENFILE), true},
		{syscall.EACCES, false},
		{errors.New("transient"), false},
	}
	for _, tt := range tests {
		if got := resourceExhausted(tt.err); got != tt.want {
			t.Errorf("resourceExhausted(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
