// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 codes: too many open files, invalid handle, not enough memory.
var exhaustedErrnos = []syscall.Errno{4, 6, 8}

// resourceExhausted reports ReadDirectoryChangesW failures the watcher
// cannot recover from.
func resourceExhausted(err error) bool {
	for _, errno := range exhaustedErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
