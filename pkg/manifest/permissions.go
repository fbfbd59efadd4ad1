// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"slices"
	"sync"

	"github.com/extforge/extforge/pkg/cueutil"
)

// allowedPermissions is read once from #AllowedPermissions in the embedded
// schema so the allow-list has a single source.
var allowedPermissions = sync.OnceValue(func() []string {
	perms, err := cueutil.LookupStrings(manifestSchema, "#AllowedPermissions")
	if err != nil {
		panic(err)
	}
	return perms
})

// AllowedPermissions returns a copy of the permission identifiers accepted
// in the permissions field, in schema order.
func AllowedPermissions() []string {
	return slices.Clone(allowedPermissions())
}

// IsAllowedPermission reports whether p is in the allow-list.
func IsAllowedPermission(p string) bool {
	return slices.Contains(allowedPermissions(), p)
}
