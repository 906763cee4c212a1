// Package perm defines the capability bitmask shared between the
// permission tables and the registry services. The mask is stored as a
// plain integer; the bit-to-capability mapping below is the external
// contract with the calling layer and must not be renumbered without a
// data migration.
package perm

import (
	"errors"
	"fmt"
	"strings"
)

// Permission is a set of capability flags combined with bitwise OR.
type Permission int32

const (
	// Read allows seeing a crate and downloading its versions.
	Read Permission = 1 << iota
	// PublishVersion allows publishing new versions of a crate.
	PublishVersion
	// YankVersion allows yanking and unyanking versions.
	YankVersion
	// ManagePermissions allows granting and revoking permissions for
	// other users on the target.
	ManagePermissions
	// ManageCrateMetadata allows editing a crate's descriptive metadata.
	ManageCrateMetadata
	// ManageOrganisation allows administrative actions on the
	// organisation itself.
	ManageOrganisation

	// None is the zero mask: no access.
	None Permission = 0
)

var names = []struct {
	bit  Permission
	name string
}{
	{Read, "read"},
	{PublishVersion, "publish-version"},
	{YankVersion, "yank-version"},
	{ManagePermissions, "manage-permissions"},
	{ManageCrateMetadata, "manage-crate-metadata"},
	{ManageOrganisation, "manage-organisation"},
}

// ErrUnknownPermission is returned when parsing an unrecognised
// permission name.
var ErrUnknownPermission = errors.New("unknown permission")

// All returns the mask with every defined capability set.
func All() Permission {
	mask := None
	for _, n := range names {
		mask |= n.bit
	}

	return mask
}

// Has reports whether every bit of cap is set in p.
func (p Permission) Has(capability Permission) bool {
	return p&capability == capability
}

// Names returns the names of the capabilities set in p.
func (p Permission) Names() []string {
	var out []string
	for _, n := range names {
		if p.Has(n.bit) {
			out = append(out, n.name)
		}
	}

	return out
}

func (p Permission) String() string {
	if p == None {
		return "none"
	}

	return strings.Join(p.Names(), ",")
}

// AllNames returns every defined capability name, in bit order.
func AllNames() []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.name)
	}

	return out
}

// FromNames builds a mask from capability names.
func FromNames(requested []string) (Permission, error) {
	mask := None

outer:
	for _, want := range requested {
		for _, n := range names {
			if n.name == want {
				mask |= n.bit

				continue outer
			}
		}

		return None, fmt.Errorf("%w: %q", ErrUnknownPermission, want)
	}

	return mask, nil
}
