// Package jeo is a lightweight geospatial data-access toolkit: a
// feature and schema model, dataset and tile pyramid contracts, and
// format adapters for GeoJSON, FlatGeobuf and PostgreSQL tile tables.
package jeo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrVersion is returned for version strings that do not parse.
var ErrVersion = errors.New("jeo: invalid version")

// Version is a semantic major.minor.patch version.
type Version struct {
	Major, Minor, Patch int
}

// Lib is the version of this library.
var Lib = Version{0, 7, 0}

// ParseVersion parses "1.2.3", "1.2" or "1". Missing parts default to
// zero.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrVersion, s)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}

// Compare orders two versions, returning -1, 0 or 1.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		return cmp(v.Major, o.Major)
	}
	if v.Minor != o.Minor {
		return cmp(v.Minor, o.Minor)
	}
	return cmp(v.Patch, o.Patch)
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether two versions are the same.
func (v Version) Equal(o Version) bool { return v == o }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
