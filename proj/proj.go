// Package proj identifies coordinate reference systems and moves
// geometries between the two systems web mapping runs on, lon/lat
// WGS 84 and spherical web mercator. The projection math itself is
// delegated to orb/project.
package proj

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Common errors returned by this package.
var (
	ErrUnknownCRS           = errors.New("proj: unknown crs")
	ErrUnsupportedTransform = errors.New("proj: unsupported transform")
)

// CRS identifies a coordinate reference system.
type CRS struct {
	Code int    // EPSG code (e.g., 4326 for WGS84)
	Name string // CRS name
	WKT  string // Well-Known Text representation, when known
}

// WGS84 returns the geographic lon/lat CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{Code: 4326, Name: "WGS 84"}
}

// WebMercator returns the spherical mercator CRS used by web maps (EPSG:3857).
func WebMercator() *CRS {
	return &CRS{Code: 3857, Name: "WGS 84 / Pseudo-Mercator"}
}

// Parse resolves a reference like "EPSG:4326" or a bare code like "4326".
func Parse(s string) (*CRS, error) {
	code := strings.TrimSpace(s)
	if i := strings.IndexByte(code, ':'); i >= 0 {
		if !strings.EqualFold(code[:i], "EPSG") {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, s)
		}
		code = code[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, s)
	}
	switch n {
	case 4326:
		return WGS84(), nil
	case 3857:
		return WebMercator(), nil
	}
	return &CRS{Code: n}, nil
}

// String returns the authority form, e.g. "EPSG:4326".
func (c *CRS) String() string {
	if c == nil {
		return ""
	}
	if c.Code > 0 {
		return fmt.Sprintf("EPSG:%d", c.Code)
	}
	return c.Name
}

// Equal reports whether two references name the same system. A nil
// reference equals only another nil.
func (c *CRS) Equal(o *CRS) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Code > 0 || o.Code > 0 {
		return c.Code == o.Code
	}
	return c.Name == o.Name
}

// IsGeographic reports whether coordinates are lon/lat degrees.
func (c *CRS) IsGeographic() bool {
	return c != nil && c.Code == 4326
}

// ToMercator projects a WGS84 geometry to web mercator. The input is
// left untouched.
func ToMercator(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// ToWGS84 projects a web mercator geometry back to lon/lat. The input
// is left untouched.
func ToWGS84(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84)
}

// BoundToMercator projects a WGS84 bound to web mercator.
func BoundToMercator(b orb.Bound) orb.Bound {
	return project.Bound(b, project.WGS84.ToMercator)
}

// BoundToWGS84 projects a web mercator bound back to lon/lat.
func BoundToWGS84(b orb.Bound) orb.Bound {
	return project.Bound(b, project.Mercator.ToWGS84)
}

// Transform projects a geometry between two known systems. Only the
// WGS84 / web mercator pair is supported.
func Transform(g orb.Geometry, from, to *CRS) (orb.Geometry, error) {
	switch {
	case from.Equal(to):
		return g, nil
	case from.Equal(WGS84()) && to.Equal(WebMercator()):
		return ToMercator(g), nil
	case from.Equal(WebMercator()) && to.Equal(WGS84()):
		return ToWGS84(g), nil
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedTransform, from, to)
}
