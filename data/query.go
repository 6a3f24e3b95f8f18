package data

import (
	"github.com/paulmach/orb"

	"github.com/hjanetzek/jeo/feature"
)

// Query narrows a feature read. The zero value (or a nil *Query)
// matches everything. Setters return the query so constraints chain.
type Query struct {
	bounds *orb.Bound
	filter func(*feature.Feature) bool
	limit  int
	offset int
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Within keeps only features whose geometry intersects b.
func (q *Query) Within(b orb.Bound) *Query {
	q.bounds = &b
	return q
}

// Where keeps only features fn accepts.
func (q *Query) Where(fn func(*feature.Feature) bool) *Query {
	q.filter = fn
	return q
}

// Limit caps the number of features returned. Zero or negative means
// no cap.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips the first n matching features.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// Bounds reports the spatial window, if one was set. Datasets with a
// spatial index can push it into the index lookup.
func (q *Query) Bounds() (orb.Bound, bool) {
	if q == nil || q.bounds == nil {
		return orb.Bound{}, false
	}
	return *q.bounds, true
}

// Matches reports whether f passes the bounds and filter constraints.
// Limit and offset are iteration concerns and play no part here.
func (q *Query) Matches(f *feature.Feature) bool {
	if q == nil {
		return true
	}
	if q.bounds != nil {
		g := f.Geometry()
		if g == nil || !q.bounds.Intersects(g.Bound()) {
			return false
		}
	}
	if q.filter != nil && !q.filter(f) {
		return false
	}
	return true
}

// Apply wraps c so it honors every constraint of the query, in the
// order filter, offset, limit.
func (q *Query) Apply(c Cursor[*feature.Feature]) Cursor[*feature.Feature] {
	if q == nil {
		return c
	}
	if q.bounds != nil || q.filter != nil {
		c = Filter(c, q.Matches)
	}
	if q.offset > 0 {
		c = Offset(c, q.offset)
	}
	if q.limit > 0 {
		c = Limit(c, q.limit)
	}
	return c
}
