package data

// Cursor iterates a result set one value at a time, in the manner of
// sql.Rows: Next, Value, then Err once iteration stops. Cursors are
// single pass; issue a new read to start over.
type Cursor[T any] interface {
	// Next advances the cursor, returning false when the set is
	// exhausted or iteration failed.
	Next() bool
	// Value returns the current element. Valid only after a true Next.
	Value() T
	// Err returns the first error hit while iterating.
	Err() error
	// Close releases resources held by the cursor. It is safe to call
	// more than once.
	Close() error
}

type sliceCursor[T any] struct {
	items []T
	pos   int
}

// Slice returns a cursor over items.
func Slice[T any](items []T) Cursor[T] {
	return &sliceCursor[T]{items: items}
}

// Empty returns a cursor with no values.
func Empty[T any]() Cursor[T] {
	return &sliceCursor[T]{}
}

func (c *sliceCursor[T]) Next() bool {
	if c.pos >= len(c.items) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor[T]) Value() T     { return c.items[c.pos-1] }
func (c *sliceCursor[T]) Err() error   { return nil }
func (c *sliceCursor[T]) Close() error { return nil }

// Collect drains the cursor into a slice and closes it.
func Collect[T any](c Cursor[T]) ([]T, error) {
	defer c.Close()
	var out []T
	for c.Next() {
		out = append(out, c.Value())
	}
	return out, c.Err()
}

// Each applies fn to every value and closes the cursor. A non-nil
// error from fn stops iteration.
func Each[T any](c Cursor[T], fn func(T) error) error {
	defer c.Close()
	for c.Next() {
		if err := fn(c.Value()); err != nil {
			return err
		}
	}
	return c.Err()
}

// Count drains the cursor and closes it, returning the number of
// values it produced.
func Count[T any](c Cursor[T]) (int, error) {
	defer c.Close()
	n := 0
	for c.Next() {
		n++
	}
	return n, c.Err()
}

type filterCursor[T any] struct {
	Cursor[T]
	keep func(T) bool
}

// Filter returns a cursor yielding only the values keep accepts.
func Filter[T any](c Cursor[T], keep func(T) bool) Cursor[T] {
	return &filterCursor[T]{Cursor: c, keep: keep}
}

func (c *filterCursor[T]) Next() bool {
	for c.Cursor.Next() {
		if c.keep(c.Cursor.Value()) {
			return true
		}
	}
	return false
}

type limitCursor[T any] struct {
	Cursor[T]
	n int
}

// Limit returns a cursor yielding at most n values.
func Limit[T any](c Cursor[T], n int) Cursor[T] {
	return &limitCursor[T]{Cursor: c, n: n}
}

func (c *limitCursor[T]) Next() bool {
	if c.n <= 0 {
		return false
	}
	if !c.Cursor.Next() {
		return false
	}
	c.n--
	return true
}

type offsetCursor[T any] struct {
	Cursor[T]
	n int
}

// Offset returns a cursor skipping the first n values.
func Offset[T any](c Cursor[T], n int) Cursor[T] {
	return &offsetCursor[T]{Cursor: c, n: n}
}

func (c *offsetCursor[T]) Next() bool {
	for c.n > 0 {
		if !c.Cursor.Next() {
			return false
		}
		c.n--
	}
	return c.Cursor.Next()
}
