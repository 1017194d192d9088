// Package framecache is the stamp-based memoization cache: a monotonically
// increasing frameId, O(1) new-frame transitions, and a buffer map for
// materialized field buffers keyed by (fieldExprId, domainSlot, format)
// reused within a frame.
package framecache

import "github.com/brandon-fryslie/oscilla-runtime/internal/program"

// BufferKey identifies a materialized field buffer within one frame.
type BufferKey struct {
	FieldExprID int
	DomainSlot  int
	Format      program.BufferFormat
}

// FieldHandle is an opaque reference to a materialized typed buffer; the
// concrete backing array lives in package assemble/fieldmat.
type FieldHandle struct {
	Key   BufferKey
	Count int
	Data  any
}

// Cache is the Frame Cache: one entry per signal expression id and one per
// field expression id, plus the per-frame buffer map.
type Cache struct {
	frameID uint32

	sigValue []float64
	sigStamp []uint32
	sigValid []bool

	fieldHandle []FieldHandle
	fieldStamp  []uint32
	fieldValid  []bool

	buffers map[BufferKey]FieldHandle
}

// New allocates a cache sized from the program's expression tables.
// frameId starts at 1, so a zero-filled stamp array means "never cached".
func New(tables program.ExprTables) *Cache {
	return &Cache{
		frameID:     1,
		sigValue:    make([]float64, tables.SignalCount),
		sigStamp:    make([]uint32, tables.SignalCount),
		sigValid:    make([]bool, tables.SignalCount),
		fieldHandle: make([]FieldHandle, tables.FieldCount),
		fieldStamp:  make([]uint32, tables.FieldCount),
		fieldValid:  make([]bool, tables.FieldCount),
		buffers:     make(map[BufferKey]FieldHandle),
	}
}

// FrameID returns the current frame id.
func (c *Cache) FrameID() uint32 { return c.frameID }

// NewFrame advances to a new frame: increments frameId and clears the
// buffer map. Stamp arrays are intentionally left untouched (O(1)).
func (c *Cache) NewFrame() {
	c.frameID++
	clear(c.buffers)
}

// AdoptFrameID carries a prior cache's frame id into this one so the id
// stays monotonic across hot-swaps. Adopting a smaller id is a no-op.
func (c *Cache) AdoptFrameID(id uint32) {
	if id > c.frameID {
		c.frameID = id
	}
}

// Invalidate zeros every stamp (forcing a miss on next access) and clears
// the buffer map, but leaves frameId untouched — it stays monotonic.
// Used by the hot-swap engine and available to tests.
func (c *Cache) Invalidate() {
	for i := range c.sigStamp {
		c.sigStamp[i] = 0
		c.sigValid[i] = false
	}
	for i := range c.fieldStamp {
		c.fieldStamp[i] = 0
		c.fieldValid[i] = false
	}
	clear(c.buffers)
}

// SignalHit reports whether the cached value for signal id is valid for
// the current frame.
func (c *Cache) SignalHit(id int) bool {
	return id >= 0 && id < len(c.sigStamp) && c.sigValid[id] && c.sigStamp[id] == c.frameID
}

// SignalValue returns the cached value for signal id. Callers must check
// SignalHit first; this does not validate the stamp.
func (c *Cache) SignalValue(id int) float64 {
	return c.sigValue[id]
}

// StoreSignal records the evaluated value for signal id at the current
// frame.
func (c *Cache) StoreSignal(id int, value float64) {
	c.sigValue[id] = value
	c.sigStamp[id] = c.frameID
	c.sigValid[id] = true
}

// FieldHit reports whether the cached handle for field id is valid for the
// current frame.
func (c *Cache) FieldHit(id int) bool {
	return id >= 0 && id < len(c.fieldStamp) && c.fieldValid[id] && c.fieldStamp[id] == c.frameID
}

// FieldValue returns the cached handle for field id. Callers must check
// FieldHit first.
func (c *Cache) FieldValue(id int) FieldHandle {
	return c.fieldHandle[id]
}

// StoreField records the materialized handle for field id at the current
// frame.
func (c *Cache) StoreField(id int, handle FieldHandle) {
	c.fieldHandle[id] = handle
	c.fieldStamp[id] = c.frameID
	c.fieldValid[id] = true
}

// Buffer looks up a materialized buffer by key, for intra-frame reuse when
// several steps materialize the same field with the same target format
// for the same domain.
func (c *Cache) Buffer(key BufferKey) (FieldHandle, bool) {
	h, ok := c.buffers[key]
	return h, ok
}

// StoreBuffer records a materialized buffer under key for the rest of the
// current frame.
func (c *Cache) StoreBuffer(key BufferKey, handle FieldHandle) {
	c.buffers[key] = handle
}
