// Package statebuffer holds the cross-frame persistent cells: three banks
// (f64, f32, i32) sized by the compiled layout, addressed by (storage,
// offset, size), surviving frame boundaries and hot-swap when the stable
// key matches.
package statebuffer

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
)

// Buffer holds the three numeric banks backing every state cell in a
// compiled program.
type Buffer struct {
	cells map[program.StableKey]program.StateCellMeta
	f64   []float64
	f32   []float32
	i32   []int32
}

// New allocates a buffer from the compiled cell layout, initializing each
// cell's elements from its const-pool default or zero.
func New(cells []program.StateCellMeta, pool *constpool.Pool) (*Buffer, error) {
	b := &Buffer{cells: make(map[program.StableKey]program.StateCellMeta, len(cells))}
	var f64n, f32n, i32n int
	for _, c := range cells {
		b.cells[c.Key] = c
		switch c.Storage {
		case program.StorageF64:
			f64n = maxInt(f64n, c.Offset+c.Size)
		case program.StorageF32:
			f32n = maxInt(f32n, c.Offset+c.Size)
		case program.StorageI32:
			i32n = maxInt(i32n, c.Offset+c.Size)
		default:
			return nil, fmt.Errorf("state buffer: cell %+v uses unsupported storage %s", c.Key, c.Storage)
		}
	}
	b.f64 = make([]float64, f64n)
	b.f32 = make([]float32, f32n)
	b.i32 = make([]int32, i32n)

	for _, c := range cells {
		if err := b.initCell(c, pool); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (b *Buffer) initCell(c program.StateCellMeta, pool *constpool.Pool) error {
	if c.InitialConstID == nil {
		return nil // zero value already in place
	}
	switch c.Storage {
	case program.StorageF64:
		v, err := pool.F64(*c.InitialConstID)
		if err != nil {
			return err
		}
		for i := 0; i < c.Size; i++ {
			b.f64[c.Offset+i] = v
		}
	case program.StorageF32:
		v, err := pool.F32(*c.InitialConstID)
		if err != nil {
			return err
		}
		for i := 0; i < c.Size; i++ {
			b.f32[c.Offset+i] = v
		}
	case program.StorageI32:
		v, err := pool.I32(*c.InitialConstID)
		if err != nil {
			return err
		}
		for i := 0; i < c.Size; i++ {
			b.i32[c.Offset+i] = v
		}
	}
	return nil
}

// ReadF64 returns element i of the f64 cell identified by key.
func (b *Buffer) ReadF64(key program.StableKey, i int) (float64, error) {
	c, err := b.cellFor(key, program.StorageF64, i)
	if err != nil {
		return 0, err
	}
	return b.f64[c.Offset+i], nil
}

// WriteF64 sets element i of the f64 cell identified by key.
func (b *Buffer) WriteF64(key program.StableKey, i int, v float64) error {
	c, err := b.cellFor(key, program.StorageF64, i)
	if err != nil {
		return err
	}
	b.f64[c.Offset+i] = v
	return nil
}

// ReadF32 returns element i of the f32 cell identified by key.
func (b *Buffer) ReadF32(key program.StableKey, i int) (float32, error) {
	c, err := b.cellFor(key, program.StorageF32, i)
	if err != nil {
		return 0, err
	}
	return b.f32[c.Offset+i], nil
}

// WriteF32 sets element i of the f32 cell identified by key.
func (b *Buffer) WriteF32(key program.StableKey, i int, v float32) error {
	c, err := b.cellFor(key, program.StorageF32, i)
	if err != nil {
		return err
	}
	b.f32[c.Offset+i] = v
	return nil
}

// ReadI32 returns element i of the i32 cell identified by key.
func (b *Buffer) ReadI32(key program.StableKey, i int) (int32, error) {
	c, err := b.cellFor(key, program.StorageI32, i)
	if err != nil {
		return 0, err
	}
	return b.i32[c.Offset+i], nil
}

// WriteI32 sets element i of the i32 cell identified by key.
func (b *Buffer) WriteI32(key program.StableKey, i int, v int32) error {
	c, err := b.cellFor(key, program.StorageI32, i)
	if err != nil {
		return err
	}
	b.i32[c.Offset+i] = v
	return nil
}

func (b *Buffer) cellFor(key program.StableKey, storage program.StorageClass, i int) (program.StateCellMeta, error) {
	c, ok := b.cells[key]
	if !ok {
		return program.StateCellMeta{}, fmt.Errorf("state buffer: unknown cell %+v", key)
	}
	if c.Storage != storage {
		return program.StateCellMeta{}, fmt.Errorf("state buffer: cell %+v storage mismatch", key)
	}
	if i < 0 || i >= c.Size {
		return program.StateCellMeta{}, fmt.Errorf("state buffer: cell %+v index %d out of range [0,%d)", key, i, c.Size)
	}
	return c, nil
}

// Cells exposes the cell metadata map for hot-swap preservation.
func (b *Buffer) Cells() map[program.StableKey]program.StateCellMeta {
	return b.cells
}

// CopyCellFrom copies size elements of a matching-storage, matching-size
// cell from src into b at the same key — used by the Hot-Swap Engine when
// (key, storage, size) match between the old and new layouts.
func CopyCellFrom(dst, src *Buffer, key program.StableKey) (bool, error) {
	dstCell, ok := dst.cells[key]
	if !ok {
		return false, nil
	}
	srcCell, ok := src.cells[key]
	if !ok || srcCell.Storage != dstCell.Storage || srcCell.Size != dstCell.Size {
		return false, nil
	}
	switch dstCell.Storage {
	case program.StorageF64:
		copy(dst.f64[dstCell.Offset:dstCell.Offset+dstCell.Size], src.f64[srcCell.Offset:srcCell.Offset+srcCell.Size])
	case program.StorageF32:
		copy(dst.f32[dstCell.Offset:dstCell.Offset+dstCell.Size], src.f32[srcCell.Offset:srcCell.Offset+srcCell.Size])
	case program.StorageI32:
		copy(dst.i32[dstCell.Offset:dstCell.Offset+dstCell.Size], src.i32[srcCell.Offset:srcCell.Offset+srcCell.Size])
	default:
		return false, fmt.Errorf("state buffer: unsupported storage %s", dstCell.Storage)
	}
	return true, nil
}
