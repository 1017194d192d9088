// Package constpool holds the compile-time immutable values a program
// carries: four parallel stores (json/f64/f32/i32) indexed by constId.
// The json bank is backed by structpb — no codegen required, and it gives
// the runtime a real typed container for compiler-emitted JSON blobs
// (batch descriptor lists, lens configuration) instead of a bare `any`.
package constpool

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Pool is the immutable const pool for one compiled program.
type Pool struct {
	json []*structpb.Value
	f64  []float64
	f32  []float32
	i32  []int32
}

// New constructs a pool from the compiler-emitted banks. The slices are
// retained, not copied — the pool is immutable for the program's lifetime.
func New(json []*structpb.Value, f64 []float64, f32 []float32, i32 []int32) *Pool {
	return &Pool{json: json, f64: f64, f32: f32, i32: i32}
}

// JSON returns the json-bank constant at localIdx.
func (p *Pool) JSON(localIdx int) (*structpb.Value, error) {
	if p == nil || localIdx < 0 || localIdx >= len(p.json) {
		return nil, fmt.Errorf("const pool: json index %d out of range", localIdx)
	}
	return p.json[localIdx], nil
}

// F64 returns the f64-bank constant at localIdx.
func (p *Pool) F64(localIdx int) (float64, error) {
	if p == nil || localIdx < 0 || localIdx >= len(p.f64) {
		return 0, fmt.Errorf("const pool: f64 index %d out of range", localIdx)
	}
	return p.f64[localIdx], nil
}

// F32 returns the f32-bank constant at localIdx.
func (p *Pool) F32(localIdx int) (float32, error) {
	if p == nil || localIdx < 0 || localIdx >= len(p.f32) {
		return 0, fmt.Errorf("const pool: f32 index %d out of range", localIdx)
	}
	return p.f32[localIdx], nil
}

// I32 returns the i32-bank constant at localIdx.
func (p *Pool) I32(localIdx int) (int32, error) {
	if p == nil || localIdx < 0 || localIdx >= len(p.i32) {
		return 0, fmt.Errorf("const pool: i32 index %d out of range", localIdx)
	}
	return p.i32[localIdx], nil
}
