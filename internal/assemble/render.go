// Package assemble is the materialize/project/assemble pipeline: the path
// from per-element fields to the renderer-ready RenderFrame value.
//
// RenderFrame and its batches are typed-array snapshots handed to the
// host; the renderer borrows them for the current frame and must not
// retain or mutate them.
package assemble

import (
	"math"

	"github.com/brandon-fryslie/oscilla-runtime/internal/fieldmat"
)

// Opcode constants for path commands, encoded as u16.
const (
	OpMoveTo    uint16 = 0
	OpLineTo    uint16 = 1
	OpQuadTo    uint16 = 2
	OpCubicTo   uint16 = 3
	OpClosePath uint16 = 4
)

// ClearMode selects whether a RenderFrame clears to a color or not at all.
type ClearMode int

const (
	ClearNone ClearMode = iota
	ClearColor
)

// Clear describes the frame's clear behavior.
type Clear struct {
	Mode      ClearMode
	ColorRGBA uint32
}

// InstanceBatch2D is a renderer-ready batch of 2D instances.
type InstanceBatch2D struct {
	X, Y       []float32
	R, G, B, A []uint8
	Size       []float32
	Z          []float32
	Alive      []uint8
}

// PathBatch2D is a renderer-ready batch of vector paths.
type PathBatch2D struct {
	Cmds       []uint16
	Params     []float32
	CmdStart   []uint32
	CmdLen     []uint32
	PointStart []uint32
	PointLen   []uint32
}

// PassKind discriminates the RenderFrame pass tagged union.
type PassKind int

const (
	PassInstances2D PassKind = iota
	PassPaths2D
)

// Pass is one render pass; exactly one of Instances/Paths is populated,
// selected by Kind.
type Pass struct {
	Kind      PassKind
	Instances *InstanceBatch2D
	Paths     *PathBatch2D
}

// Perf carries optional per-frame counters.
type Perf struct {
	Instances2D int
	PathCmds    int
	NaNCulled   int
	InfCulled   int
}

// RenderFrame is the versioned container the adapter hands to the host.
type RenderFrame struct {
	Version int
	Clear   Clear
	Passes  []Pass
	Perf    Perf
}

// MaterializeInstances reads per-channel field buffers for a domain of
// count N and assembles an InstanceBatch2D.
func MaterializeInstances(count int, x, y, r, g, b, a, size, z, alive *fieldmat.Buffer) *InstanceBatch2D {
	batch := &InstanceBatch2D{
		X: f32Slice(x, count),
		Y: f32Slice(y, count),
		R: u8Slice(r, count),
		G: u8Slice(g, count),
		B: u8Slice(b, count),
		A: u8Slice(a, count),
	}
	if size != nil {
		batch.Size = f32Slice(size, count)
	}
	if z != nil {
		batch.Z = f32Slice(z, count)
	}
	if alive != nil {
		batch.Alive = u8Slice(alive, count)
	}
	return batch
}

func f32Slice(b *fieldmat.Buffer, count int) []float32 {
	if b == nil {
		return make([]float32, count)
	}
	if b.F32 != nil {
		return b.F32
	}
	out := make([]float32, count)
	for i := range out {
		if b.U8 != nil && i < len(b.U8) {
			out[i] = float32(b.U8[i])
		}
	}
	return out
}

func u8Slice(b *fieldmat.Buffer, count int) []uint8 {
	if b == nil {
		out := make([]uint8, count)
		for i := range out {
			out[i] = 255
		}
		return out
	}
	if b.U8 != nil {
		return b.U8
	}
	out := make([]uint8, count)
	for i := range out {
		if b.F32 != nil && i < len(b.F32) {
			out[i] = clampU8(b.F32[i])
		}
	}
	return out
}

func clampU8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// MaterializeColor reads four per-element channel fields and writes the
// separate u8 channel arrays.
func MaterializeColor(count int, r, g, b, a *fieldmat.Buffer) (red, green, blue, alpha []uint8) {
	return u8Slice(r, count), u8Slice(g, count), u8Slice(b, count), u8Slice(a, count)
}

// PathCommand describes one authored path command in float-pair point
// space, prior to opcode encoding.
type PathCommand struct {
	Op     uint16
	Points [][2]float32
}

// MaterializePath encodes a sequence of per-path command lists into the
// flat cmds/params + index arrays the renderer consumes.
func MaterializePath(paths [][]PathCommand) *PathBatch2D {
	batch := &PathBatch2D{}
	for _, path := range paths {
		cmdStart := uint32(len(batch.Cmds))
		pointStart := uint32(len(batch.Params)) / 2
		for _, cmd := range path {
			batch.Cmds = append(batch.Cmds, cmd.Op)
			for _, pt := range cmd.Points {
				batch.Params = append(batch.Params, pt[0], pt[1])
			}
		}
		batch.CmdStart = append(batch.CmdStart, cmdStart)
		batch.CmdLen = append(batch.CmdLen, uint32(len(batch.Cmds))-cmdStart)
		batch.PointStart = append(batch.PointStart, pointStart)
		batch.PointLen = append(batch.PointLen, uint32(len(batch.Params))/2-pointStart)
	}
	return batch
}

// Mat4 is a 4x4 matrix in row-major order, used for the camera's
// view-projection transform. All arithmetic in the projector is 32-bit
// float so repeated runs are bit-for-bit deterministic.
type Mat4 [16]float32

// MulVec4 multiplies the matrix by a homogeneous vector.
func (m Mat4) MulVec4(x, y, z, w float32) (rx, ry, rz, rw float32) {
	rx = m[0]*x + m[1]*y + m[2]*z + m[3]*w
	ry = m[4]*x + m[5]*y + m[6]*z + m[7]*w
	rz = m[8]*x + m[9]*y + m[10]*z + m[11]*w
	rw = m[12]*x + m[13]*y + m[14]*z + m[15]*w
	return
}

// Camera holds the precomputed view-projection matrix and viewport used by
// Project3DTo2D.
type Camera struct {
	ViewProjection Mat4
	ViewportW      float32
	ViewportH      float32
}

// CullMode selects whether off-frustum elements are skipped.
type CullMode int

const (
	CullNone CullMode = iota
	CullFrustum
)

// ClipMode selects whether clip-space overflow is discarded or clamped.
type ClipMode int

const (
	ClipDiscard ClipMode = iota
	ClipClamp
)

// Element3D is one element's position input to the projector. The
// compiled program's Project3DSpec also names rotation and scale slots,
// but they are not carried here: this projector consumes position only.
type Element3D struct {
	Index   int
	X, Y, Z float32
}

// ProjectResult is the output of Project3DTo2D: a 2D instance batch plus
// anomaly counters.
type ProjectResult struct {
	Batch    *InstanceBatch2D
	NaNCount int
	InfCount int
}

// Project3DTo2D projects a domain of 3D elements to 2D screen space,
// applying cull/clip modes and an optional depth sort for painter's order.
// Non-finite positions increment counters and are culled.
func Project3DTo2D(elements []Element3D, cam Camera, cull CullMode, clip ClipMode, sortByDepth bool) ProjectResult {
	type projected struct {
		idx         int
		x, y, depth float32
		keep        bool
	}
	out := make([]projected, 0, len(elements))
	result := ProjectResult{}

	for _, e := range elements {
		if isNaN32(e.X) || isNaN32(e.Y) || isNaN32(e.Z) {
			result.NaNCount++
			continue
		}
		if isInf32(e.X) || isInf32(e.Y) || isInf32(e.Z) {
			result.InfCount++
			continue
		}

		cx, cy, cz, cw := cam.ViewProjection.MulVec4(e.X, e.Y, e.Z, 1)
		if cw == 0 {
			continue
		}
		ndcX := cx / cw
		ndcY := cy / cw
		ndcZ := cz / cw

		if cull == CullFrustum {
			if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 || ndcZ < -1 || ndcZ > 1 {
				continue
			}
		}
		if clip == ClipClamp {
			ndcX = clamp32(ndcX, -1, 1)
			ndcY = clamp32(ndcY, -1, 1)
		}

		// NDC [-1,1] → screen, origin at center, Y down.
		screenX := (ndcX + 1) * 0.5 * cam.ViewportW
		screenY := (1 - (ndcY+1)*0.5) * cam.ViewportH

		out = append(out, projected{idx: e.Index, x: screenX, y: screenY, depth: ndcZ, keep: true})
	}

	if sortByDepth {
		// Stable sort by depth, elementIndex as tie-break, for painter's order.
		for i := 1; i < len(out); i++ {
			for j := i; j > 0 && (out[j].depth < out[j-1].depth || (out[j].depth == out[j-1].depth && out[j].idx < out[j-1].idx)); j-- {
				out[j], out[j-1] = out[j-1], out[j]
			}
		}
	}

	n := len(out)
	batch := &InstanceBatch2D{
		X: make([]float32, n), Y: make([]float32, n),
		R: make([]uint8, n), G: make([]uint8, n), B: make([]uint8, n), A: make([]uint8, n),
		Z: make([]float32, n),
	}
	for i, p := range out {
		batch.X[i] = p.x
		batch.Y[i] = p.y
		batch.Z[i] = p.depth
		batch.R[i], batch.G[i], batch.B[i], batch.A[i] = 255, 255, 255, 255
	}
	result.Batch = batch
	return result
}

func isNaN32(f float32) bool { return math.IsNaN(float64(f)) }
func isInf32(f float32) bool { return math.IsInf(float64(f), 0) }
func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Assemble gathers prior batches into the terminal RenderFrame value —
// the stable hand-off point for hot-swap.
func Assemble(clear Clear, instanceBatches []*InstanceBatch2D, pathBatches []*PathBatch2D) RenderFrame {
	frame := RenderFrame{Version: 1, Clear: clear}
	for _, b := range instanceBatches {
		if b == nil {
			continue
		}
		frame.Passes = append(frame.Passes, Pass{Kind: PassInstances2D, Instances: b})
		frame.Perf.Instances2D += len(b.X)
	}
	for _, p := range pathBatches {
		if p == nil {
			continue
		}
		frame.Passes = append(frame.Passes, Pass{Kind: PassPaths2D, Paths: p})
		frame.Perf.PathCmds += len(p.Cmds)
	}
	return frame
}
