// Package executor runs a compiled program's schedule: one pass over the
// totally-ordered step list per frame, dispatching each step's tagged-union
// kind against the runtime's memory stores (Value Store, State Buffer,
// Event Store, Frame Cache, Const Pool, Time State, Debug Probe) and
// producing a RenderFrame.
package executor

import (
	"fmt"

	"github.com/brandon-fryslie/oscilla-runtime/internal/assemble"
	"github.com/brandon-fryslie/oscilla-runtime/internal/bus"
	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/eventstore"
	"github.com/brandon-fryslie/oscilla-runtime/internal/fieldmat"
	"github.com/brandon-fryslie/oscilla-runtime/internal/framecache"
	"github.com/brandon-fryslie/oscilla-runtime/internal/probe"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/signaleval"
	"github.com/brandon-fryslie/oscilla-runtime/internal/statebuffer"
	"github.com/brandon-fryslie/oscilla-runtime/internal/timeresolve"
	"github.com/brandon-fryslie/oscilla-runtime/internal/valuestore"
)

// The instance/mesh materialize steps request fixed per-channel formats
// from the Field Materializer; the compiled program does not vary channel
// format per element.
var f32Format = program.BufferFormatF32
var u8Format = program.BufferFormatU8

// OpFunc is a stateful node opcode: given its already-resolved input values
// and params, it returns output values, optionally reading/writing one state
// cell addressed by key (nil if the opcode is stateless).
type OpFunc func(ins []float64, params map[string]float64, state *statebuffer.Buffer, key *program.StableKey, deltaMs float64) ([]float64, error)

// PathFieldFunc produces the authored command list for one path index in a
// materializePath step. Path generation is per-path-shaped (variable-length
// command lists), unlike the per-element scalar shape the Field Materializer
// is built around, so it lives in its own registry rather than as a
// fieldmat.Node recipe.
type PathFieldFunc func(pathIndex int, env fieldmat.Env) ([]assemble.PathCommand, error)

// Registries bundles the compiled program's side-tables that carry Go
// closures or otherwise can't be expressed as plain data on program.Program:
// signal expressions, field recipes/lenses, node opcodes and path
// generators. A real compiler would emit these alongside the data-only
// Program; here they're supplied by whoever builds the Program (see
// cmd/oscilla-runtime).
type Registries struct {
	SignalExprs []signaleval.Expr
	Fields      map[int]fieldmat.Node
	NodeOps     map[string]OpFunc
	PathFields  map[int]PathFieldFunc
}

// DefaultNodeOps returns the built-in arithmetic and stateful opcodes every
// program can rely on.
func DefaultNodeOps() map[string]OpFunc {
	return map[string]OpFunc{
		"add": func(ins []float64, _ map[string]float64, _ *statebuffer.Buffer, _ *program.StableKey, _ float64) ([]float64, error) {
			if len(ins) != 2 {
				return nil, fmt.Errorf("executor: add expects 2 inputs, got %d", len(ins))
			}
			return []float64{ins[0] + ins[1]}, nil
		},
		"sub": func(ins []float64, _ map[string]float64, _ *statebuffer.Buffer, _ *program.StableKey, _ float64) ([]float64, error) {
			if len(ins) != 2 {
				return nil, fmt.Errorf("executor: sub expects 2 inputs, got %d", len(ins))
			}
			return []float64{ins[0] - ins[1]}, nil
		},
		"mul": func(ins []float64, _ map[string]float64, _ *statebuffer.Buffer, _ *program.StableKey, _ float64) ([]float64, error) {
			if len(ins) != 2 {
				return nil, fmt.Errorf("executor: mul expects 2 inputs, got %d", len(ins))
			}
			return []float64{ins[0] * ins[1]}, nil
		},
		"div": func(ins []float64, _ map[string]float64, _ *statebuffer.Buffer, _ *program.StableKey, _ float64) ([]float64, error) {
			if len(ins) != 2 {
				return nil, fmt.Errorf("executor: div expects 2 inputs, got %d", len(ins))
			}
			return []float64{ins[0] / ins[1]}, nil
		},
		"neg": func(ins []float64, _ map[string]float64, _ *statebuffer.Buffer, _ *program.StableKey, _ float64) ([]float64, error) {
			if len(ins) != 1 {
				return nil, fmt.Errorf("executor: neg expects 1 input, got %d", len(ins))
			}
			return []float64{-ins[0]}, nil
		},
		// integrate accumulates ins[0] (a rate) over deltaMs into a single f64
		// state cell, forward-Euler.
		"integrate": func(ins []float64, _ map[string]float64, state *statebuffer.Buffer, key *program.StableKey, deltaMs float64) ([]float64, error) {
			if len(ins) != 1 || key == nil {
				return nil, fmt.Errorf("executor: integrate expects 1 input and a state key")
			}
			prev, err := state.ReadF64(*key, 0)
			if err != nil {
				return nil, err
			}
			next := prev + ins[0]*deltaMs
			if err := state.WriteF64(*key, 0, next); err != nil {
				return nil, err
			}
			return []float64{next}, nil
		},
		// delay1 returns the previous frame's input, a one-frame unit delay.
		"delay1": func(ins []float64, _ map[string]float64, state *statebuffer.Buffer, key *program.StableKey, _ float64) ([]float64, error) {
			if len(ins) != 1 || key == nil {
				return nil, fmt.Errorf("executor: delay1 expects 1 input and a state key")
			}
			prev, err := state.ReadF64(*key, 0)
			if err != nil {
				return nil, err
			}
			if err := state.WriteF64(*key, 0, ins[0]); err != nil {
				return nil, err
			}
			return []float64{prev}, nil
		},
	}
}

// Runtime bundles one compiled program's live, per-instance memory: the
// stores, plus the two stateless-but-cache-backed evaluators built over
// them.
type Runtime struct {
	Values     *valuestore.Store
	State      *statebuffer.Buffer
	Events     *eventstore.Store
	Cache      *framecache.Cache
	ConstPool  *constpool.Pool
	SignalEval *signaleval.Evaluator
	FieldMat   *fieldmat.Materializer
	Probes     *probe.Store

	Time         timeresolve.State
	LastTime     signaleval.TimeValues
	LastIsScrub  bool
	FrameCounter uint64

	// ProjAnomalies accumulates Project3DTo2D NaN/Inf counters across the
	// frame; ExecuteFrame copies them to the returned RenderFrame's
	// Perf.NaNCulled/InfCulled rather than failing the frame.
	ProjAnomalies struct {
		NaNCount int
		InfCount int
	}
}

// Allocate constructs a fresh Runtime for prog at program load: installs
// the compiler's initial slot values, sizes the state cells from const-pool
// defaults, and wires the signal/field evaluators to their registries.
func Allocate(prog *program.Program, pool *constpool.Pool, regs Registries) (*Runtime, error) {
	vs := valuestore.New(prog.Slots)
	if err := vs.InstallInitial(prog.InitialSlotValues); err != nil {
		return nil, err
	}
	sb, err := statebuffer.New(prog.StateCells, pool)
	if err != nil {
		return nil, err
	}
	cache := framecache.New(prog.ExprTables)
	return &Runtime{
		Values:     vs,
		State:      sb,
		Events:     eventstore.New(),
		Cache:      cache,
		ConstPool:  pool,
		SignalEval: signaleval.New(regs.SignalExprs),
		FieldMat:   fieldmat.New(cache),
		Probes:     probe.New(),
	}, nil
}

// Executor holds the logic needed to run one compiled program's schedule:
// the Time Resolver configuration and the opcode/field/path registries.
// Distinct from Runtime because it carries no per-frame mutable state of its
// own (besides what it reaches into Runtime for) and can be shared across
// Allocate calls for the same program.
type Executor struct {
	Resolver *timeresolve.Resolver
	Regs     Registries
}

// NewExecutor builds an Executor for prog, deriving the Time Resolver's
// wiring from the program's designated time slots.
func NewExecutor(prog *program.Program, regs Registries) *Executor {
	r := &timeresolve.Resolver{
		Model: prog.TimeModel,
		Slots: prog.TimeSlots,
	}
	if prog.TimeSlots.WrapEvent != nil {
		r.HasWrapSlot = true
		r.WrapSlot = *prog.TimeSlots.WrapEvent
	}
	return &Executor{Resolver: r, Regs: regs}
}

// ExecuteFrame runs one complete frame: clears per-frame state, walks the
// schedule in order dispatching every step, and returns the RenderFrame
// read back from the program's designated output slot.
func (ex *Executor) ExecuteFrame(prog *program.Program, rt *Runtime, tAbsMs float64, mode timeresolve.Mode) (assemble.RenderFrame, error) {
	rt.Values.ClearFrame()
	rt.Events.Reset()
	rt.Cache.NewFrame()
	rt.FrameCounter++
	rt.ProjAnomalies.NaNCount = 0
	rt.ProjAnomalies.InfCount = 0

	var frame assemble.RenderFrame
	var frameAssembled bool

	for _, step := range prog.Schedule.Steps {
		switch step.Kind {
		case program.StepTimeDerive:
			if err := rt.Values.Write(prog.TimeSlots.TAbsMs, valuestore.F64Value(tAbsMs)); err != nil {
				return frame, err
			}
			res, err := ex.Resolver.Resolve(rt.Values, rt.Events, &rt.Time, tAbsMs, mode)
			if err != nil {
				return frame, err
			}
			rt.LastTime = signaleval.TimeValues{
				TAbsMs:     tAbsMs,
				TModelMs:   res.TModelMs,
				Phase01:    derefOr0(res.Phase01),
				Progress01: derefOr0(res.Progress01),
			}
			rt.LastIsScrub = res.IsScrub

		case program.StepSignalEval:
			env := signaleval.Env{Cache: rt.Cache, ConstPool: rt.ConstPool, Slots: rt.Values, Time: rt.LastTime}
			for _, out := range step.SignalOutputs {
				v, err := rt.SignalEval.Eval(out.SigID, env)
				if err != nil {
					return frame, err
				}
				if err := rt.Values.Write(out.Slot, valuestore.F64Value(v)); err != nil {
					return frame, err
				}
			}

		case program.StepNodeEval:
			if err := ex.execNodeEval(rt, step.NodeEval); err != nil {
				return frame, err
			}

		case program.StepBusEval:
			if err := ex.execBusEval(rt, step.BusEval); err != nil {
				return frame, err
			}

		case program.StepEventBusEval:
			if err := ex.execEventBusEval(rt, step.EventBusEval); err != nil {
				return frame, err
			}

		case program.StepMaterialize:
			if err := ex.execInstanceMaterialize(rt, step.InstanceMaterialize); err != nil {
				return frame, err
			}

		case program.StepMaterializeColor:
			if err := ex.execColorMaterialize(rt, step.ColorMaterialize); err != nil {
				return frame, err
			}

		case program.StepMaterializePath:
			if err := ex.execPathMaterialize(rt, step.PathMaterialize); err != nil {
				return frame, err
			}

		case program.StepMaterializeTestGeometry:
			if err := execTestGeometry(rt, step.TestGeometry); err != nil {
				return frame, err
			}

		case program.StepCameraEval:
			if err := execCameraEval(rt, step.CameraEval); err != nil {
				return frame, err
			}

		case program.StepMeshMaterialize:
			if err := ex.execMeshMaterialize(rt, step.MeshMaterialize); err != nil {
				return frame, err
			}

		case program.StepProject3DTo2D:
			if err := ex.execProject3DTo2D(rt, step.Project3DTo2D); err != nil {
				return frame, err
			}

		case program.StepRenderAssemble:
			f, err := ex.execRenderAssemble(rt, step.RenderAssemble)
			if err != nil {
				return frame, err
			}
			if err := rt.Values.Write(step.RenderAssemble.OutputSlot, valuestore.ObjValue(f)); err != nil {
				return frame, err
			}
			frameAssembled = true

		case program.StepDebugProbe:
			execDebugProbe(rt, step.DebugProbe)

		default:
			return frame, fmt.Errorf("executor: unhandled step kind %d", step.Kind)
		}
	}

	if frameAssembled {
		v, err := rt.Values.Read(prog.Output.RenderTreeSlot)
		if err != nil {
			return frame, err
		}
		f, ok := v.Obj.(assemble.RenderFrame)
		if !ok {
			return frame, fmt.Errorf("executor: output slot %d does not hold a render frame", prog.Output.RenderTreeSlot)
		}
		frame = f
		frame.Perf.NaNCulled = rt.ProjAnomalies.NaNCount
		frame.Perf.InfCulled = rt.ProjAnomalies.InfCount
	}
	return frame, nil
}

func derefOr0(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func valueAsF64(vs *valuestore.Store, slot int) (float64, error) {
	v, err := vs.Read(slot)
	if err != nil {
		return 0, err
	}
	switch v.Storage {
	case program.StorageF64:
		return v.F64, nil
	case program.StorageF32:
		return float64(v.F32), nil
	case program.StorageI32:
		return float64(v.I32), nil
	case program.StorageU32:
		return float64(v.U32), nil
	default:
		return 0, fmt.Errorf("executor: slot %d is not numeric", slot)
	}
}

func valueAsI32(vs *valuestore.Store, slot int) (int, error) {
	v, err := vs.Read(slot)
	if err != nil {
		return 0, err
	}
	switch v.Storage {
	case program.StorageI32:
		return int(v.I32), nil
	case program.StorageU32:
		return int(v.U32), nil
	case program.StorageF64:
		return int(v.F64), nil
	default:
		return 0, fmt.Errorf("executor: slot %d is not an integer count", slot)
	}
}

func (ex *Executor) execNodeEval(rt *Runtime, spec *program.NodeEvalSpec) error {
	op, ok := ex.Regs.NodeOps[spec.OpCode]
	if !ok {
		return fmt.Errorf("executor: unknown opcode %q", spec.OpCode)
	}
	ins := make([]float64, len(spec.InputSlots))
	for i, slot := range spec.InputSlots {
		v, err := valueAsF64(rt.Values, slot)
		if err != nil {
			return err
		}
		ins[i] = v
	}
	outs, err := op(ins, spec.Params, rt.State, spec.StateKey, rt.Time.LastDeltaMs)
	if err != nil {
		return err
	}
	if len(outs) != len(spec.OutputSlots) {
		return fmt.Errorf("executor: opcode %q produced %d outputs, schedule expects %d", spec.OpCode, len(outs), len(spec.OutputSlots))
	}
	for i, slot := range spec.OutputSlots {
		if err := rt.Values.Write(slot, valuestore.F64Value(outs[i])); err != nil {
			return err
		}
	}
	return nil
}

func mapCombineMode(mode string) (bus.CombineMode, error) {
	switch mode {
	case "sum":
		return bus.CombineSum, nil
	case "average":
		return bus.CombineAverage, nil
	case "min":
		return bus.CombineMin, nil
	case "max":
		return bus.CombineMax, nil
	case "last":
		return bus.CombineLast, nil
	case "product":
		return bus.CombineProduct, nil
	}
	return 0, fmt.Errorf("executor: unknown combine mode %q", mode)
}

func mapSilentKind(kind string) (bus.SilentKind, error) {
	switch kind {
	case "zero", "":
		return bus.SilentZero, nil
	case "one":
		return bus.SilentOne, nil
	case "const":
		return bus.SilentConst, nil
	}
	return 0, fmt.Errorf("executor: unknown silent kind %q", kind)
}

func (ex *Executor) execBusEval(rt *Runtime, spec *program.BusEvalSpec) error {
	mode, err := mapCombineMode(spec.Mode)
	if err != nil {
		return err
	}
	silent, err := mapSilentKind(spec.SilentKind)
	if err != nil {
		return err
	}
	publishers := make([]bus.Publisher, len(spec.Publishers))
	for i, p := range spec.Publishers {
		enabled, err := valueAsI32(rt.Values, p.EnabledSlot)
		if err != nil {
			return err
		}
		value, err := valueAsF64(rt.Values, p.ValueSlot)
		if err != nil {
			return err
		}
		publishers[i] = bus.Publisher{ID: p.ID, SortKey: p.SortKey, Enabled: enabled != 0, Value: value}
	}
	result, err := bus.Combine(mode, publishers, silent, spec.SilentConstID, rt.ConstPool)
	if err != nil {
		return err
	}
	return rt.Values.Write(spec.OutputSlot, valuestore.F64Value(result))
}

func mapEventCombineMode(mode string) (bus.EventCombineMode, error) {
	switch mode {
	case "merge":
		return bus.EventCombineMerge, nil
	case "first":
		return bus.EventCombineFirst, nil
	case "last":
		return bus.EventCombineLast, nil
	}
	return 0, fmt.Errorf("executor: unknown event combine mode %q", mode)
}

func (ex *Executor) execEventBusEval(rt *Runtime, spec *program.EventBusEvalSpec) error {
	mode, err := mapEventCombineMode(spec.Mode)
	if err != nil {
		return err
	}
	publishers := make([]bus.EventPublisher, 0, len(spec.Publishers))
	for _, p := range spec.Publishers {
		payload, ok := rt.Events.Consume(p.EventSlot)
		if !ok {
			publishers = append(publishers, bus.EventPublisher{ID: p.ID})
			continue
		}
		publishers = append(publishers, bus.EventPublisher{
			ID:     p.ID,
			Events: []bus.EventOccurrence{{TimeMs: rt.LastTime.TAbsMs, Payload: payload}},
		})
	}
	events, err := bus.CombineEvents(mode, publishers)
	if err != nil {
		return err
	}
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(events))
}

func (ex *Executor) fieldEnv(rt *Runtime) fieldmat.Env {
	return fieldmat.Env{
		ConstPool: rt.ConstPool,
		State:     rt.State,
		NowMs:     rt.LastTime.TAbsMs,
		DeltaMs:   rt.Time.LastDeltaMs,
		IsScrub:   rt.LastIsScrub,
	}
}

func (ex *Executor) materializeChannel(rt *Runtime, fieldID, domainSlot, count int, format program.BufferFormat) (*fieldmat.Buffer, error) {
	node, ok := ex.Regs.Fields[fieldID]
	if !ok {
		return nil, fmt.Errorf("executor: unknown field expression id %d", fieldID)
	}
	return rt.FieldMat.Materialize(node, domainSlot, count, format, ex.fieldEnv(rt))
}

func (ex *Executor) execInstanceMaterialize(rt *Runtime, spec *program.InstanceMaterializeSpec) error {
	count, err := valueAsI32(rt.Values, spec.DomainSlot)
	if err != nil {
		return err
	}
	x, err := ex.materializeChannel(rt, spec.XField, spec.DomainSlot, count, f32Format)
	if err != nil {
		return err
	}
	y, err := ex.materializeChannel(rt, spec.YField, spec.DomainSlot, count, f32Format)
	if err != nil {
		return err
	}
	r, err := ex.materializeChannel(rt, spec.RField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	g, err := ex.materializeChannel(rt, spec.GField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	b, err := ex.materializeChannel(rt, spec.BField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	a, err := ex.materializeChannel(rt, spec.AField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	var size, z, alive *fieldmat.Buffer
	if spec.SizeField != nil {
		if size, err = ex.materializeChannel(rt, *spec.SizeField, spec.DomainSlot, count, f32Format); err != nil {
			return err
		}
	}
	if spec.ZField != nil {
		if z, err = ex.materializeChannel(rt, *spec.ZField, spec.DomainSlot, count, f32Format); err != nil {
			return err
		}
	}
	if spec.AliveField != nil {
		if alive, err = ex.materializeChannel(rt, *spec.AliveField, spec.DomainSlot, count, u8Format); err != nil {
			return err
		}
	}
	batch := assemble.MaterializeInstances(count, x, y, r, g, b, a, size, z, alive)
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(batch))
}

func (ex *Executor) execColorMaterialize(rt *Runtime, spec *program.ColorMaterializeSpec) error {
	count, err := valueAsI32(rt.Values, spec.DomainSlot)
	if err != nil {
		return err
	}
	r, err := ex.materializeChannel(rt, spec.RField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	g, err := ex.materializeChannel(rt, spec.GField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	b, err := ex.materializeChannel(rt, spec.BField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	a, err := ex.materializeChannel(rt, spec.AField, spec.DomainSlot, count, u8Format)
	if err != nil {
		return err
	}
	red, green, blue, alpha := assemble.MaterializeColor(count, r, g, b, a)
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue([4][]uint8{red, green, blue, alpha}))
}

func (ex *Executor) execPathMaterialize(rt *Runtime, spec *program.PathMaterializeSpec) error {
	count, err := valueAsI32(rt.Values, spec.DomainSlot)
	if err != nil {
		return err
	}
	gen, ok := ex.Regs.PathFields[spec.CommandsFieldID]
	if !ok {
		return fmt.Errorf("executor: unknown path field id %d", spec.CommandsFieldID)
	}
	env := ex.fieldEnv(rt)
	paths := make([][]assemble.PathCommand, count)
	for i := 0; i < count; i++ {
		cmds, err := gen(i, env)
		if err != nil {
			return err
		}
		paths[i] = cmds
	}
	batch := assemble.MaterializePath(paths)
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(batch))
}

// execTestGeometry writes a deterministic single-row grid of Count
// instances, used by diagnostic/fixture programs that have no authored
// fields to materialize from.
func execTestGeometry(rt *Runtime, spec *program.TestGeometrySpec) error {
	batch := &assemble.InstanceBatch2D{
		X: make([]float32, spec.Count), Y: make([]float32, spec.Count),
		R: make([]uint8, spec.Count), G: make([]uint8, spec.Count),
		B: make([]uint8, spec.Count), A: make([]uint8, spec.Count),
	}
	for i := 0; i < spec.Count; i++ {
		batch.X[i] = float32(i) * 10
		batch.Y[i] = 0
		batch.R[i], batch.G[i], batch.B[i], batch.A[i] = 255, 255, 255, 255
	}
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(batch))
}

func execCameraEval(rt *Runtime, spec *program.CameraEvalSpec) error {
	read := func(slot int) (float32, error) {
		v, err := valueAsF64(rt.Values, slot)
		return float32(v), err
	}
	eyeX, err := read(spec.EyeXSlot)
	if err != nil {
		return err
	}
	eyeY, err := read(spec.EyeYSlot)
	if err != nil {
		return err
	}
	eyeZ, err := read(spec.EyeZSlot)
	if err != nil {
		return err
	}
	targetX, err := read(spec.TargetXSlot)
	if err != nil {
		return err
	}
	targetY, err := read(spec.TargetYSlot)
	if err != nil {
		return err
	}
	targetZ, err := read(spec.TargetZSlot)
	if err != nil {
		return err
	}
	viewportW, err := read(spec.ViewportWSlot)
	if err != nil {
		return err
	}
	viewportH, err := read(spec.ViewportHSlot)
	if err != nil {
		return err
	}

	cam := assemble.Camera{
		ViewProjection: lookAtBillboard(eyeX, eyeY, eyeZ, targetX, targetY, targetZ),
		ViewportW:      viewportW,
		ViewportH:      viewportH,
	}
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(cam))
}

// lookAtBillboard builds a simplified view-translation matrix: the
// projector only needs elements positioned relative to the camera eye, so
// full perspective/FOV terms collapse to an identity scale. Kept as a
// documented simplification; a richer program can replace the camera slot's
// object value directly with a fuller Mat4 if needed.
func lookAtBillboard(eyeX, eyeY, eyeZ, targetX, targetY, targetZ float32) assemble.Mat4 {
	_ = targetX
	_ = targetY
	_ = targetZ
	return assemble.Mat4{
		1, 0, 0, -eyeX,
		0, 1, 0, -eyeY,
		0, 0, 1, -eyeZ,
		0, 0, 0, 1,
	}
}

func (ex *Executor) execMeshMaterialize(rt *Runtime, spec *program.MeshMaterializeSpec) error {
	count, err := valueAsI32(rt.Values, spec.DomainSlot)
	if err != nil {
		return err
	}
	x, err := ex.materializeChannel(rt, spec.XField, spec.DomainSlot, count, f32Format)
	if err != nil {
		return err
	}
	y, err := ex.materializeChannel(rt, spec.YField, spec.DomainSlot, count, f32Format)
	if err != nil {
		return err
	}
	z, err := ex.materializeChannel(rt, spec.ZField, spec.DomainSlot, count, f32Format)
	if err != nil {
		return err
	}
	elements := make([]assemble.Element3D, count)
	for i := 0; i < count; i++ {
		elements[i] = assemble.Element3D{Index: i, X: channelAt(x, i), Y: channelAt(y, i), Z: channelAt(z, i)}
	}
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(elements))
}

func channelAt(b *fieldmat.Buffer, i int) float32 {
	if b == nil || b.F32 == nil || i >= len(b.F32) {
		return 0
	}
	return b.F32[i]
}

func (ex *Executor) execProject3DTo2D(rt *Runtime, spec *program.Project3DSpec) error {
	v, err := rt.Values.Read(spec.PositionSlot)
	if err != nil {
		return err
	}
	elements, _ := v.Obj.([]assemble.Element3D)

	cv, err := rt.Values.Read(spec.CameraSlot)
	if err != nil {
		return err
	}
	cam, ok := cv.Obj.(assemble.Camera)
	if !ok {
		return fmt.Errorf("executor: camera slot %d does not hold an assemble.Camera", spec.CameraSlot)
	}

	cull := assemble.CullNone
	if spec.CullMode == "frustum" {
		cull = assemble.CullFrustum
	}
	clip := assemble.ClipDiscard
	if spec.ClipMode == "clamp" {
		clip = assemble.ClipClamp
	}

	result := assemble.Project3DTo2D(elements, cam, cull, clip, spec.SortByDepth)
	rt.ProjAnomalies.NaNCount += result.NaNCount
	rt.ProjAnomalies.InfCount += result.InfCount
	return rt.Values.Write(spec.OutputSlot, valuestore.ObjValue(result.Batch))
}

func (ex *Executor) execRenderAssemble(rt *Runtime, spec *program.AssembleSpec) (assemble.RenderFrame, error) {
	instanceBatches := make([]*assemble.InstanceBatch2D, 0, len(spec.InstanceBatchSlots))
	for _, slot := range spec.InstanceBatchSlots {
		v, err := rt.Values.Read(slot)
		if err != nil {
			return assemble.RenderFrame{}, err
		}
		if b, ok := v.Obj.(*assemble.InstanceBatch2D); ok {
			instanceBatches = append(instanceBatches, b)
		}
	}
	pathBatches := make([]*assemble.PathBatch2D, 0, len(spec.PathBatchSlots))
	for _, slot := range spec.PathBatchSlots {
		v, err := rt.Values.Read(slot)
		if err != nil {
			return assemble.RenderFrame{}, err
		}
		if b, ok := v.Obj.(*assemble.PathBatch2D); ok {
			pathBatches = append(pathBatches, b)
		}
	}

	clear := assemble.Clear{Mode: assemble.ClearNone}
	if spec.ClearColorRGBA != nil {
		clear = assemble.Clear{Mode: assemble.ClearColor, ColorRGBA: *spec.ClearColorRGBA}
	}
	return assemble.Assemble(clear, instanceBatches, pathBatches), nil
}

func execDebugProbe(rt *Runtime, spec *program.DebugProbeSpec) {
	mode := probe.ModeValue
	switch spec.Mode {
	case program.ProbeDiff:
		mode = probe.ModeDiff
	case program.ProbeHistogram:
		mode = probe.ModeHistogram
	}
	if len(spec.Slots) == 1 {
		if f, err := valueAsF64(rt.Values, spec.Slots[0]); err == nil {
			rt.Probes.Record(spec.Name, mode, probe.Numeric(f))
			return
		}
	}
	vec := make([]float64, 0, len(spec.Slots))
	for _, slot := range spec.Slots {
		if f, err := valueAsF64(rt.Values, slot); err == nil {
			vec = append(vec, f)
		}
	}
	rt.Probes.Record(spec.Name, mode, probe.Vector(vec))
}
