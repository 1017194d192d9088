// Package program defines the compiled program contract the runtime core
// consumes. Values of these types are produced by the (out of scope)
// block-graph compiler; the core only reads them.
package program

// StorageClass names a banked storage kind for a slot or state cell.
type StorageClass int

const (
	StorageF64 StorageClass = iota
	StorageF32
	StorageI32
	StorageU32
	StorageObject
)

func (c StorageClass) String() string {
	switch c {
	case StorageF64:
		return "f64"
	case StorageF32:
		return "f32"
	case StorageI32:
		return "i32"
	case StorageU32:
		return "u32"
	case StorageObject:
		return "object"
	default:
		return "unknown"
	}
}

// World names the slot's broad usage category.
type World int

const (
	WorldSignal World = iota
	WorldField
	WorldEvent
	WorldConfig
	WorldScalar
	WorldSpecial
)

// Domain names the value domain a slot or expression produces.
type Domain int

const (
	DomainFloat Domain = iota
	DomainInt
	DomainPhase01
	DomainWaveform
	DomainRenderTree
	DomainOther
)

// SlotMeta is the compiler-emitted metadata for one slot.
type SlotMeta struct {
	Slot           int
	Storage        StorageClass
	Offset         int
	World          World
	Domain         Domain
	Category       string
	BusEligible    bool
	InitialConstID *int
}

// StableKey addresses a State Buffer cell; stable across recompilations of
// the same author graph.
type StableKey struct {
	NodeID string
	Role   string
}

// StateCellMeta is the compiler-emitted metadata for one state cell.
type StateCellMeta struct {
	Key            StableKey
	Storage        StorageClass
	Offset         int
	Size           int
	InitialConstID *int
}

// TimeModelKind selects the time resolution model.
type TimeModelKind int

const (
	TimeFinite TimeModelKind = iota
	TimeCyclic
	TimeInfinite
)

// CyclicMode selects how a cyclic time model folds tAbs.
type CyclicMode int

const (
	CyclicLoop CyclicMode = iota
	CyclicPingpong
	CyclicOnce
)

// TimeModel is the compiler-supplied description of how tAbsMs maps to
// tModelMs, phase, progress and wrap events.
type TimeModel struct {
	Kind        TimeModelKind
	DurationMs  float64 // Finite
	PeriodMs    float64 // Cyclic
	Mode        CyclicMode
	PhaseDomain string
	WindowMs    float64 // Infinite, informational only
}

// Designated slots the Time Resolver writes into, plus the wrap event slot.
type TimeSlots struct {
	TAbsMs     int
	TModelMs   int
	Phase01    *int
	Progress01 *int
	WrapEvent  *int
}

// StepKind enumerates the tagged union of schedule step variants.
type StepKind int

const (
	StepTimeDerive StepKind = iota
	StepSignalEval
	StepNodeEval
	StepBusEval
	StepEventBusEval
	StepMaterialize
	StepMaterializeColor
	StepMaterializePath
	StepMaterializeTestGeometry
	StepProject3DTo2D
	StepCameraEval
	StepMeshMaterialize
	StepRenderAssemble
	StepDebugProbe
)

// SignalOutput names a single (expression id, destination slot) pairing for
// a signalEval step.
type SignalOutput struct {
	SigID int
	Slot  int
}

// NodeEvalSpec is the opaque opcode-driven unit of work a nodeEval step
// performs.
type NodeEvalSpec struct {
	OpCode      string
	InputSlots  []int
	OutputSlots []int
	Params      map[string]float64
	// StateKey addresses the state cell an integrator/delay opcode reads
	// and writes, if the opcode is stateful.
	StateKey *StableKey
}

// PublisherSlot names one continuous-bus publisher's enabled/value slots.
type PublisherSlot struct {
	ID          string
	SortKey     int
	EnabledSlot int // StorageI32: nonzero means enabled
	ValueSlot   int // StorageF64
}

// BusEvalSpec names a continuous bus's publishers and combine mode for a
// busEval step. Mode/SilentKind name the bus.CombineMode/bus.SilentKind
// value by string so the compiled program need not import package bus.
type BusEvalSpec struct {
	BusID         int
	Mode          string // "sum" | "average" | "min" | "max" | "last" | "product"
	Publishers    []PublisherSlot
	SilentKind    string // "zero" | "one" | "const"
	SilentConstID int
	OutputSlot    int
}

// EventPublisherSlot names one discrete-event-bus publisher: the Event
// Store slot it contributes from.
type EventPublisherSlot struct {
	ID        string
	EventSlot int
}

// EventBusEvalSpec names a discrete event bus's publishers and combine mode
// for an eventBusEval step. The result is written as an object value (a
// []bus.EventOccurrence) to OutputSlot.
type EventBusEvalSpec struct {
	BusID      int
	Mode       string // "merge" | "first" | "last"
	Publishers []EventPublisherSlot
	OutputSlot int
}

// InstanceMaterializeSpec names the per-channel field ids and domain/output
// slots for a materialize (instances) step.
type InstanceMaterializeSpec struct {
	DomainSlot                     int
	XField, YField                 int
	RField, GField, BField, AField int
	SizeField, ZField, AliveField  *int
	OutputSlot                     int
}

// ColorMaterializeSpec names the per-channel field ids for a
// materializeColor step.
type ColorMaterializeSpec struct {
	DomainSlot                     int
	RField, GField, BField, AField int
	OutputSlot                     int
}

// PathMaterializeSpec names the field producing path commands for a
// materializePath step.
type PathMaterializeSpec struct {
	DomainSlot      int
	CommandsFieldID int
	OutputSlot      int
}

// TestGeometrySpec names a synthetic fixed-count instance batch used for
// materializeTestGeometry steps (diagnostics/fixtures).
type TestGeometrySpec struct {
	OutputSlot int
	Count      int
}

// CameraEvalSpec names the scalar slots for a cameraEval step and the
// object slot it writes the camera to. The executor reads the eye, target
// and viewport slots and builds the matrix from the eye position alone;
// the FovY, Aspect, Near and Far slots are not read.
type CameraEvalSpec struct {
	EyeXSlot, EyeYSlot, EyeZSlot            int
	TargetXSlot, TargetYSlot, TargetZSlot   int
	FovYSlot, AspectSlot, NearSlot, FarSlot int
	ViewportWSlot, ViewportHSlot            int
	OutputSlot                              int
}

// MeshMaterializeSpec names the per-element position fields for a
// meshMaterialize step, which assembles a domain of 3D elements ready for
// Project3DTo2D.
type MeshMaterializeSpec struct {
	DomainSlot             int
	XField, YField, ZField int
	OutputSlot             int
}

// BufferFormat names the element layout a materialized buffer uses.
type BufferFormat struct {
	Components  int
	ElementType string // "f32", "u8", "u16", ...
}

// Canonical single-component formats the materialize steps request.
var (
	BufferFormatF32 = BufferFormat{Components: 1, ElementType: "f32"}
	BufferFormatU8  = BufferFormat{Components: 1, ElementType: "u8"}
)

// ProbeMode selects how a debugProbe step records values.
type ProbeMode int

const (
	ProbeValue ProbeMode = iota
	ProbeDiff
	ProbeHistogram
)

// DebugProbeSpec names the slots a debugProbe step records and under what
// mode.
type DebugProbeSpec struct {
	Name  string
	Slots []int
	Mode  ProbeMode
}

// Step is one scheduled unit of work. Exactly one of the *Spec fields is
// populated, selected by Kind.
type Step struct {
	ID                  int
	Kind                StepKind
	SignalOutputs       []SignalOutput
	NodeEval            *NodeEvalSpec
	BusEval             *BusEvalSpec
	EventBusEval        *EventBusEvalSpec
	InstanceMaterialize *InstanceMaterializeSpec
	ColorMaterialize    *ColorMaterializeSpec
	PathMaterialize     *PathMaterializeSpec
	TestGeometry        *TestGeometrySpec
	CameraEval          *CameraEvalSpec
	MeshMaterialize     *MeshMaterializeSpec
	DebugProbe          *DebugProbeSpec
	Project3DTo2D       *Project3DSpec
	RenderAssemble      *AssembleSpec
}

// Project3DSpec names the inputs for a Project3DTo2D step.
type Project3DSpec struct {
	DomainSlot   int
	CameraSlot   int
	PositionSlot int
	RotationSlot int
	ScaleSlot    int
	OutputSlot   int
	CullMode     string // "none" | "frustum"
	ClipMode     string // "discard" | "clamp"
	SortByDepth  bool
}

// AssembleSpec names the batch list slots and output slot for a
// renderAssemble step.
type AssembleSpec struct {
	InstanceBatchSlots []int
	PathBatchSlots     []int
	OutputSlot         int
	ClearColorRGBA     *uint32 // nil means ClearNone
}

// Schedule is the compiler's totally-ordered, fixed step sequence.
type Schedule struct {
	Steps []Step
}

// ConstPoolLayout sizes the four parallel const stores.
type ConstPoolLayout struct {
	JSONCount int
	F64Count  int
	F32Count  int
	I32Count  int
}

// ExprTables sizes the signal/field/event expression tables so the Frame
// Cache can allocate dense arrays.
type ExprTables struct {
	SignalCount int
	FieldCount  int
	EventCount  int
}

// OutputSpec names the program's primary RenderFrame output slot.
type OutputSpec struct {
	RenderTreeSlot int
}

// Program is the opaque compiled program value the core consumes.
type Program struct {
	TimeModel         TimeModel
	TimeSlots         TimeSlots
	Slots             []SlotMeta
	StateCells        []StateCellMeta
	ConstPool         ConstPoolLayout
	ExprTables        ExprTables
	Schedule          Schedule
	InitialSlotValues map[int]any
	Output            OutputSpec
}

// SlotByID returns the slot metadata for a slot number, if present.
func (p *Program) SlotByID(slot int) (SlotMeta, bool) {
	if p == nil {
		return SlotMeta{}, false
	}
	for _, s := range p.Slots {
		if s.Slot == slot {
			return s, true
		}
	}
	return SlotMeta{}, false
}

// StateCellByKey returns the cell metadata for a stable key, if present.
func (p *Program) StateCellByKey(key StableKey) (StateCellMeta, bool) {
	if p == nil {
		return StateCellMeta{}, false
	}
	for _, c := range p.StateCells {
		if c.Key == key {
			return c, true
		}
	}
	return StateCellMeta{}, false
}
