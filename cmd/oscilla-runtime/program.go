package main

// buildDemoProgram returns a small but complete compiled program covering
// the main step kinds the schedule executor dispatches: cyclic time
// resolution with wrap detection, a signal expression (sine pulse), a
// continuous bus combine, a field materialize into an instance batch, a
// debug probe, and the final render assemble. It stands in for the output
// of the block-graph compiler, which is an external collaborator.
//
// Slot layout (all in one flat numbering; a real compiler would pack these
// per storage class):
//
//	0  tAbsMs        (f64, special)
//	1  tModelMs      (f64, special)
//	2  phase01       (f64, special)
//	3  wrapEvent     (i32, event)     — Event Store key only, never read/written via Value Store
//	4  domainCount   (i32, config)    — instance count, fixed at load
//	5  pulseSignal   (f64, signal)    — sin(phase * 2π)
//	6  floorSignal   (f64, signal)    — constant floor publisher
//	7  pulseEnabled  (i32, config)    — bus publisher enable flags, carried from load
//	8  floorEnabled  (i32, config)
//	9  busOut        (f64, signal)    — max(pulseSignal, floorSignal)
//	10 accumulator   (f64, signal)    — integral of busOut over time, in a state cell
//	11 instanceBatch (object, special)
//	12 renderFrame   (object, special) — program.Output.RenderTreeSlot
import (
	"github.com/brandon-fryslie/oscilla-runtime/internal/constpool"
	"github.com/brandon-fryslie/oscilla-runtime/internal/executor"
	"github.com/brandon-fryslie/oscilla-runtime/internal/fieldmat"
	"github.com/brandon-fryslie/oscilla-runtime/internal/program"
	"github.com/brandon-fryslie/oscilla-runtime/internal/signaleval"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	slotTAbsMs = iota
	slotTModelMs
	slotPhase01
	slotWrapEvent
	slotDomainCount
	slotPulseSignal
	slotFloorSignal
	slotPulseEnabled
	slotFloorEnabled
	slotBusOut
	slotAccumulator
	slotInstanceBatch
	slotRenderFrame
)

const (
	sigPhaseTimesTau = iota
	sigPulse
	sigFloorConst
)

const (
	fieldConstX = iota
	fieldConstY
	fieldConstR
	fieldConstG
	fieldConstB
	fieldConstA
	fieldConstSize
	fieldCount
)

var accumulatorKey = program.StableKey{NodeID: "demo.accumulator", Role: "value"}

// demoRegistries builds the opcode/field/signal side-tables a real compiler
// would emit alongside the data-only Program.
func demoRegistries() executor.Registries {
	// Expression ids 3 and 4 are the operand nodes KindMul needs: the phase
	// time source and the tau constant.
	exprs := []signaleval.Expr{
		{ID: sigPhaseTimesTau, Kind: signaleval.KindMul, Operands: []int{3, 4}},
		{ID: sigPulse, Kind: signaleval.KindSin, Operands: []int{sigPhaseTimesTau}},
		{ID: sigFloorConst, Kind: signaleval.KindConst, ConstID: constFloor},
		{ID: 3, Kind: signaleval.KindTimeSource, TimeField: signaleval.TimeFieldPhase01},
		{ID: 4, Kind: signaleval.KindConst, ConstID: constTau},
	}

	fields := map[int]fieldmat.Node{
		fieldConstX:    {ID: fieldConstX, Recipe: fieldmat.RecipeConst, ConstID: constX},
		fieldConstY:    {ID: fieldConstY, Recipe: fieldmat.RecipeConst, ConstID: constY},
		fieldConstR:    {ID: fieldConstR, Recipe: fieldmat.RecipeConst, ConstID: constR},
		fieldConstG:    {ID: fieldConstG, Recipe: fieldmat.RecipeConst, ConstID: constG},
		fieldConstB:    {ID: fieldConstB, Recipe: fieldmat.RecipeConst, ConstID: constB},
		fieldConstA:    {ID: fieldConstA, Recipe: fieldmat.RecipeConst, ConstID: constA},
		fieldConstSize: {ID: fieldConstSize, Recipe: fieldmat.RecipeConst, ConstID: constSize},
	}

	return executor.Registries{
		SignalExprs: exprs,
		Fields:      fields,
		NodeOps:     executor.DefaultNodeOps(),
	}
}

const (
	constTau = iota
	constFloor
	constX
	constY
	constR
	constG
	constB
	constA
	constSize
)

// demoConstPool supplies the const pool the demo program's signal/field
// nodes index into.
func demoConstPool() *constpool.Pool {
	return constpool.New(
		[]*structpb.Value{},
		[]float64{
			constTau:   6.283185307179586,
			constFloor: 0.15,
			constX:     0,
			constY:     0,
			constR:     200,
			constG:     220,
			constB:     255,
			constA:     255,
			constSize:  6,
		},
		[]float32{},
		[]int32{},
	)
}

func buildDemoProgram(periodMs float64, instanceCount int32) *program.Program {
	phase := slotPhase01
	wrap := slotWrapEvent
	return &program.Program{
		TimeModel: program.TimeModel{
			Kind:     program.TimeCyclic,
			PeriodMs: periodMs,
			Mode:     program.CyclicLoop,
		},
		TimeSlots: program.TimeSlots{
			TAbsMs:    slotTAbsMs,
			TModelMs:  slotTModelMs,
			Phase01:   &phase,
			WrapEvent: &wrap,
		},
		Slots: []program.SlotMeta{
			{Slot: slotTAbsMs, Storage: program.StorageF64, Offset: 0, World: program.WorldSpecial, Domain: program.DomainFloat},
			{Slot: slotTModelMs, Storage: program.StorageF64, Offset: 1, World: program.WorldSpecial, Domain: program.DomainFloat},
			{Slot: slotPhase01, Storage: program.StorageF64, Offset: 2, World: program.WorldSpecial, Domain: program.DomainPhase01},
			{Slot: slotWrapEvent, Storage: program.StorageI32, Offset: 0, World: program.WorldEvent, Domain: program.DomainOther},
			{Slot: slotDomainCount, Storage: program.StorageI32, Offset: 1, World: program.WorldConfig, Domain: program.DomainInt},
			{Slot: slotPulseSignal, Storage: program.StorageF64, Offset: 3, World: program.WorldSignal, Domain: program.DomainFloat, BusEligible: true},
			{Slot: slotFloorSignal, Storage: program.StorageF64, Offset: 4, World: program.WorldSignal, Domain: program.DomainFloat, BusEligible: true},
			{Slot: slotPulseEnabled, Storage: program.StorageI32, Offset: 2, World: program.WorldConfig, Domain: program.DomainInt},
			{Slot: slotFloorEnabled, Storage: program.StorageI32, Offset: 3, World: program.WorldConfig, Domain: program.DomainInt},
			{Slot: slotBusOut, Storage: program.StorageF64, Offset: 5, World: program.WorldSignal, Domain: program.DomainFloat},
			{Slot: slotAccumulator, Storage: program.StorageF64, Offset: 6, World: program.WorldSignal, Domain: program.DomainFloat},
			{Slot: slotInstanceBatch, Storage: program.StorageObject, Offset: 0, World: program.WorldSpecial, Domain: program.DomainOther},
			{Slot: slotRenderFrame, Storage: program.StorageObject, Offset: 1, World: program.WorldSpecial, Domain: program.DomainRenderTree},
		},
		StateCells: []program.StateCellMeta{
			{Key: accumulatorKey, Storage: program.StorageF64, Size: 1},
		},
		ConstPool: program.ConstPoolLayout{F64Count: 9},
		ExprTables: program.ExprTables{
			SignalCount: 5,
			FieldCount:  fieldCount,
		},
		InitialSlotValues: map[int]any{
			slotDomainCount:  instanceCount,
			slotPulseEnabled: int32(1),
			slotFloorEnabled: int32(1),
		},
		Output: program.OutputSpec{RenderTreeSlot: slotRenderFrame},
		Schedule: program.Schedule{
			Steps: []program.Step{
				{ID: 0, Kind: program.StepTimeDerive},
				{ID: 1, Kind: program.StepSignalEval, SignalOutputs: []program.SignalOutput{
					{SigID: sigPulse, Slot: slotPulseSignal},
					{SigID: sigFloorConst, Slot: slotFloorSignal},
				}},
				{ID: 2, Kind: program.StepBusEval, BusEval: &program.BusEvalSpec{
					BusID: 0,
					Mode:  "max",
					Publishers: []program.PublisherSlot{
						{ID: "pulse", SortKey: 0, EnabledSlot: slotPulseEnabled, ValueSlot: slotPulseSignal},
						{ID: "floor", SortKey: 1, EnabledSlot: slotFloorEnabled, ValueSlot: slotFloorSignal},
					},
					SilentKind: "zero",
					OutputSlot: slotBusOut,
				}},
				{ID: 3, Kind: program.StepNodeEval, NodeEval: &program.NodeEvalSpec{
					OpCode:      "integrate",
					InputSlots:  []int{slotBusOut},
					OutputSlots: []int{slotAccumulator},
					StateKey:    &accumulatorKey,
				}},
				{ID: 4, Kind: program.StepMaterialize, InstanceMaterialize: &program.InstanceMaterializeSpec{
					DomainSlot: slotDomainCount,
					XField:     fieldConstX, YField: fieldConstY,
					RField: fieldConstR, GField: fieldConstG, BField: fieldConstB, AField: fieldConstA,
					SizeField:  intPtr(fieldConstSize),
					OutputSlot: slotInstanceBatch,
				}},
				{ID: 5, Kind: program.StepDebugProbe, DebugProbe: &program.DebugProbeSpec{
					Name: "accumulator", Slots: []int{slotAccumulator}, Mode: program.ProbeValue,
				}},
				{ID: 6, Kind: program.StepRenderAssemble, RenderAssemble: &program.AssembleSpec{
					InstanceBatchSlots: []int{slotInstanceBatch},
					OutputSlot:         slotRenderFrame,
				}},
			},
		},
	}
}

func intPtr(v int) *int { return &v }
