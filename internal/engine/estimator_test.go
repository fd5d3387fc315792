package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/piwi3910/SlabCount/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSolver fails or stalls selected materials and delegates the rest.
type stubSolver struct {
	next     GroupSolver
	fail     map[string]error
	stall    map[string]bool
	panicOn  string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *stubSolver) SolveGroup(ctx context.Context, g model.MaterialGroup) (model.CuttingPlan, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if g.MaterialID == s.panicOn {
		panic("boom")
	}
	if err, ok := s.fail[g.MaterialID]; ok {
		return model.CuttingPlan{}, err
	}
	if s.stall[g.MaterialID] {
		<-ctx.Done()
		return model.CuttingPlan{}, ctx.Err()
	}
	time.Sleep(5 * time.Millisecond)
	return s.next.SolveGroup(ctx, g)
}

func batchTables() ([]model.PartRequirement, []model.MaterialSheet) {
	materials := []model.MaterialSheet{
		{MaterialID: "Plywood", SheetLength: 1000, SheetWidth: 1000},
		{MaterialID: "Acrylic", SheetLength: 600, SheetWidth: 400},
		{MaterialID: "MDF", SheetLength: 2440, SheetWidth: 1220},
		{MaterialID: "Aluminium", SheetLength: 600, SheetWidth: 300},
	}
	parts := []model.PartRequirement{
		{MaterialID: "MDF", Length: 800, Width: 300, Quantity: 6},
		{MaterialID: "Plywood", Length: 100, Width: 200, Quantity: 30},
		{MaterialID: "MDF", Length: 1200, Width: 800, Quantity: 3},
		{MaterialID: "Aluminium", Length: 100, Width: 100, Quantity: 20},
	}
	return parts, materials
}

func TestEstimate_ReportOrderAndContent(t *testing.T) {
	parts, materials := batchTables()
	est := New(defaultTestSettings(), nil)

	report, err := est.Estimate(context.Background(), parts, materials)

	require.NoError(t, err)
	require.Len(t, report.Materials, 4)
	assert.True(t, report.OK())
	assert.Equal(t, model.AreaOnlyFeasibility, report.AreaOnly)

	ids := []string{}
	for _, m := range report.Materials {
		ids = append(ids, m.MaterialID)
	}
	assert.Equal(t, []string{"Plywood", "Acrylic", "MDF", "Aluminium"}, ids)

	ply := report.Materials[0]
	assert.Equal(t, 1, ply.SheetsRequired)
	assert.Equal(t, []model.ProducedPart{{Size: "100x200", Count: 30}}, ply.Produced)
	assert.InDelta(t, 0.6, ply.AreaLowerBound, 1e-9)
	assert.InDelta(t, 60.0, ply.Utilization, 1e-9)
	assert.Equal(t, model.StatusOK, ply.Status)

	acrylic := report.Materials[1]
	assert.Equal(t, 0, acrylic.SheetsRequired, "material without parts needs no sheets")
	assert.Empty(t, acrylic.Produced)
	assert.Equal(t, model.StatusOK, acrylic.Status)

	mdf := report.Materials[2]
	assert.Equal(t, 2, mdf.SheetsRequired)
	assert.Equal(t, "800x300", mdf.Produced[0].Size)
	assert.Equal(t, "1200x800", mdf.Produced[1].Size)

	alu := report.Materials[3]
	assert.Equal(t, 2, alu.SheetsRequired)
	assert.Equal(t, 5, report.TotalSheets())
}

func TestEstimate_ZeroPartMaterialDoesNotAffectOthers(t *testing.T) {
	parts := []model.PartRequirement{{MaterialID: "Plywood", Length: 100, Width: 200, Quantity: 30}}
	alone := []model.MaterialSheet{{MaterialID: "Plywood", SheetLength: 1000, SheetWidth: 1000}}
	withEmpty := append([]model.MaterialSheet{{MaterialID: "Acrylic", SheetLength: 600, SheetWidth: 400}}, alone...)

	est := New(defaultTestSettings(), nil)
	a, err := est.Estimate(context.Background(), parts, alone)
	require.NoError(t, err)
	b, err := est.Estimate(context.Background(), parts, withEmpty)
	require.NoError(t, err)

	pa, _ := a.Find("Plywood")
	pb, _ := b.Find("Plywood")
	assert.Equal(t, pa.CuttingPlan, pb.CuttingPlan)
	empty, ok := b.Find("Acrylic")
	require.True(t, ok)
	assert.Equal(t, 0, empty.SheetsRequired)
}

func TestEstimate_InputErrorAbortsBatch(t *testing.T) {
	parts, materials := batchTables()
	parts = append(parts, model.PartRequirement{MaterialID: "Oak", Length: 10, Width: 10, Quantity: 1})

	stub := &stubSolver{next: NewMILPSolver(defaultTestSettings())}
	est := New(defaultTestSettings(), nil)
	est.Solver = stub

	report, err := est.Estimate(context.Background(), parts, materials)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Empty(t, report.Materials, "no partial report")
	assert.Equal(t, int32(0), stub.maxSeen.Load(), "no solve may start")
}

func TestEstimate_FailureIsIsolatedPerMaterial(t *testing.T) {
	parts, materials := batchTables()
	stub := &stubSolver{
		next: NewMILPSolver(defaultTestSettings()),
		fail: map[string]error{"MDF": errors.New("engine crashed")},
	}
	est := New(defaultTestSettings(), nil)
	est.Solver = stub

	report, err := est.Estimate(context.Background(), parts, materials)

	require.NoError(t, err)
	require.Len(t, report.Materials, 4)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.OK())

	mdf := report.Materials[2]
	assert.Equal(t, "MDF", mdf.MaterialID)
	assert.True(t, mdf.Failed())
	assert.Equal(t, model.ErrorKindSolver, mdf.ErrorKind)
	assert.Contains(t, mdf.Error, "engine crashed")
	assert.NotNil(t, mdf.Produced)

	ply, _ := report.Find("Plywood")
	assert.Equal(t, 1, ply.SheetsRequired)
	assert.Equal(t, 3, report.TotalSheets(), "failed materials are not counted")
}

func TestEstimate_PanicBecomesFailure(t *testing.T) {
	parts, materials := batchTables()
	est := New(defaultTestSettings(), nil)
	est.Solver = &stubSolver{next: NewMILPSolver(defaultTestSettings()), panicOn: "Plywood"}

	report, err := est.Estimate(context.Background(), parts, materials)

	require.NoError(t, err)
	ply, _ := report.Find("Plywood")
	assert.True(t, ply.Failed())
	assert.Contains(t, ply.Error, "panic")
	mdf, _ := report.Find("MDF")
	assert.False(t, mdf.Failed())
}

func TestEstimate_TimeoutMarksMaterialFailed(t *testing.T) {
	parts, materials := batchTables()
	settings := defaultTestSettings()
	settings.SolveTimeout = 200 * time.Millisecond
	est := New(settings, nil)
	est.Solver = &stubSolver{next: NewMILPSolver(settings), stall: map[string]bool{"Aluminium": true}}

	report, err := est.Estimate(context.Background(), parts, materials)

	require.NoError(t, err)
	alu, _ := report.Find("Aluminium")
	assert.True(t, alu.Failed())
	assert.Equal(t, model.ErrorKindTimeout, alu.ErrorKind)
	assert.Equal(t, 0, alu.SheetsRequired)
	assert.Equal(t, 1, report.Failed)
}

func TestEstimate_ParallelPreservesOrder(t *testing.T) {
	parts, materials := batchTables()

	sequential := New(defaultTestSettings(), nil)
	want, err := sequential.Estimate(context.Background(), parts, materials)
	require.NoError(t, err)

	settings := defaultTestSettings()
	settings.Workers = 4
	parallel := New(settings, nil)
	stub := &stubSolver{next: NewMILPSolver(settings)}
	parallel.Solver = stub
	got, err := parallel.Estimate(context.Background(), parts, materials)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.LessOrEqual(t, stub.maxSeen.Load(), int32(4))
}

func TestEstimate_SequentialWorkersLimit(t *testing.T) {
	parts, materials := batchTables()
	settings := defaultTestSettings()
	settings.Workers = 0
	est := New(settings, nil)
	stub := &stubSolver{next: NewMILPSolver(settings)}
	est.Solver = stub

	_, err := est.Estimate(context.Background(), parts, materials)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.maxSeen.Load())
}

func TestEstimate_CancelledContext(t *testing.T) {
	parts, materials := batchTables()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(defaultTestSettings(), nil).Estimate(ctx, parts, materials)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_FailedEntryKeepsLowerBound(t *testing.T) {
	g := plywoodGroup(30)
	report := Aggregate([]Outcome{{
		Group: g,
		Err:   &model.SolveError{MaterialID: "Plywood", Err: model.ErrInfeasible},
	}}, 0)

	require.Len(t, report.Materials, 1)
	r := report.Materials[0]
	assert.Equal(t, model.ErrorKindInfeasible, r.ErrorKind)
	assert.InDelta(t, 0.6, r.AreaLowerBound, 1e-9)
	assert.Equal(t, 0.0, r.Utilization)
	assert.Equal(t, 1, report.Failed)
}
