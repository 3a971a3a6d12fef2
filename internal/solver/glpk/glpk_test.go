package glpk

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/lukpank/go-glpk/glpk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/problem"
	"github.com/popmonkey/packing_solver_go/internal/solution"
	"github.com/popmonkey/packing_solver_go/internal/solver"
)

func ones(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func solve(t *testing.T, d problem.Data) *solution.Solution {
	t.Helper()
	if testing.Short() {
		t.Skip("solves with GLPK")
	}
	inst, err := problem.Bind(d)
	require.NoError(t, err)
	f, err := formulation.Build(inst, formulation.DefaultOptions(inst.Mode()))
	require.NoError(t, err)

	res, err := New(slog.Default()).Solve(context.Background(), f.Model, solver.Options{TimeLimit: time.Minute})
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status, res.Message)

	sol, err := solution.Extract(f, res)
	require.NoError(t, err)
	require.NoError(t, solution.Check(f, sol))
	return sol
}

func TestSingleOrderIsOnTime(t *testing.T) {
	sol := solve(t, problem.Data{
		Orders:             1,
		Lines:              1,
		Workers:            1,
		TimeSlots:          10,
		ProcessingTime:     [][]float64{{3}},
		DueDate:            []float64{10},
		WorkerAvailability: [][]int{ones(10)},
	})
	require.Len(t, sol.Orders, 1)
	assert.True(t, sol.Orders[0].Scheduled)
	assert.False(t, sol.Orders[0].Late)
	assert.LessOrEqual(t, sol.Orders[0].ShipTime, 10.0)
}

func TestTwoOrdersShareALine(t *testing.T) {
	sol := solve(t, problem.Data{
		Orders:             2,
		Lines:              1,
		Workers:            1,
		TimeSlots:          10,
		ProcessingTime:     [][]float64{{2}, {3}},
		DueDate:            []float64{5, 8},
		WorkerAvailability: [][]int{ones(10)},
	})
	for _, o := range sol.Orders {
		assert.False(t, o.Late, "order %d", o.Order)
	}
	a, b := sol.Orders[0], sol.Orders[1]
	assert.True(t, a.Completion <= b.Start || b.Completion <= a.Start, "orders overlap")
}

func TestTightDueDatesForceLateness(t *testing.T) {
	const n = 5
	setup := make([][][]float64, n)
	for i := range setup {
		setup[i] = make([][]float64, n)
		for k := range setup[i] {
			setup[i][k] = []float64{1}
			if i == k {
				setup[i][k] = []float64{0}
			}
		}
	}
	proc := make([][]float64, n)
	due := make([]float64, n)
	for i := range proc {
		proc[i] = []float64{2}
		due[i] = 4
	}
	sol := solve(t, problem.Data{
		Orders:             n,
		Lines:              1,
		Workers:            1,
		TimeSlots:          20,
		ProcessingTime:     proc,
		SetupTime:          setup,
		DueDate:            due,
		WorkerAvailability: [][]int{ones(20)},
	})

	late := 0
	for _, o := range sol.Orders {
		assert.True(t, o.Scheduled)
		if o.Late {
			late++
		}
	}
	assert.GreaterOrEqual(t, late, 1)
	assert.True(t, sol.Breakdown.OnTimeRate.LessThan(decimal.NewFromInt(1)))
}

func TestStockCoversContinuousDemand(t *testing.T) {
	sol := solve(t, problem.Data{
		Mode:             problem.Continuous,
		Types:            1,
		Orders:           1,
		Demands:          1,
		Lines:            1,
		Horizon:          10,
		ProcessingTime:   [][]float64{{3}},
		OrderType:        []int{1},
		InitialInventory: []int{1},
		DueDate:          []float64{5},
		DemandType:       []int{1},
		DemandQty:        []int{1},
	})
	assert.False(t, sol.Orders[0].Scheduled, "nothing needs producing")
	require.Len(t, sol.Demands, 1)
	assert.InDelta(t, 5, sol.Demands[0].ShipTime, 1e-6)
	assert.False(t, sol.Demands[0].Late)
	require.Len(t, sol.Inventory, 1)
	assert.Equal(t, []float64{0}, sol.Inventory[0].Levels)
}

func TestInfeasibleModel(t *testing.T) {
	if testing.Short() {
		t.Skip("solves with GLPK")
	}
	b := milp.NewBuilder("infeasible")
	x := b.NewVar("x", milp.Integer, 0, 3)
	b.AddRow("test", "too_big", milp.Sum(x), milp.GE, 5)
	m, err := b.Build()
	require.NoError(t, err)

	res, err := New(slog.Default()).Solve(context.Background(), m, solver.Options{})
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, res.Status)
	assert.Nil(t, res.Values)
}

func TestDoneContextNeverStartsARun(t *testing.T) {
	b := milp.NewBuilder("cancelled")
	x := b.NewVar("x", milp.Binary, 0, 1)
	b.AddRow("test", "pick", milp.Sum(x), milp.EQ, 1)
	m, err := b.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(slog.Default()).Solve(ctx, m, solver.Options{TimeLimit: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, solver.StatusUnknown, res.Status)
	assert.Nil(t, res.Values)
	assert.Contains(t, res.Message, "time limit")
}

func TestBounds(t *testing.T) {
	inf := math.Inf(1)
	cases := []struct {
		lo, hi float64
		want   glpk.BndsType
	}{
		{-inf, inf, glpk.BndsType(glpk.FR)},
		{0, inf, glpk.BndsType(glpk.LO)},
		{-inf, 4, glpk.BndsType(glpk.UP)},
		{2, 2, glpk.BndsType(glpk.FX)},
		{0, 1, glpk.BndsType(glpk.DB)},
	}
	for _, c := range cases {
		bt, _, _ := bounds(c.lo, c.hi)
		assert.Equal(t, c.want, bt, "[%g, %g]", c.lo, c.hi)
	}
}
