package formulation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/problem"
)

func bind(t *testing.T, d problem.Data) *problem.Instance {
	t.Helper()
	inst, err := problem.Bind(d)
	require.NoError(t, err)
	return inst
}

func singleOrder(slots int) problem.Data {
	avail := make([]int, slots)
	for i := range avail {
		avail[i] = 1
	}
	return problem.Data{
		Orders:             1,
		Lines:              1,
		Workers:            1,
		TimeSlots:          slots,
		ProcessingTime:     [][]float64{{2}},
		DueDate:            []float64{float64(slots)},
		WorkerAvailability: [][]int{avail},
	}
}

func twoOrdersWithSetup() problem.Data {
	return problem.Data{
		Orders:         2,
		Lines:          1,
		Workers:        2,
		TimeSlots:      8,
		ProcessingTime: [][]float64{{2}, {3}},
		SetupTime: [][][]float64{
			{{0}, {1}},
			{{2}, {0}},
		},
		DueDate:            []float64{4, 8},
		Priority:           []float64{2, 1},
		InitialInventory:   []int{0, 1},
		WorkerAvailability: [][]int{{1, 1, 1, 1, 1, 1, 1, 1}, {1, 1, 1, 1, 0, 0, 1, 1}},
	}
}

func continuousCase() problem.Data {
	return problem.Data{
		Mode:             problem.Continuous,
		Types:            2,
		Orders:           3,
		Demands:          2,
		Lines:            2,
		Horizon:          12,
		ProcessingTime:   [][]float64{{3, 4}, {2, 2.5}},
		TypeSetupTime:    [][]float64{{0, 1}, {1.5, 0}},
		OrderType:        []int{1, 2, 2},
		InitialInventory: []int{0, 1},
		DueDate:          []float64{5, 9},
		DemandType:       []int{1, 2},
		DemandQty:        []int{1, 2},
	}
}

// solution assigns values by column name; unnamed columns stay at zero.
func solution(t *testing.T, m *milp.Model, values map[string]float64) []float64 {
	t.Helper()
	out := make([]float64, m.NumVars())
	for n, v := range values {
		col, ok := m.Lookup(n)
		require.True(t, ok, "no column %s", n)
		out[col] = v
	}
	return out
}

func TestStartsStayInsideHorizon(t *testing.T) {
	d := singleOrder(10)
	d.ProcessingTime = [][]float64{{3}}
	f, err := Build(bind(t, d), DefaultOptions(problem.Discrete))
	require.NoError(t, err)

	require.Len(t, f.Vars.Starts, 7)
	for _, st := range f.Vars.Starts {
		assert.LessOrEqual(t, st.Slot+3, 10)
		assert.Equal(t, -1, st.Worker)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	for _, d := range []problem.Data{twoOrdersWithSetup(), continuousCase()} {
		inst := bind(t, d)
		opts := DefaultOptions(inst.Mode())
		a, err := Build(inst, opts)
		require.NoError(t, err)
		b, err := Build(inst, opts)
		require.NoError(t, err)

		assert.Equal(t, a.Model.Vars(), b.Model.Vars())
		assert.Equal(t, a.Model.Rows(), b.Model.Rows())
		assert.Equal(t, a.Model.Objective(), b.Model.Objective())
	}
}

func TestBigMAreSufficientAcrossVariants(t *testing.T) {
	variants := map[string]func(*Options){
		"defaults":      func(*Options) {},
		"explicit":      func(o *Options) { o.Workers = Explicit; o.WorkerMovement = true },
		"gated":         func(o *Options) { o.LineGating = true },
		"earliness":     func(o *Options) { o.TrackEarliness = true; o.NoEarlyShipping = true },
		"workforce":     func(o *Options) { o.WorkforceDeviation = true; o.WorkforceChanges = true },
		"by completion": func(o *Options) { o.Lateness = ByCompletion },
		"optional":      func(o *Options) { o.Assignment = Optional },
	}
	d := twoOrdersWithSetup()
	d.WorkforceTarget = 1
	inst := bind(t, d)
	for label, mutate := range variants {
		t.Run(label, func(t *testing.T) {
			opts := DefaultOptions(problem.Discrete)
			mutate(&opts)
			_, err := Build(inst, opts)
			require.NoError(t, err)
		})
	}

	t.Run("continuous", func(t *testing.T) {
		opts := DefaultOptions(problem.Continuous)
		opts.TrackEarliness = true
		_, err := Build(bind(t, continuousCase()), opts)
		require.NoError(t, err)
	})
}

func TestRowGroups(t *testing.T) {
	f, err := Build(bind(t, twoOrdersWithSetup()), DefaultOptions(problem.Discrete))
	require.NoError(t, err)
	groups := f.Model.Stats().RowsByGroup
	for _, g := range []string{GroupAssignment, GroupCapacity, GroupWorker, GroupOTIF, GroupWIP, GroupWorkforce} {
		assert.Positive(t, groups[g], g)
	}
	assert.Equal(t, 2, groups[GroupAssignment])

	var setupRows int
	for _, r := range f.Model.Rows() {
		if strings.HasPrefix(r.Name, "setup_") {
			setupRows++
		}
	}
	assert.Positive(t, setupRows)
}

func TestOptionsValidation(t *testing.T) {
	inst := bind(t, singleOrder(4))

	opts := DefaultOptions(problem.Discrete)
	opts.WorkerMovement = true
	_, err := Build(inst, opts)
	assert.ErrorIs(t, err, ErrIncompatibleOptions)

	opts = DefaultOptions(problem.Discrete)
	opts.Shipping = FixedSchedule
	_, err = Build(inst, opts)
	assert.ErrorIs(t, err, ErrIncompatibleOptions, "lateness by ship time without decided shipments")

	opts.Lateness = ByCompletion
	_, err = Build(inst, opts)
	assert.ErrorIs(t, err, ErrIncompatibleOptions, "fixed schedule without a schedule")

	opts = DefaultOptions(problem.Discrete)
	opts.Weights.WIP = -1
	_, err = Build(inst, opts)
	assert.True(t, errors.Is(err, ErrIncompatibleOptions))
}

func TestFixedScheduleBuilds(t *testing.T) {
	d := singleOrder(4)
	d.ShippingSchedule = [][]int{{0, 0, 1, 0}}
	opts := DefaultOptions(problem.Discrete)
	opts.Shipping = FixedSchedule
	opts.Lateness = ByCompletion
	f, err := Build(bind(t, d), opts)
	require.NoError(t, err)
	assert.Nil(t, f.Vars.Ship)
	assert.Nil(t, f.Vars.ShipTime)

	// Start at 1, complete at 3, ship the scheduled unit at 3.
	values := solution(t, f.Model, map[string]float64{
		"x_1_1_1": 1, "u_1": 1, "start_1": 1, "completion_1": 3,
		"prod_1_3": 1, "flow_1": 2,
		"wip_ind_1_1": 1, "wip_ind_1_2": 1, "wip_1": 1, "wip_2": 1,
		"used_1": 1, "used_2": 1, "used_max": 1, "used_range": 1,
	})
	assert.Empty(t, f.Model.Violations(values, 1e-9))
}

func TestHandBuiltScheduleIsFeasible(t *testing.T) {
	f, err := Build(bind(t, singleOrder(4)), DefaultOptions(problem.Discrete))
	require.NoError(t, err)

	// Start at slot 1, complete at 3, ship at 3 on time.
	good := map[string]float64{
		"x_1_1_1": 1, "u_1": 1, "start_1": 1, "completion_1": 3,
		"prod_1_3": 1, "ship_1_3": 1, "has_inv_1_3": 1, "ship_time_1": 3, "flow_1": 2,
		"wip_ind_1_1": 1, "wip_ind_1_2": 1, "wip_1": 1, "wip_2": 1,
		"used_1": 1, "used_2": 1, "used_max": 1, "used_range": 1,
	}
	values := solution(t, f.Model, good)
	assert.Empty(t, f.Model.Violations(values, 1e-9))

	// 0.5·(4·2 + 6·2) + 0.3·5 + 0.2·1
	assert.InDelta(t, 11.7, f.Model.ObjectiveValue(values), 1e-9)

	// Starting twice breaks assignment and no-overlap.
	good["x_1_1_2"] = 1
	var names []string
	for _, v := range f.Model.Violations(solution(t, f.Model, good), 1e-9) {
		names = append(names, v.Name)
	}
	assert.Contains(t, names, "one_assignment_1")
	assert.Contains(t, names, "no_overlap_1_2")
}

func TestLateFlagMustMatchLateness(t *testing.T) {
	d := singleOrder(4)
	d.DueDate = []float64{2}
	f, err := Build(bind(t, d), DefaultOptions(problem.Discrete))
	require.NoError(t, err)

	base := map[string]float64{
		"x_1_1_1": 1, "u_1": 1, "start_1": 1, "completion_1": 3,
		"prod_1_3": 1, "ship_1_3": 1, "has_inv_1_3": 1, "ship_time_1": 3, "flow_1": 2,
		"wip_ind_1_1": 1, "wip_ind_1_2": 1, "wip_1": 1, "wip_2": 1,
		"used_1": 1, "used_2": 1, "used_max": 1, "used_range": 1,
	}

	base["lateness_1"], base["late_1"] = 1, 1
	assert.Empty(t, f.Model.Violations(solution(t, f.Model, base), 1e-9))

	base["late_1"] = 0
	assert.NotEmpty(t, f.Model.Violations(solution(t, f.Model, base), 1e-9), "late without the flag")

	base["lateness_1"], base["late_1"] = 2, 1
	assert.NotEmpty(t, f.Model.Violations(solution(t, f.Model, base), 1e-9), "lateness above ship time minus due")
}

func TestExplicitWorkersIndexStarts(t *testing.T) {
	opts := DefaultOptions(problem.Discrete)
	opts.Workers = Explicit
	opts.WorkerMovement = true
	f, err := Build(bind(t, twoOrdersWithSetup()), opts)
	require.NoError(t, err)

	workers := map[int]bool{}
	for _, st := range f.Vars.Starts {
		workers[st.Worker] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, workers)
	require.Len(t, f.Vars.Movement, 2)
	assert.Len(t, f.Vars.Movement[0], 7)
	assert.Len(t, f.Vars.Working, 2)
}

func TestContinuousStructure(t *testing.T) {
	f, err := Build(bind(t, continuousCase()), DefaultOptions(problem.Continuous))
	require.NoError(t, err)

	assert.Len(t, f.Vars.Before, 3)
	assert.Len(t, f.Vars.Event, 6)
	assert.Len(t, f.Vars.Active, 3)
	assert.Len(t, f.Vars.TypeInv, 2)

	m := f.Model
	diag, ok := m.Lookup("shipped_2_2")
	require.True(t, ok)
	assert.Equal(t, 1.0, m.Var(diag).Lower)

	ship, ok := m.Lookup("ship_1")
	require.True(t, ok)
	assert.Equal(t, 5.0, m.Var(ship).Lower, "no early shipping")

	groups := m.Stats().RowsByGroup
	assert.Zero(t, groups[GroupWorker])
	assert.Positive(t, groups[GroupCapacity])
}

func TestContinuousPairsThatCannotFitAreExclusive(t *testing.T) {
	d := continuousCase()
	d.Horizon = 6
	f, err := Build(bind(t, d), DefaultOptions(problem.Continuous))
	require.NoError(t, err)

	// Type 1 (3 or 4) and type 2 (2 or 2.5) fit together on line 1 only
	// (3+2+1 = 6), never on line 2 (4+2.5+1 > 6).
	var exclusive []string
	for _, r := range f.Model.Rows() {
		if strings.HasPrefix(r.Name, "exclusive_") {
			exclusive = append(exclusive, r.Name)
		}
	}
	assert.Contains(t, exclusive, "exclusive_1_2_2")
	assert.NotContains(t, exclusive, "exclusive_1_2_1")
}

func TestObjectiveParts(t *testing.T) {
	f, err := Build(bind(t, twoOrdersWithSetup()), DefaultOptions(problem.Discrete))
	require.NoError(t, err)
	for _, term := range Terms {
		_, ok := f.Parts[term]
		assert.True(t, ok, term)
	}
	assert.Empty(t, f.Parts[TermMovement].Terms)
	assert.Equal(t, 0.5, f.Weight(TermWIP))
}

// violated lists the names of the rows and columns values break.
func violated(m *milp.Model, values []float64) []string {
	var names []string
	for _, v := range m.Violations(values, 1e-9) {
		names = append(names, v.Name)
	}
	return names
}

// sequencedPair has two orders of different types on one line and one
// demand per type, so every continuous row family has something to bind.
func sequencedPair() problem.Data {
	return problem.Data{
		Mode:             problem.Continuous,
		Types:            2,
		Orders:           2,
		Demands:          2,
		Lines:            1,
		Horizon:          10,
		ProcessingTime:   [][]float64{{3}, {2}},
		TypeSetupTime:    [][]float64{{0, 1}, {1, 0}},
		OrderType:        []int{1, 2},
		InitialInventory: []int{0, 0},
		DueDate:          []float64{6, 8},
		DemandType:       []int{1, 2},
		DemandQty:        []int{1, 1},
	}
}

// sequencedSchedule runs order 1 on [0, 3] and order 2 on [4, 6] after a
// one unit changeover, then ships demand 1 at 6 and demand 2 at 8.
func sequencedSchedule() map[string]float64 {
	return map[string]float64{
		"x_1_1": 1, "x_2_1": 1, "u_1": 1, "before_1_2": 1,
		"start_1": 0, "completion_1": 3, "start_2": 4, "completion_2": 6,

		// events are start_1, start_2, completion_1, completion_2
		"event_1": 0, "event_2": 4, "event_3": 3, "event_4": 6,
		"started_1_1": 1, "started_1_2": 1, "started_1_3": 1, "started_1_4": 1,
		"notcomplete_1_1": 1, "active_1_1": 1,
		"started_2_2": 1, "started_2_4": 1,
		"notcomplete_2_1": 1, "notcomplete_2_2": 1, "notcomplete_2_3": 1, "active_2_2": 1,
		"used_1": 1, "used_2": 1, "used_max": 1, "used_range": 1,

		"ship_1": 6, "ship_2": 8,
		"shipped_1_1": 1, "shipped_2_2": 1, "shipped_1_2": 1,
		"prod_order_1_1": 1, "prod_order_2_1": 1, "prod_order_1_2": 1, "prod_order_2_2": 1,
		"prod_before_1_1": 1, "prod_before_2_1": 1, "prod_before_1_2": 1, "prod_before_2_2": 1,
		"inv_2_1": 1,
	}
}

func TestContinuousSequencedScheduleIsFeasible(t *testing.T) {
	f, err := Build(bind(t, sequencedPair()), DefaultOptions(problem.Continuous))
	require.NoError(t, err)
	m := f.Model

	good := sequencedSchedule()
	assert.Empty(t, violated(m, solution(t, m, good)))

	t.Run("activity must follow start and completion", func(t *testing.T) {
		bad := sequencedSchedule()
		bad["active_1_1"], bad["used_1"] = 0, 0
		assert.Contains(t, violated(m, solution(t, m, bad)), "active_both_1_1")

		bad = sequencedSchedule()
		bad["notcomplete_1_3"] = 1
		assert.Contains(t, violated(m, solution(t, m, bad)), "notcomplete_true_1_3", "order 1 is complete at its own completion event")
	})

	t.Run("production must be counted before the shipment", func(t *testing.T) {
		bad := sequencedSchedule()
		bad["prod_order_2_1"], bad["prod_before_2_1"], bad["inv_2_1"] = 0, 0, 0
		assert.Contains(t, violated(m, solution(t, m, bad)), "order_after_shipping_2_1")
	})

	t.Run("shipment order must match ship times", func(t *testing.T) {
		bad := sequencedSchedule()
		bad["shipped_2_1"], bad["inv_2_1"] = 1, 0
		assert.Contains(t, violated(m, solution(t, m, bad)), "shipped_before_2_1")

		bad = sequencedSchedule()
		bad["shipped_1_2"], bad["inv_1_2"] = 0, 1
		assert.Contains(t, violated(m, solution(t, m, bad)), "shipped_after_1_2")
	})
}

func TestContinuousOverlapBreaksSequencing(t *testing.T) {
	f, err := Build(bind(t, sequencedPair()), DefaultOptions(problem.Continuous))
	require.NoError(t, err)
	m := f.Model

	// Order 2 on [2, 4] overlaps order 1 on [0, 3] whichever way the pair
	// is sequenced.
	overlap := sequencedSchedule()
	overlap["start_2"], overlap["completion_2"], overlap["event_2"], overlap["event_4"] = 2, 4, 2, 4

	overlap["before_1_2"] = 1
	names := violated(m, solution(t, m, overlap))
	assert.Contains(t, names, "sequence_forward_1_2_1")
	assert.NotContains(t, names, "sequence_backward_1_2_1")

	overlap["before_1_2"] = 0
	names = violated(m, solution(t, m, overlap))
	assert.Contains(t, names, "sequence_backward_1_2_1")
	assert.NotContains(t, names, "sequence_forward_1_2_1")

	// Back to back without the changeover is also an overlap.
	tight := sequencedSchedule()
	tight["start_2"], tight["completion_2"], tight["event_2"] = 3, 5, 3
	assert.Contains(t, violated(m, solution(t, m, tight)), "sequence_forward_1_2_1")
}

func TestExplicitWorkerMustBeAvailable(t *testing.T) {
	d := singleOrder(4)
	d.Workers = 2
	d.WorkerAvailability = [][]int{{1, 1, 1, 1}, {0, 0, 1, 1}}
	opts := DefaultOptions(problem.Discrete)
	opts.Workers = Explicit
	opts.WorkerMovement = true
	f, err := Build(bind(t, d), opts)
	require.NoError(t, err)
	m := f.Model

	schedule := func(worker string) map[string]float64 {
		return map[string]float64{
			"x_1_1_1_" + worker: 1, "working_" + worker + "_1": 1, "working_" + worker + "_2": 1,
			"u_1": 1, "start_1": 1, "completion_1": 3,
			"prod_1_3": 1, "ship_1_3": 1, "has_inv_1_3": 1, "ship_time_1": 3, "flow_1": 2,
			"wip_ind_1_1": 1, "wip_ind_1_2": 1, "wip_1": 1, "wip_2": 1,
			"used_1": 1, "used_2": 1, "used_max": 1, "used_range": 1,
		}
	}

	assert.Empty(t, violated(m, solution(t, m, schedule("1"))))
	assert.ElementsMatch(t, []string{"worker_availability_2_1", "worker_availability_2_2"},
		violated(m, solution(t, m, schedule("2"))))

	// Work that is not backed by a start is rejected too.
	idle := schedule("1")
	idle["working_2_3"], idle["used_3"] = 1, 1
	assert.Contains(t, violated(m, solution(t, m, idle)), "worker_working_2_3")
}

func TestDiscreteSetupWindowIsEnforced(t *testing.T) {
	f, err := Build(bind(t, twoOrdersWithSetup()), DefaultOptions(problem.Discrete))
	require.NoError(t, err)
	m := f.Model

	setupRows := func(values map[string]float64) []string {
		var out []string
		for _, n := range violated(m, solution(t, m, values)) {
			if strings.HasPrefix(n, "setup_") {
				out = append(out, n)
			}
		}
		return out
	}

	// Order 1 occupies slots 1 and 2; the changeover to order 2 takes slot 3.
	assert.Equal(t, []string{"setup_1_2_1_1"}, setupRows(map[string]float64{"x_1_1_1": 1, "x_2_1_3": 1}))
	assert.Empty(t, setupRows(map[string]float64{"x_1_1_1": 1, "x_2_1_4": 1}))
}
