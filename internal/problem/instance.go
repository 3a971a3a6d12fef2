package problem

import (
	"math"

	"github.com/samber/lo"
)

// Instance is the validated, immutable view of Data. All indices are
// 0-based; callers report 1-based identities.
type Instance struct {
	mode    Mode
	orders  int
	lines   int
	workers int
	slots   int
	types   int
	demands int
	horizon float64

	proc      [][]float64
	setup     [][][]float64
	typeSetup [][]float64
	due       []float64
	priority  []float64
	avail     [][]bool
	inv0      []int
	ship      [][]int
	orderType []int
	demType   []int
	demQty    []int

	reserved float64
	target   float64
}

// Bind validates d and returns the bound instance. Nothing is derived from
// d before validation passes.
func Bind(d Data) (*Instance, error) {
	if err := Validate(&d); err != nil {
		return nil, err
	}
	mode := d.EffectiveMode()
	inst := &Instance{
		mode:     mode,
		orders:   d.Orders,
		lines:    d.Lines,
		reserved: d.ReservedCapacity,
		target:   d.WorkforceTarget,
		proc:     cloneMatrix(d.ProcessingTime),
	}

	switch mode {
	case Continuous:
		inst.types = d.Types
		inst.demands = d.Demands
		inst.horizon = d.Horizon
		inst.typeSetup = cloneMatrix(d.TypeSetupTime)
		if inst.typeSetup == nil {
			inst.typeSetup = zeros[float64](d.Types, d.Types)
		}
		inst.orderType = lo.Map(d.OrderType, func(id, _ int) int { return id - 1 })
		inst.demType = lo.Map(d.DemandType, func(id, _ int) int { return id - 1 })
		inst.demQty = append([]int(nil), d.DemandQty...)
		inst.due = append([]float64(nil), d.DueDate...)
		inst.priority = orOnes(d.Priority, d.Demands)
		inst.inv0 = orZeros(d.InitialInventory, d.Types)
	default:
		inst.workers = d.Workers
		inst.slots = d.TimeSlots
		inst.horizon = float64(d.TimeSlots)
		if d.SetupTime != nil {
			inst.setup = make([][][]float64, len(d.SetupTime))
			for i, plane := range d.SetupTime {
				inst.setup[i] = cloneMatrix(plane)
			}
		}
		inst.due = append([]float64(nil), d.DueDate...)
		inst.priority = orOnes(d.Priority, d.Orders)
		inst.inv0 = orZeros(d.InitialInventory, d.Orders)
		inst.avail = lo.Map(d.WorkerAvailability, func(row []int, _ int) []bool {
			return lo.Map(row, func(a, _ int) bool { return a == 1 })
		})
		inst.ship = cloneMatrix(d.ShippingSchedule)
	}
	return inst, nil
}

func (in *Instance) Mode() Mode       { return in.mode }
func (in *Instance) NumOrders() int   { return in.orders }
func (in *Instance) NumLines() int    { return in.lines }
func (in *Instance) NumWorkers() int  { return in.workers }
func (in *Instance) NumSlots() int    { return in.slots }
func (in *Instance) NumTypes() int    { return in.types }
func (in *Instance) NumDemands() int  { return in.demands }
func (in *Instance) Horizon() float64 { return in.horizon }

// Processing is the processing time of order i on line j. In continuous
// mode it is looked up through the order's type.
func (in *Instance) Processing(i, j int) float64 {
	if in.mode == Continuous {
		return in.proc[in.orderType[i]][j]
	}
	return in.proc[i][j]
}

// Slots is Processing as a slot count (discrete mode).
func (in *Instance) Slots(i, j int) int {
	return int(in.Processing(i, j))
}

// Setup is the changeover from order i to order k on line j (discrete).
// Without a setup matrix every changeover is zero.
func (in *Instance) Setup(i, k, j int) float64 {
	if in.mode == Continuous {
		return in.TypeSetup(in.orderType[i], in.orderType[k])
	}
	if in.setup == nil {
		return 0
	}
	return in.setup[i][k][j]
}

// SetupSlots rounds Setup up to whole slots.
func (in *Instance) SetupSlots(i, k, j int) int {
	return int(math.Ceil(in.Setup(i, k, j)))
}

// HasSetup reports whether any changeover is non-zero.
func (in *Instance) HasSetup() bool {
	return in.MaxSetup() > 0
}

func (in *Instance) TypeSetup(u, v int) float64 { return in.typeSetup[u][v] }

// Due is the due date of order i (discrete) or demand i (continuous).
func (in *Instance) Due(i int) float64 { return in.due[i] }

// Priority is the OTIF weight of order i (discrete) or demand i
// (continuous). It defaults to 1.
func (in *Instance) Priority(i int) float64 { return in.priority[i] }

// Available reports whether worker w may work in slot t (0-based).
func (in *Instance) Available(w, t int) bool { return in.avail[w][t] }

// InitialInventory is the opening stock of order i (discrete) or type u
// (continuous).
func (in *Instance) InitialInventory(i int) int { return in.inv0[i] }

// HasShippingSchedule reports whether a fixed shipping schedule was given.
func (in *Instance) HasShippingSchedule() bool { return in.ship != nil }

// Shipping is the fixed quantity of order i shipped in slot t (0-based);
// zero when no schedule was given.
func (in *Instance) Shipping(i, t int) int {
	if in.ship == nil {
		return 0
	}
	return in.ship[i][t]
}

func (in *Instance) ReservedCapacity() float64 { return in.reserved }
func (in *Instance) WorkforceTarget() float64  { return in.target }

func (in *Instance) TypeOf(i int) int        { return in.orderType[i] }
func (in *Instance) DemandType(d int) int    { return in.demType[d] }
func (in *Instance) DemandQty(d int) int     { return in.demQty[d] }
func (in *Instance) DemandDue(d int) float64 { return in.due[d] }

func (in *Instance) DemandPriority(d int) float64 { return in.priority[d] }

// OrdersOfType lists the orders of type u in index order.
func (in *Instance) OrdersOfType(u int) []int {
	var out []int
	for i, t := range in.orderType {
		if t == u {
			out = append(out, i)
		}
	}
	return out
}

// DemandsOfType lists the demands of type u in index order.
func (in *Instance) DemandsOfType(u int) []int {
	var out []int
	for d, t := range in.demType {
		if t == u {
			out = append(out, d)
		}
	}
	return out
}

// MaxSetup is the largest changeover time in the instance.
func (in *Instance) MaxSetup() float64 {
	if in.mode == Continuous {
		return lo.Max(lo.Flatten(in.typeSetup))
	}
	var m float64
	for _, plane := range in.setup {
		m = math.Max(m, lo.Max(lo.Flatten(plane)))
	}
	return m
}

// MaxDue is the latest due date.
func (in *Instance) MaxDue() float64 { return lo.Max(in.due) }

// TotalAvailability is Σ_w Σ_t a(w,t).
func (in *Instance) TotalAvailability() int {
	return lo.SumBy(in.avail, func(row []bool) int {
		return lo.Count(row, true)
	})
}

// AvailableAt is Σ_w a(w,t).
func (in *Instance) AvailableAt(t int) int {
	return lo.CountBy(in.avail, func(row []bool) bool { return row[t] })
}

func cloneMatrix[T any](m [][]T) [][]T {
	if m == nil {
		return nil
	}
	out := make([][]T, len(m))
	for i, row := range m {
		out[i] = append([]T(nil), row...)
	}
	return out
}

func zeros[T any](rows, cols int) [][]T {
	out := make([][]T, rows)
	for i := range out {
		out[i] = make([]T, cols)
	}
	return out
}

func orOnes(v []float64, n int) []float64 {
	if v != nil {
		return append([]float64(nil), v...)
	}
	return lo.Times(n, func(int) float64 { return 1 })
}

func orZeros(v []int, n int) []int {
	if v != nil {
		return append([]int(nil), v...)
	}
	return make([]int, n)
}
