package solution

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/milp"
	"github.com/popmonkey/packing_solver_go/internal/problem"
	"github.com/popmonkey/packing_solver_go/internal/solver"
)

const places = 4

// Extract interprets res against the formulation it solved.
func Extract(f *formulation.Formulation, res *solver.Result) (*Solution, error) {
	if res == nil || !res.Status.HasSolution() {
		status := solver.StatusUnknown
		if res != nil {
			status = res.Status
		}
		return nil, fmt.Errorf("%w (status %s)", ErrNoSolution, status)
	}
	if len(res.Values) != f.Model.NumVars() {
		return nil, fmt.Errorf("result has %d values for %d columns", len(res.Values), f.Model.NumVars())
	}

	x := reader(res.Values)
	sol := &Solution{
		Mode:      f.Instance.Mode(),
		Status:    res.Status,
		Objective: res.Objective,
	}
	if f.Instance.Mode() == problem.Continuous {
		extractContinuous(f, x, sol)
	} else {
		extractDiscrete(f, x, sol)
	}
	sol.Breakdown = breakdown(f, res.Values)
	return sol, nil
}

type reader []float64

func (r reader) val(v milp.Var) float64   { return r[v] }
func (r reader) on(v milp.Var) bool       { return r[v] > 0.5 }
func (r reader) round(v milp.Var) float64 { return math.Round(r[v]) }

func extractDiscrete(f *formulation.Formulation, x reader, sol *Solution) {
	in, v := f.Instance, f.Vars
	n, T := in.NumOrders(), in.NumSlots()

	chosen := make(map[int]formulation.Start, n)
	for _, st := range v.Starts {
		if x.on(st.Var) {
			chosen[st.Order] = st
		}
	}

	for i := 0; i < n; i++ {
		o := Order{Order: i + 1, Due: in.Due(i)}
		if st, ok := chosen[i]; ok {
			o.Scheduled = true
			o.Line = st.Line + 1
			if st.Worker >= 0 {
				o.Worker = st.Worker + 1
			}
			o.Start = float64(st.Slot)
			o.Processing = in.Processing(i, st.Line)
			o.Completion = x.round(v.Completion[i])
		}
		if v.ShipTime != nil {
			o.ShipTime = x.round(v.ShipTime[i])
		} else {
			o.ShipTime = firstShipment(in, i)
		}
		o.Lateness = x.round(v.Lateness[i])
		o.Late = x.on(v.Late[i])
		if v.Early != nil {
			o.Earliness = x.round(v.Early[i])
		}
		sol.Orders = append(sol.Orders, o)

		series := InventorySeries{
			Entity:   i + 1,
			Levels:   make([]float64, T+1),
			Produced: make([]float64, T+1),
			Shipped:  make([]float64, T+1),
		}
		series.Levels[0] = float64(in.InitialInventory(i))
		for t := 1; t <= T; t++ {
			series.Levels[t] = x.round(v.Inv[i][t-1])
			series.Produced[t] = x.round(v.Prod[i][t-1])
			if v.Ship != nil {
				series.Shipped[t] = x.round(v.Ship[i][t-1])
			} else {
				series.Shipped[t] = float64(in.Shipping(i, t-1))
			}
		}
		sol.Inventory = append(sol.Inventory, series)
	}

	sol.WIP = lo.Map(v.WIP, func(w milp.Var, _ int) float64 { return x.round(w) })
	sol.Workforce = workforce(v, x, func(k int) float64 { return float64(k + 1) }, true)

	for w, row := range v.Movement {
		for k, mv := range row {
			if x.on(mv) {
				sol.Movements = append(sol.Movements, Movement{Worker: w + 1, Slot: k + 2})
			}
		}
	}
	sol.Lines = lines(v, x, sol.Orders)
}

func extractContinuous(f *formulation.Formulation, x reader, sol *Solution) {
	in, v := f.Instance, f.Vars

	for i := 0; i < in.NumOrders(); i++ {
		o := Order{Order: i + 1, Type: in.TypeOf(i) + 1}
		for j, a := range v.Assign[i] {
			if x.on(a) {
				o.Scheduled = true
				o.Line = j + 1
				o.Processing = in.Processing(i, j)
				o.Start = x.val(v.Start[i])
				o.Completion = x.val(v.Completion[i])
				break
			}
		}
		sol.Orders = append(sol.Orders, o)
	}

	for d := 0; d < in.NumDemands(); d++ {
		dm := Demand{
			Demand:   d + 1,
			Type:     in.DemandType(d) + 1,
			Qty:      in.DemandQty(d),
			Due:      in.DemandDue(d),
			ShipTime: x.val(v.DemandShip[d]),
			Lateness: x.val(v.Lateness[d]),
			Late:     x.on(v.Late[d]),
		}
		if v.Early != nil {
			dm.Earliness = x.val(v.Early[d])
		}
		sol.Demands = append(sol.Demands, dm)
	}

	for u, row := range v.TypeInv {
		sol.Inventory = append(sol.Inventory, InventorySeries{
			Entity: u + 1,
			Levels: lo.Map(row, func(c milp.Var, _ int) float64 { return x.round(c) }),
		})
	}

	sol.Workforce = workforce(v, x, func(e int) float64 { return x.val(v.Event[e]) }, false)
	sol.Lines = lines(v, x, sol.Orders)
}

func workforce(v formulation.Vars, x reader, at func(int) float64, integral bool) Workforce {
	value := x.val
	if integral {
		value = x.round
	}
	wf := Workforce{
		Max:   value(v.UsedMax),
		Min:   value(v.UsedMin),
		Range: value(v.UsedRange),
	}
	for k, u := range v.Used {
		wf.Points = append(wf.Points, WorkforcePoint{At: at(k), Used: value(u)})
	}
	return wf
}

func lines(v formulation.Vars, x reader, orders []Order) []Line {
	byLine := lo.GroupBy(lo.Filter(orders, func(o Order, _ int) bool { return o.Scheduled }),
		func(o Order) int { return o.Line })
	out := make([]Line, len(v.LineUsed))
	for j, u := range v.LineUsed {
		out[j] = Line{
			Line:   j + 1,
			Used:   x.on(u),
			Orders: lo.Map(byLine[j+1], func(o Order, _ int) int { return o.Order }),
		}
	}
	return out
}

func firstShipment(in *problem.Instance, i int) float64 {
	for t := 1; t <= in.NumSlots(); t++ {
		if in.Shipping(i, t-1) > 0 {
			return float64(t)
		}
	}
	return 0
}

func breakdown(f *formulation.Formulation, values []float64) Breakdown {
	var bd Breakdown
	total := decimal.Zero
	for _, t := range formulation.Terms {
		raw := decimal.NewFromFloat(f.Parts[t].Value(values))
		weight := decimal.NewFromFloat(f.Weight(t))
		weighted := raw.Mul(weight)
		total = total.Add(weighted)
		bd.Terms = append(bd.Terms, TermValue{
			Term:     t,
			Raw:      raw.Round(places),
			Weight:   weight,
			Weighted: weighted.Round(places),
		})
	}
	bd.Total = total.Round(places)

	late := f.Vars.Late
	if len(late) > 0 {
		onTime := lo.CountBy(late, func(l milp.Var) bool { return values[l] <= 0.5 })
		bd.OnTimeRate = decimal.NewFromInt(int64(onTime)).Div(decimal.NewFromInt(int64(len(late)))).Round(places)
	}
	return bd
}
