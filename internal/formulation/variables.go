package formulation

import (
	"math"

	"github.com/popmonkey/packing_solver_go/internal/milp"
)

// discreteVars declares every discrete column and the start index tables.
// Start columns exist only where the order completes within the horizon,
// so no constraint ever references a slot outside 1..T.
func (s *state) discreteVars() {
	in, b := s.in, s.b
	n, lines, w, T := in.NumOrders(), in.NumLines(), in.NumWorkers(), in.NumSlots()
	horizon := float64(T)

	workers := []int{-1}
	if s.opts.Workers == Explicit {
		workers = make([]int, w)
		for k := range workers {
			workers[k] = k
		}
	}

	s.coverLine = make([][][]int, lines)
	for j := range s.coverLine {
		s.coverLine[j] = make([][]int, T)
	}
	s.coverOrder = make([][][]int, n)
	s.doneAt = make([][][]int, n)
	s.startAt = make([][][][]int, n)
	for i := 0; i < n; i++ {
		s.coverOrder[i] = make([][]int, T)
		s.doneAt[i] = make([][]int, T)
		s.startAt[i] = make([][][]int, lines)
		for j := range s.startAt[i] {
			s.startAt[i][j] = make([][]int, T)
		}
	}
	if s.opts.Workers == Explicit {
		s.coverWorker = make([][][]int, w)
		for k := range s.coverWorker {
			s.coverWorker[k] = make([][]int, T)
		}
	}
	s.onLine = make([][]int, lines)

	for i := 0; i < n; i++ {
		for j := 0; j < lines; j++ {
			p := in.Slots(i, j)
			for t := 1; t+p <= T; t++ {
				for _, wk := range workers {
					var v milp.Var
					if wk < 0 {
						v = b.NewVar(name("x", i+1, j+1, t), milp.Binary, 0, 1)
					} else {
						v = b.NewVar(name("x", i+1, j+1, t, wk+1), milp.Binary, 0, 1)
					}
					a := len(s.v.Starts)
					s.v.Starts = append(s.v.Starts, Start{Order: i, Line: j, Slot: t, Worker: wk, Var: v})
					s.onLine[j] = append(s.onLine[j], a)
					s.startAt[i][j][t-1] = append(s.startAt[i][j][t-1], a)
					s.doneAt[i][t+p-1] = append(s.doneAt[i][t+p-1], a)
					for tau := t; tau < t+p; tau++ {
						s.coverLine[j][tau-1] = append(s.coverLine[j][tau-1], a)
						s.coverOrder[i][tau-1] = append(s.coverOrder[i][tau-1], a)
						if wk >= 0 {
							s.coverWorker[wk][tau-1] = append(s.coverWorker[wk][tau-1], a)
						}
					}
				}
			}
		}
	}

	s.v.LineUsed = make([]milp.Var, lines)
	for j := range s.v.LineUsed {
		s.v.LineUsed[j] = b.NewVar(name("u", j+1), milp.Binary, 0, 1)
	}

	s.v.Start = make([]milp.Var, n)
	s.v.Completion = make([]milp.Var, n)
	s.v.Lateness = make([]milp.Var, n)
	s.v.Late = make([]milp.Var, n)
	for i := 0; i < n; i++ {
		s.v.Start[i] = b.NewVar(name("start", i+1), milp.Integer, 0, horizon)
		s.v.Completion[i] = b.NewVar(name("completion", i+1), milp.Integer, 0, horizon)
		s.v.Lateness[i] = b.NewVar(name("lateness", i+1), milp.Integer, 0, horizon)
		s.v.Late[i] = b.NewVar(name("late", i+1), milp.Binary, 0, 1)
	}
	if s.opts.TrackEarliness {
		s.v.Early = make([]milp.Var, n)
		for i := 0; i < n; i++ {
			s.v.Early[i] = b.NewVar(name("early", i+1), milp.Integer, 0, in.Due(i))
		}
	}

	s.v.Prod = slotVars(b, "prod", n, T, milp.Binary, func(int) float64 { return 1 })
	s.v.Inv = slotVars(b, "inv", n, T, milp.Integer, func(i int) float64 {
		return float64(in.InitialInventory(i) + 1)
	})

	s.v.Flow = make([]milp.Var, n)
	if s.opts.Shipping == Decision {
		s.v.Ship = slotVars(b, "ship", n, T, milp.Binary, func(int) float64 { return 1 })
		s.v.HasInv = slotVars(b, "has_inv", n, T, milp.Binary, func(int) float64 { return 1 })
		s.v.ShipTime = make([]milp.Var, n)
		for i := 0; i < n; i++ {
			s.v.ShipTime[i] = b.NewVar(name("ship_time", i+1), milp.Integer, 1, horizon)
			s.v.Flow[i] = b.NewVar(name("flow", i+1), milp.Integer, 0, horizon)
		}
	} else {
		for i := 0; i < n; i++ {
			s.v.Flow[i] = b.NewVar(name("flow", i+1), milp.Integer, 0, math.Max(horizon, s.scheduledShipTime(i)))
		}
	}

	s.v.WIPInd = slotVars(b, "wip_ind", n, T, milp.Binary, func(int) float64 { return 1 })
	s.v.WIP = make([]milp.Var, T)
	for t := 1; t <= T; t++ {
		s.v.WIP[t-1] = b.NewVar(name("wip", t), milp.Integer, 0, float64(n))
	}

	maxUsed := float64(min(n, lines))
	if s.opts.Workers == Explicit {
		s.v.Working = slotVars(b, "working", w, T, milp.Binary, func(int) float64 { return 1 })
		maxUsed = float64(min(w, lines))
		if s.opts.WorkerMovement {
			s.v.Movement = make([][]milp.Var, w)
			for k := 0; k < w; k++ {
				s.v.Movement[k] = make([]milp.Var, 0, T)
				for t := 2; t <= T; t++ {
					s.v.Movement[k] = append(s.v.Movement[k], b.NewVar(name("movement", k+1, t), milp.Binary, 0, 1))
				}
			}
		}
	}

	s.v.Used = make([]milp.Var, T)
	for t := 1; t <= T; t++ {
		s.v.Used[t-1] = b.NewVar(name("used", t), milp.Integer, 0, maxUsed)
	}
	s.v.UsedMax = b.NewVar("used_max", milp.Integer, 0, maxUsed)
	s.v.UsedMin = b.NewVar("used_min", milp.Integer, 0, maxUsed)
	s.v.UsedRange = b.NewVar("used_range", milp.Integer, 0, maxUsed)

	if s.opts.WorkforceDeviation {
		s.v.Above = make([]milp.Var, T)
		s.v.Below = make([]milp.Var, T)
		for t := 1; t <= T; t++ {
			s.v.Above[t-1] = b.NewVar(name("above", t), milp.Continuous, 0, maxUsed)
			s.v.Below[t-1] = b.NewVar(name("below", t), milp.Continuous, 0, in.WorkforceTarget())
		}
	}
	if s.opts.WorkforceChanges {
		for t := 2; t <= T; t++ {
			s.v.Increase = append(s.v.Increase, b.NewVar(name("increase", t), milp.Integer, 0, maxUsed))
			s.v.Decrease = append(s.v.Decrease, b.NewVar(name("decrease", t), milp.Integer, 0, maxUsed))
			s.v.Change = append(s.v.Change, b.NewVar(name("change", t), milp.Integer, 0, maxUsed))
		}
	}
}

// scheduledShipTime is Σ_t t·ship(i,t) for a fixed schedule.
func (s *state) scheduledShipTime(i int) float64 {
	var total float64
	for t := 1; t <= s.in.NumSlots(); t++ {
		total += float64(t * s.in.Shipping(i, t-1))
	}
	return total
}

// slotVars declares an [n][T] block named prefix_i_t.
func slotVars(b *milp.Builder, prefix string, n, T int, kind milp.VarKind, upper func(i int) float64) [][]milp.Var {
	out := make([][]milp.Var, n)
	for i := 0; i < n; i++ {
		out[i] = make([]milp.Var, T)
		for t := 1; t <= T; t++ {
			out[i][t-1] = b.NewVar(name(prefix, i+1, t), kind, 0, upper(i))
		}
	}
	return out
}

// continuousVars declares the event-based columns. Two orders get a
// sequencing binary only if some line can host both within the horizon.
func (s *state) continuousVars() {
	in, b := s.in, s.b
	n, lines, types, demands := in.NumOrders(), in.NumLines(), in.NumTypes(), in.NumDemands()
	T := in.Horizon()

	s.v.Assign = make([][]milp.Var, n)
	for i := 0; i < n; i++ {
		s.v.Assign[i] = make([]milp.Var, lines)
		for j := 0; j < lines; j++ {
			s.v.Assign[i][j] = b.NewVar(name("x", i+1, j+1), milp.Binary, 0, 1)
		}
	}
	s.v.LineUsed = make([]milp.Var, lines)
	for j := range s.v.LineUsed {
		s.v.LineUsed[j] = b.NewVar(name("u", j+1), milp.Binary, 0, 1)
	}

	s.v.Start = make([]milp.Var, n)
	s.v.Completion = make([]milp.Var, n)
	for i := 0; i < n; i++ {
		s.v.Start[i] = b.NewVar(name("start", i+1), milp.Continuous, 0, T)
		s.v.Completion[i] = b.NewVar(name("completion", i+1), milp.Continuous, 0, T)
	}

	s.v.Before = make(map[Pair]milp.Var)
	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			for j := 0; j < lines; j++ {
				if s.pairFits(i, k, j) {
					s.v.Before[Pair{i, k}] = b.NewVar(name("before", i+1, k+1), milp.Binary, 0, 1)
					break
				}
			}
		}
	}

	events := 2 * n
	s.v.Event = make([]milp.Var, events)
	for e := 0; e < events; e++ {
		s.v.Event[e] = b.NewVar(name("event", e+1), milp.Continuous, 0, T)
	}
	s.v.Started = eventVars(b, "started", n, events)
	s.v.NotComplete = eventVars(b, "notcomplete", n, events)
	s.v.Active = eventVars(b, "active", n, events)

	s.v.Used = make([]milp.Var, events)
	for e := 0; e < events; e++ {
		s.v.Used[e] = b.NewVar(name("used", e+1), milp.Continuous, 0, float64(n))
	}
	s.v.UsedMax = b.NewVar("used_max", milp.Continuous, 0, float64(n))
	s.v.UsedMin = b.NewVar("used_min", milp.Continuous, 0, float64(n))
	s.v.UsedRange = b.NewVar("used_range", milp.Continuous, 0, float64(n))

	s.v.DemandShip = make([]milp.Var, demands)
	s.v.Lateness = make([]milp.Var, demands)
	s.v.Late = make([]milp.Var, demands)
	for d := 0; d < demands; d++ {
		lo := 0.0
		if s.opts.NoEarlyShipping {
			lo = math.Min(in.DemandDue(d), T)
		}
		s.v.DemandShip[d] = b.NewVar(name("ship", d+1), milp.Continuous, lo, T)
		s.v.Lateness[d] = b.NewVar(name("lateness", d+1), milp.Continuous, 0, T)
		s.v.Late[d] = b.NewVar(name("late", d+1), milp.Binary, 0, 1)
	}
	if s.opts.TrackEarliness {
		s.v.Early = make([]milp.Var, demands)
		for d := 0; d < demands; d++ {
			s.v.Early[d] = b.NewVar(name("early", d+1), milp.Continuous, 0, in.DemandDue(d))
		}
	}

	s.v.Shipped = make([][]milp.Var, demands)
	for d1 := 0; d1 < demands; d1++ {
		s.v.Shipped[d1] = make([]milp.Var, demands)
		for d := 0; d < demands; d++ {
			lo := 0.0
			if d1 == d {
				lo = 1
			}
			s.v.Shipped[d1][d] = b.NewVar(name("shipped", d1+1, d+1), milp.Binary, lo, 1)
		}
	}
	s.v.ProdOrder = make([][]milp.Var, n)
	for i := 0; i < n; i++ {
		s.v.ProdOrder[i] = make([]milp.Var, demands)
		for d := 0; d < demands; d++ {
			s.v.ProdOrder[i][d] = b.NewVar(name("prod_order", i+1, d+1), milp.Binary, 0, 1)
		}
	}
	s.v.ProdBefore = make([][]milp.Var, types)
	s.v.TypeInv = make([][]milp.Var, types)
	for u := 0; u < types; u++ {
		count := float64(len(in.OrdersOfType(u)))
		s.v.ProdBefore[u] = make([]milp.Var, demands)
		s.v.TypeInv[u] = make([]milp.Var, demands)
		for d := 0; d < demands; d++ {
			s.v.ProdBefore[u][d] = b.NewVar(name("prod_before", u+1, d+1), milp.Integer, 0, count)
			s.v.TypeInv[u][d] = b.NewVar(name("inv", u+1, d+1), milp.Integer, 0, float64(in.InitialInventory(u))+count)
		}
	}
}

// pairFits reports whether orders i and k can both run on line j, in
// either order, within the horizon.
func (s *state) pairFits(i, k, j int) bool {
	in := s.in
	span := in.Processing(i, j) + in.Processing(k, j) + math.Min(in.Setup(i, k, j), in.Setup(k, i, j))
	return span <= in.Horizon()
}

func eventVars(b *milp.Builder, prefix string, n, events int) [][]milp.Var {
	out := make([][]milp.Var, n)
	for i := 0; i < n; i++ {
		out[i] = make([]milp.Var, events)
		for e := 0; e < events; e++ {
			out[i][e] = b.NewVar(name(prefix, i+1, e+1), milp.Binary, 0, 1)
		}
	}
	return out
}
