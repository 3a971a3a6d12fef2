package formulation

import (
	"github.com/popmonkey/packing_solver_go/internal/milp"
)

// discreteWorkers binds worker activity to availability. With explicit
// workers each worker's activity is tracked per slot; when workers are only
// counted, availability caps the aggregate count.
func (s *state) discreteWorkers() {
	in, b := s.in, s.b
	T := in.NumSlots()
	capacity := (1 - in.ReservedCapacity()) * float64(in.TotalAvailability())

	if s.opts.Workers != Explicit {
		var total milp.Expr
		for t := 1; t <= T; t++ {
			b.AddRow(GroupWorker, name("worker_supply", t), milp.Sum(s.v.Used[t-1]), milp.LE, float64(in.AvailableAt(t-1)))
			total.Add(s.v.Used[t-1], 1)
		}
		b.AddRow(GroupWorker, "reserved_worker_capacity", total, milp.LE, capacity)
		return
	}

	var total milp.Expr
	for w := 0; w < in.NumWorkers(); w++ {
		for t := 1; t <= T; t++ {
			working := s.v.Working[w][t-1]
			e := milp.Sum(working)
			e.AddExpr(s.sumStarts(s.coverWorker[w][t-1]), -1)
			b.AddRow(GroupWorker, name("worker_working", w+1, t), e, milp.EQ, 0)

			avail := 0.0
			if in.Available(w, t-1) {
				avail = 1
			}
			b.AddRow(GroupWorker, name("worker_availability", w+1, t), milp.Sum(working), milp.LE, avail)
			total.Add(working, 1)
		}
	}
	b.AddRow(GroupWorker, "reserved_worker_capacity", total, milp.LE, capacity)

	if !s.opts.WorkerMovement {
		return
	}
	// movement[w,t] is forced to 1 when w starts an order on a line it did
	// not start one on in the previous slot.
	for w := 0; w < in.NumWorkers(); w++ {
		for t := 2; t <= T; t++ {
			mv := s.v.Movement[w][t-2]
			for j := 0; j < in.NumLines(); j++ {
				e := milp.Sum(mv)
				for i := 0; i < in.NumOrders(); i++ {
					for _, a := range s.startAt[i][j][t-1] {
						if s.v.Starts[a].Worker == w {
							e.Add(s.v.Starts[a].Var, -1)
						}
					}
					for _, a := range s.startAt[i][j][t-2] {
						if s.v.Starts[a].Worker == w {
							e.Add(s.v.Starts[a].Var, 1)
						}
					}
				}
				if len(e.Terms) == 1 {
					continue
				}
				b.AddRow(GroupWorker, name("movement", w+1, j+1, t), e, milp.GE, 0)
			}
		}
	}
}
