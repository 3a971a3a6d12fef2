package formulation

import (
	"github.com/popmonkey/packing_solver_go/internal/milp"
)

func (s *state) discreteCapacity() {
	in, b := s.in, s.b
	n, lines, T := in.NumOrders(), in.NumLines(), in.NumSlots()

	// At most one order occupies a line in any slot.
	for j := 0; j < lines; j++ {
		for t := 1; t <= T; t++ {
			cover := s.coverLine[j][t-1]
			if len(cover) == 0 {
				continue
			}
			e := s.sumStarts(cover)
			if s.opts.LineGating {
				e.Add(s.v.LineUsed[j], -1)
				b.AddRow(GroupCapacity, name("no_overlap", j+1, t), e, milp.LE, 0)
			} else {
				b.AddRow(GroupCapacity, name("no_overlap", j+1, t), e, milp.LE, 1)
			}
		}
	}

	// A start of i blocks starts of k on the same line during the changeover
	// window that follows i's completion.
	if s.opts.SetupTimes && in.HasSetup() {
		for i := 0; i < n; i++ {
			for j := 0; j < lines; j++ {
				p := in.Slots(i, j)
				for t := 1; t+p <= T; t++ {
					group := s.startAt[i][j][t-1]
					if len(group) == 0 {
						continue
					}
					for k := 0; k < n; k++ {
						setup := in.SetupSlots(i, k, j)
						if k == i || setup == 0 {
							continue
						}
						var window []int
						for t2 := t + p; t2 < t+p+setup && t2 <= T; t2++ {
							window = append(window, s.startAt[k][j][t2-1]...)
						}
						if len(window) == 0 {
							continue
						}
						e := s.sumStarts(group)
						e.AddExpr(s.sumStarts(window), 1)
						b.AddRow(GroupCapacity, name("setup", i+1, k+1, j+1, t), e, milp.LE, 1)
					}
				}
			}
		}
	}

	s.reservedLineCapacity(func(e *milp.Expr) {
		for _, st := range s.v.Starts {
			e.Add(st.Var, in.Processing(st.Order, st.Line))
		}
	})

	for j := 0; j < lines; j++ {
		s.lineInUse(j, s.sumStarts(s.onLine[j]), len(s.onLine[j]))
	}
}

func (s *state) continuousCapacity() {
	in, b := s.in, s.b
	n, lines := in.NumOrders(), in.NumLines()
	// Any schedule fits in [0, T], so T plus the largest changeover bounds
	// every start-minus-completion gap a disjunction has to relax.
	bigM := in.Horizon() + in.MaxSetup()

	for i := 0; i < n; i++ {
		e := milp.Sum(s.v.Completion[i])
		e.Add(s.v.Start[i], -1)
		for j := 0; j < lines; j++ {
			e.Add(s.v.Assign[i][j], -in.Processing(i, j))
		}
		b.AddRow(GroupCapacity, name("completion_time", i+1), e, milp.EQ, 0)
	}

	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			before, hasPair := s.v.Before[Pair{i, k}]
			for j := 0; j < lines; j++ {
				xi, xk := s.v.Assign[i][j], s.v.Assign[k][j]
				if !hasPair || !s.pairFits(i, k, j) {
					b.AddRow(GroupCapacity, name("exclusive", i+1, k+1, j+1), milp.Sum(xi, xk), milp.LE, 1)
					continue
				}
				forward := milp.Sum(s.v.Start[k])
				forward.Add(s.v.Completion[i], -1)
				b.Implies(GroupCapacity, name("sequence_forward", i+1, k+1, j+1),
					[]milp.Expr{milp.When(xi), milp.When(xk), milp.When(before)},
					forward, milp.GE, in.Setup(i, k, j), bigM)

				backward := milp.Sum(s.v.Start[i])
				backward.Add(s.v.Completion[k], -1)
				b.Implies(GroupCapacity, name("sequence_backward", i+1, k+1, j+1),
					[]milp.Expr{milp.When(xi), milp.When(xk), milp.WhenNot(before)},
					backward, milp.GE, in.Setup(k, i, j), bigM)
			}
		}
	}

	s.reservedLineCapacity(func(e *milp.Expr) {
		for i := 0; i < n; i++ {
			for j := 0; j < lines; j++ {
				e.Add(s.v.Assign[i][j], in.Processing(i, j))
			}
		}
	})

	for j := 0; j < lines; j++ {
		col := make([]milp.Var, n)
		for i := 0; i < n; i++ {
			col[i] = s.v.Assign[i][j]
		}
		s.lineInUse(j, milp.Sum(col...), n)
	}
}

// reservedLineCapacity caps total processing at (1-α)·J·T.
func (s *state) reservedLineCapacity(fill func(*milp.Expr)) {
	var e milp.Expr
	fill(&e)
	capacity := (1 - s.in.ReservedCapacity()) * float64(s.in.NumLines()) * s.in.Horizon()
	s.b.AddRow(GroupCapacity, "reserved_line_capacity", e, milp.LE, capacity)
}

// lineInUse ties u[j] to the assignments on line j. count is the number of
// assignment columns on the line and so the most the sum can reach.
func (s *state) lineInUse(j int, assigned milp.Expr, count int) {
	u := s.v.LineUsed[j]
	lower := milp.Sum(u)
	lower.AddExpr(assigned, -1)
	s.b.AddRow(GroupCapacity, name("line_in_use_lower", j+1), lower, milp.LE, 0)
	if count == 0 {
		s.b.AddRow(GroupCapacity, name("line_in_use_upper", j+1), milp.Sum(u), milp.LE, 0)
		return
	}
	s.b.UnlessLE(GroupCapacity, name("line_in_use_upper", j+1), u, assigned, 0, float64(count))
}
