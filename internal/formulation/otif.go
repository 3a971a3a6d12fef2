package formulation

import (
	"math"

	"github.com/popmonkey/packing_solver_go/internal/milp"
)

func (s *state) discreteOTIF() {
	in, b := s.in, s.b
	for i := 0; i < in.NumOrders(); i++ {
		start := milp.Sum(s.v.Start[i])
		completion := milp.Sum(s.v.Completion[i])
		for _, st := range s.v.Starts {
			if st.Order != i {
				continue
			}
			start.Add(st.Var, -float64(st.Slot))
			completion.Add(st.Var, -float64(st.Slot+in.Slots(i, st.Line)))
		}
		b.AddRow(GroupOTIF, name("start_time", i+1), start, milp.EQ, 0)
		b.AddRow(GroupOTIF, name("completion_time", i+1), completion, milp.EQ, 0)

		basis := milp.Sum(s.v.Completion[i])
		if s.opts.Lateness == ByShipTime {
			basis = milp.Sum(s.v.ShipTime[i])
		}
		s.otifRows(i, basis, in.Due(i), 1)
	}
}

func (s *state) continuousOTIF() {
	for d := 0; d < s.in.NumDemands(); d++ {
		s.otifRows(d, milp.Sum(s.v.DemandShip[d]), s.in.DemandDue(d), s.opts.Epsilon)
	}
}

// otifRows links lateness[k] and late[k] to basis b and due date due so that
// lateness = max(0, b - due) and late = 1 exactly when lateness > 0; eps is
// the smallest positive lateness the time model can express. The column
// bounds keep b and lateness in [0, T], which sizes every M below.
func (s *state) otifRows(k int, basis milp.Expr, due, eps float64) {
	b := s.b
	T := s.in.Horizon()
	lateness, late := s.v.Lateness[k], s.v.Late[k]

	lower := milp.Sum(lateness)
	lower.AddExpr(basis, -1)
	b.AddRow(GroupOTIF, name("lateness_lower", k+1), lower, milp.GE, -due)

	b.UnlessLE(GroupOTIF, name("late_upper", k+1), late, milp.Sum(lateness), 0, T)
	b.ImplyGE(GroupOTIF, name("late_lower", k+1), late, basis, due, math.Max(T, due))
	b.ImplyGE(GroupOTIF, name("late_positive", k+1), late, milp.Sum(lateness), eps, eps)
	b.ImplyLE(GroupOTIF, name("lateness_cap", k+1), late, lower, -due, T+due)

	if s.v.Early == nil {
		return
	}
	early := s.v.Early[k]
	gap := milp.Sum(early)
	gap.AddExpr(basis, 1)
	b.AddRow(GroupOTIF, name("early_lower", k+1), gap, milp.GE, due)
	b.ImplyLE(GroupOTIF, name("early_on_time", k+1), late, milp.Sum(early), 0, due)
	b.UnlessLE(GroupOTIF, name("early_cap", k+1), late, gap, due, T)
}
