package formulation

import (
	"github.com/popmonkey/packing_solver_go/internal/milp"
)

func (s *state) assignmentSense() milp.Sense {
	if s.opts.Assignment == Optional {
		return milp.LE
	}
	return milp.EQ
}

// discreteAssignment: every order starts once over (line, slot[, worker]).
func (s *state) discreteAssignment() {
	n := s.in.NumOrders()
	perOrder := make([]milp.Expr, n)
	for _, st := range s.v.Starts {
		perOrder[st.Order].Add(st.Var, 1)
	}
	for i := 0; i < n; i++ {
		s.b.AddRow(GroupAssignment, name("one_assignment", i+1), perOrder[i], s.assignmentSense(), 1)
	}
}

// continuousAssignment: every order is put on at most (or exactly) one line.
func (s *state) continuousAssignment() {
	for i, row := range s.v.Assign {
		s.b.AddRow(GroupAssignment, name("one_assignment", i+1), milp.Sum(row...), s.assignmentSense(), 1)
	}
}
