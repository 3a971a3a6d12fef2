package formulation

import (
	"github.com/popmonkey/packing_solver_go/internal/milp"
)

func (s *state) discreteObjective() {
	c := s.opts.Coefficients
	s.parts[TermOTIF] = s.otifPart()

	var wip milp.Expr
	for _, v := range s.v.WIP {
		wip.Add(v, c.WIPCount)
	}
	for _, v := range s.v.Flow {
		wip.Add(v, c.FlowTime)
	}
	for _, row := range s.v.Inv {
		for _, v := range row {
			wip.Add(v, c.Inventory)
		}
	}
	s.parts[TermWIP] = wip

	wf := milp.Expr{}
	wf.Add(s.v.UsedRange, c.Range)
	for t := range s.v.Above {
		wf.Add(s.v.Above[t], c.Deviation)
		wf.Add(s.v.Below[t], c.Deviation)
	}
	for _, v := range s.v.Change {
		wf.Add(v, c.Change)
	}
	s.parts[TermWorkforce] = wf

	s.parts[TermLine] = milp.Sum(s.v.LineUsed...)

	var move milp.Expr
	for _, row := range s.v.Movement {
		for _, v := range row {
			move.Add(v, 1)
		}
	}
	s.parts[TermMovement] = move

	s.compose()
}

func (s *state) continuousObjective() {
	c := s.opts.Coefficients
	s.parts[TermOTIF] = s.otifPart()

	var wip milp.Expr
	for _, row := range s.v.TypeInv {
		for _, v := range row {
			wip.Add(v, c.Inventory)
		}
	}
	s.parts[TermWIP] = wip

	wf := milp.Expr{}
	wf.Add(s.v.UsedRange, c.Range)
	s.parts[TermWorkforce] = wf
	s.parts[TermLine] = milp.Sum(s.v.LineUsed...)
	s.parts[TermMovement] = milp.Expr{}

	s.compose()
}

// otifPart is Σ priority·(c_late·late + c_lateness·lateness) over the OTIF
// subjects of the time model.
func (s *state) otifPart() milp.Expr {
	c := s.opts.Coefficients
	var e milp.Expr
	for k := range s.v.Late {
		p := s.in.Priority(k)
		e.Add(s.v.Late[k], p*c.Late)
		e.Add(s.v.Lateness[k], p*c.Lateness)
	}
	return e
}

func (s *state) compose() {
	var obj milp.Expr
	for _, t := range Terms {
		obj.AddExpr(s.parts[t], s.opts.Weights.Of(t))
	}
	s.b.SetObjective(obj)
}
