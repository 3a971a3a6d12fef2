package formulation

import (
	"github.com/popmonkey/packing_solver_go/internal/milp"
)

func (s *state) discreteWorkforce() {
	in, b := s.in, s.b
	T := in.NumSlots()

	for t := 1; t <= T; t++ {
		used := s.v.Used[t-1]
		e := milp.Sum(used)
		if s.opts.Workers == Explicit {
			for w := 0; w < in.NumWorkers(); w++ {
				e.Add(s.v.Working[w][t-1], -1)
			}
		} else {
			for j := 0; j < in.NumLines(); j++ {
				e.AddExpr(s.sumStarts(s.coverLine[j][t-1]), -1)
			}
		}
		b.AddRow(GroupWorkforce, name("workers_used", t), e, milp.EQ, 0)
	}
	s.usedSpread(s.v.Used)

	if s.opts.WorkforceDeviation {
		for t := 1; t <= T; t++ {
			e := milp.Sum(s.v.Used[t-1])
			e.Add(s.v.Above[t-1], -1)
			e.Add(s.v.Below[t-1], 1)
			b.AddRow(GroupWorkforce, name("deviation", t), e, milp.EQ, in.WorkforceTarget())
		}
	}
	if s.opts.WorkforceChanges {
		for t := 2; t <= T; t++ {
			k := t - 2
			e := milp.Sum(s.v.Used[t-1])
			e.Add(s.v.Used[t-2], -1)
			e.Add(s.v.Increase[k], -1)
			e.Add(s.v.Decrease[k], 1)
			b.AddRow(GroupWorkforce, name("change", t), e, milp.EQ, 0)

			total := milp.Sum(s.v.Change[k])
			total.Add(s.v.Increase[k], -1)
			total.Add(s.v.Decrease[k], -1)
			b.AddRow(GroupWorkforce, name("change_total", t), total, milp.EQ, 0)
		}
	}
}

// continuousWorkforce counts active orders at every start and completion
// event. active[i,e] = 1 iff start(i) <= event(e) < completion(i).
func (s *state) continuousWorkforce() {
	in, b := s.in, s.b
	n := in.NumOrders()
	T, eps := in.Horizon(), s.opts.Epsilon

	for i := 0; i < n; i++ {
		e := milp.Sum(s.v.Event[i])
		e.Add(s.v.Start[i], -1)
		b.AddRow(GroupWorkforce, name("event_start", i+1), e, milp.EQ, 0)
		c := milp.Sum(s.v.Event[n+i])
		c.Add(s.v.Completion[i], -1)
		b.AddRow(GroupWorkforce, name("event_completion", i+1), c, milp.EQ, 0)
	}

	for e := range s.v.Event {
		event := s.v.Event[e]
		for i := 0; i < n; i++ {
			started, open, active := s.v.Started[i][e], s.v.NotComplete[i][e], s.v.Active[i][e]

			sinceStart := milp.Sum(s.v.Start[i])
			sinceStart.Add(event, -1)
			b.ImplyLE(GroupWorkforce, name("started_true", i+1, e+1), started, sinceStart, 0, T)
			b.UnlessGE(GroupWorkforce, name("started_false", i+1, e+1), started, sinceStart, eps, T+eps)

			untilDone := milp.Sum(s.v.Completion[i])
			untilDone.Add(event, -1)
			b.ImplyGE(GroupWorkforce, name("notcomplete_true", i+1, e+1), open, untilDone, eps, T+eps)
			b.UnlessLE(GroupWorkforce, name("notcomplete_false", i+1, e+1), open, untilDone, 0, T)

			a1 := milp.Sum(active)
			a1.Add(started, -1)
			b.AddRow(GroupWorkforce, name("active_started", i+1, e+1), a1, milp.LE, 0)
			a2 := milp.Sum(active)
			a2.Add(open, -1)
			b.AddRow(GroupWorkforce, name("active_open", i+1, e+1), a2, milp.LE, 0)
			a3 := milp.Sum(active)
			a3.Add(started, -1)
			a3.Add(open, -1)
			b.AddRow(GroupWorkforce, name("active_both", i+1, e+1), a3, milp.GE, -1)
		}

		used := milp.Sum(s.v.Used[e])
		for i := 0; i < n; i++ {
			used.Add(s.v.Active[i][e], -1)
		}
		b.AddRow(GroupWorkforce, name("workers_used", e+1), used, milp.EQ, 0)
	}
	s.usedSpread(s.v.Used)
}

// usedSpread adds max >= used >= min and range = max - min.
func (s *state) usedSpread(used []milp.Var) {
	b := s.b
	for k, u := range used {
		hi := milp.Sum(s.v.UsedMax)
		hi.Add(u, -1)
		b.AddRow(GroupWorkforce, name("workers_max", k+1), hi, milp.GE, 0)
		lo := milp.Sum(u)
		lo.Add(s.v.UsedMin, -1)
		b.AddRow(GroupWorkforce, name("workers_min", k+1), lo, milp.GE, 0)
	}
	r := milp.Sum(s.v.UsedRange)
	r.Add(s.v.UsedMax, -1)
	r.Add(s.v.UsedMin, 1)
	b.AddRow(GroupWorkforce, "workforce_range", r, milp.EQ, 0)
}
