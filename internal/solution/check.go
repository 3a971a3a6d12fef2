package solution

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/problem"
)

const tol = 1e-6

// Check re-verifies the schedule invariants on extracted data and returns
// every violation joined into one error, or nil.
func Check(f *formulation.Formulation, sol *Solution) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	in, opts := f.Instance, f.Options

	if opts.Assignment == formulation.Strict {
		for _, o := range sol.Orders {
			if !o.Scheduled {
				add("order %d is not scheduled", o.Order)
			}
		}
	}

	for _, o := range sol.Orders {
		if o.Scheduled && math.Abs(o.Completion-(o.Start+o.Processing)) > tol {
			add("order %d: completion %g is not start %g + processing %g", o.Order, o.Completion, o.Start, o.Processing)
		}
		if o.Scheduled && o.Completion > in.Horizon()+tol {
			add("order %d completes at %g after the horizon", o.Order, o.Completion)
		}
	}

	scheduled := lo.Filter(sol.Orders, func(o Order, _ int) bool { return o.Scheduled })
	for line, orders := range lo.GroupBy(scheduled, func(o Order) int { return o.Line }) {
		sort.Slice(orders, func(a, b int) bool { return orders[a].Start < orders[b].Start })
		for k := 1; k < len(orders); k++ {
			prev, next := orders[k-1], orders[k]
			gap := setupBetween(f, prev, next, line)
			if next.Start < prev.Completion+gap-tol {
				add("line %d: order %d starts at %g before order %d is clear at %g", line, next.Order, next.Start, prev.Order, prev.Completion+gap)
			}
		}
	}

	if in.Mode() == problem.Continuous {
		for _, d := range sol.Demands {
			errs = append(errs, checkLateness(fmt.Sprintf("demand %d", d.Demand), d.ShipTime, d.Due, d.Lateness, d.Late)...)
		}
	} else {
		for _, o := range sol.Orders {
			basis := o.Completion
			if opts.Lateness == formulation.ByShipTime {
				basis = o.ShipTime
			}
			errs = append(errs, checkLateness(fmt.Sprintf("order %d", o.Order), basis, o.Due, o.Lateness, o.Late)...)
			if opts.Shipping == formulation.Decision && o.Scheduled && o.ShipTime < o.Completion-tol {
				add("order %d ships at %g before completing at %g", o.Order, o.ShipTime, o.Completion)
			}
		}
	}

	for _, s := range sol.Inventory {
		for t, level := range s.Levels {
			if level < -tol {
				add("inventory %d is negative (%g) at %d", s.Entity, level, t)
			}
			if t > 0 && s.Produced != nil {
				want := s.Levels[t-1] + s.Produced[t] - s.Shipped[t]
				if math.Abs(level-want) > tol {
					add("inventory %d at slot %d is %g, balance gives %g", s.Entity, t, level, want)
				}
			}
		}
	}

	wf := sol.Workforce
	if math.Abs(wf.Range-(wf.Max-wf.Min)) > tol {
		add("workforce range %g is not max %g - min %g", wf.Range, wf.Max, wf.Min)
	}
	for _, p := range wf.Points {
		if p.Used > wf.Max+tol || p.Used < wf.Min-tol {
			add("workforce %g at %g is outside [%g, %g]", p.Used, p.At, wf.Min, wf.Max)
		}
	}

	return errors.Join(errs...)
}

// checkLateness verifies lateness = max(0, basis - due) and late ⇔ lateness > 0.
func checkLateness(subject string, basis, due, lateness float64, late bool) []error {
	var errs []error
	want := math.Max(0, basis-due)
	if math.Abs(lateness-want) > tol {
		errs = append(errs, fmt.Errorf("%s: lateness %g, want %g", subject, lateness, want))
	}
	if late != (lateness > tol) {
		errs = append(errs, fmt.Errorf("%s: late flag %t with lateness %g", subject, late, lateness))
	}
	return errs
}

func setupBetween(f *formulation.Formulation, prev, next Order, line int) float64 {
	if !f.Options.SetupTimes && f.Instance.Mode() == problem.Discrete {
		return 0
	}
	if f.Instance.Mode() == problem.Discrete {
		return float64(f.Instance.SetupSlots(prev.Order-1, next.Order-1, line-1))
	}
	return f.Instance.Setup(prev.Order-1, next.Order-1, line-1)
}
