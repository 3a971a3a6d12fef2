package formulation

import (
	"github.com/popmonkey/packing_solver_go/internal/milp"
)

func (s *state) discreteWIP() {
	in, b := s.in, s.b
	n, T := in.NumOrders(), in.NumSlots()
	decided := s.opts.Shipping == Decision
	theta := s.opts.HasInventoryThreshold

	for i := 0; i < n; i++ {
		inv0 := float64(in.InitialInventory(i))

		for t := 1; t <= T; t++ {
			// prod[i,t] counts starts that complete exactly at t.
			prod := milp.Sum(s.v.Prod[i][t-1])
			prod.AddExpr(s.sumStarts(s.doneAt[i][t-1]), -1)
			b.AddRow(GroupWIP, name("production", i+1, t), prod, milp.EQ, 0)

			// Stock on hand before shipping in slot t.
			available := milp.Sum(s.v.Prod[i][t-1])
			if t == 1 {
				available.AddConst(inv0)
			} else {
				available.Add(s.v.Inv[i][t-2], 1)
			}

			balance := milp.Sum(s.v.Inv[i][t-1])
			balance.AddExpr(available, -1)
			if decided {
				balance.Add(s.v.Ship[i][t-1], 1)
				b.AddRow(GroupWIP, name("inventory_balance", i+1, t), balance, milp.EQ, 0)

				has := s.v.HasInv[i][t-1]
				// Available stock never exceeds opening stock plus one
				// produced unit carried and one produced now.
				b.UnlessLE(GroupWIP, name("has_inventory_upper", i+1, t), has, available, 0, inv0+2)
				b.ImplyGE(GroupWIP, name("has_inventory_lower", i+1, t), has, available, theta, theta)
				ship := milp.Sum(s.v.Ship[i][t-1])
				ship.Add(has, -1)
				b.AddRow(GroupWIP, name("ship_requires_inventory", i+1, t), ship, milp.LE, 0)
			} else {
				b.AddRow(GroupWIP, name("inventory_balance", i+1, t), balance, milp.EQ, -float64(in.Shipping(i, t-1)))
			}

			// wip_ind[i,t] is 1 exactly when i is in process or held in stock.
			ind := s.v.WIPInd[i][t-1]
			cover := s.sumStarts(s.coverOrder[i][t-1])
			lower := milp.Sum(ind)
			lower.AddExpr(cover, -1)
			b.AddRow(GroupWIP, name("wip_process", i+1, t), lower, milp.GE, 0)
			b.UnlessLE(GroupWIP, name("wip_inventory", i+1, t), ind, milp.Sum(s.v.Inv[i][t-1]), 0, inv0+1)
			upper := milp.Sum(ind)
			upper.AddExpr(cover, -1)
			upper.Add(s.v.Inv[i][t-1], -1)
			b.AddRow(GroupWIP, name("wip_indicator", i+1, t), upper, milp.LE, 0)
		}

		flow := milp.Sum(s.v.Flow[i])
		flow.Add(s.v.Start[i], 1)
		if decided {
			once := milp.Sum(s.v.Ship[i]...)
			b.AddRow(GroupWIP, name("ship_once", i+1), once, milp.EQ, 1)

			shipTime := milp.Sum(s.v.ShipTime[i])
			for t := 1; t <= T; t++ {
				shipTime.Add(s.v.Ship[i][t-1], -float64(t))
			}
			b.AddRow(GroupWIP, name("ship_time", i+1), shipTime, milp.EQ, 0)

			after := milp.Sum(s.v.ShipTime[i])
			after.Add(s.v.Completion[i], -1)
			b.AddRow(GroupWIP, name("ship_after_completion", i+1), after, milp.GE, 0)
			if s.opts.NoEarlyShipping {
				b.AddRow(GroupWIP, name("ship_not_early", i+1), milp.Sum(s.v.ShipTime[i]), milp.GE, in.Due(i))
			}

			flow.Add(s.v.ShipTime[i], -1)
			b.AddRow(GroupWIP, name("flow_time", i+1), flow, milp.EQ, 0)
		} else {
			b.AddRow(GroupWIP, name("flow_time", i+1), flow, milp.EQ, s.scheduledShipTime(i))
		}
	}

	for t := 1; t <= T; t++ {
		e := milp.Sum(s.v.WIP[t-1])
		for i := 0; i < n; i++ {
			e.Add(s.v.WIPInd[i][t-1], -1)
		}
		b.AddRow(GroupWIP, name("wip_count", t), e, milp.EQ, 0)
	}
}

func (s *state) continuousWIP() {
	in, b := s.in, s.b
	n, demands := in.NumOrders(), in.NumDemands()
	T, eps := in.Horizon(), s.opts.Epsilon

	for d := 0; d < demands; d++ {
		ship := s.v.DemandShip[d]

		for u := 0; u < in.NumTypes(); u++ {
			e := milp.Sum(s.v.ProdBefore[u][d])
			for _, i := range in.OrdersOfType(u) {
				e.Add(s.v.ProdOrder[i][d], -1)
			}
			b.AddRow(GroupWIP, name("track_produced", u+1, d+1), e, milp.EQ, 0)
		}

		for i := 0; i < n; i++ {
			po := s.v.ProdOrder[i][d]
			assigned := milp.Sum(s.v.Assign[i]...)
			gap := milp.Sum(s.v.Completion[i])
			gap.Add(ship, -1)

			b.ImplyLE(GroupWIP, name("order_before_shipping", i+1, d+1), po, gap, 0, T)
			counted := milp.Sum(po)
			counted.AddExpr(assigned, -1)
			b.AddRow(GroupWIP, name("order_assigned", i+1, d+1), counted, milp.LE, 0)
			b.Implies(GroupWIP, name("order_after_shipping", i+1, d+1),
				[]milp.Expr{milp.WhenNot(po), assigned}, gap, milp.GE, eps, T+eps)
		}

		for u := 0; u < in.NumTypes(); u++ {
			e := milp.Sum(s.v.TypeInv[u][d])
			e.Add(s.v.ProdBefore[u][d], -1)
			for _, d1 := range in.DemandsOfType(u) {
				e.Add(s.v.Shipped[d1][d], float64(in.DemandQty(d1)))
			}
			b.AddRow(GroupWIP, name("inventory_balance", u+1, d+1), e, milp.EQ, float64(in.InitialInventory(u)))
		}

		for d1 := 0; d1 < demands; d1++ {
			if d1 == d {
				continue
			}
			order := milp.Sum(s.v.DemandShip[d1])
			order.Add(ship, -1)
			shipped := s.v.Shipped[d1][d]
			b.ImplyLE(GroupWIP, name("shipped_before", d1+1, d+1), shipped, order, 0, T)
			b.UnlessGE(GroupWIP, name("shipped_after", d1+1, d+1), shipped, order, eps, T+eps)
		}

		if s.opts.NoEarlyShipping {
			b.AddRow(GroupWIP, name("ship_not_early", d+1), milp.Sum(ship), milp.GE, in.DemandDue(d))
		}
	}
}
