// Package solution reads a solver result back into schedule terms: what
// runs where and when, inventory and WIP over time, workforce use, and the
// priced objective breakdown.
package solution

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/popmonkey/packing_solver_go/internal/formulation"
	"github.com/popmonkey/packing_solver_go/internal/problem"
	"github.com/popmonkey/packing_solver_go/internal/solver"
)

// ErrNoSolution is returned when a result carries no incumbent.
var ErrNoSolution = errors.New("solver returned no solution")

// Solution is the extracted schedule. Order, line, worker, type and demand
// identities are 1-based.
type Solution struct {
	Mode      problem.Mode      `json:"mode"`
	Status    solver.Status     `json:"status"`
	Objective float64           `json:"objective"`
	Orders    []Order           `json:"orders"`
	Demands   []Demand          `json:"demands,omitempty"`
	Inventory []InventorySeries `json:"inventory"`
	Workforce Workforce         `json:"workforce"`
	WIP       []float64         `json:"wip,omitempty"`
	Lines     []Line            `json:"lines"`
	Movements []Movement        `json:"movements,omitempty"`
	Breakdown Breakdown         `json:"breakdown"`
}

type Order struct {
	Order      int     `json:"order"`
	Scheduled  bool    `json:"scheduled"`
	Line       int     `json:"line,omitempty"`
	Worker     int     `json:"worker,omitempty"`
	Type       int     `json:"type,omitempty"`
	Start      float64 `json:"start"`
	Completion float64 `json:"completion"`
	Processing float64 `json:"processing"`
	ShipTime   float64 `json:"ship_time,omitempty"`
	Due        float64 `json:"due,omitempty"`
	Lateness   float64 `json:"lateness,omitempty"`
	Earliness  float64 `json:"earliness,omitempty"`
	Late       bool    `json:"late,omitempty"`
}

type Demand struct {
	Demand    int     `json:"demand"`
	Type      int     `json:"type"`
	Qty       int     `json:"qty"`
	Due       float64 `json:"due"`
	ShipTime  float64 `json:"ship_time"`
	Lateness  float64 `json:"lateness"`
	Earliness float64 `json:"earliness,omitempty"`
	Late      bool    `json:"late"`
}

// InventorySeries is the stock of one order (discrete, slots 0..T) or one
// product type (continuous, one level per demand).
type InventorySeries struct {
	Entity   int       `json:"entity"`
	Levels   []float64 `json:"levels"`
	Produced []float64 `json:"produced,omitempty"`
	Shipped  []float64 `json:"shipped,omitempty"`
}

type WorkforcePoint struct {
	At   float64 `json:"at"`
	Used float64 `json:"used"`
}

type Workforce struct {
	Points []WorkforcePoint `json:"points"`
	Max    float64          `json:"max"`
	Min    float64          `json:"min"`
	Range  float64          `json:"range"`
}

type Line struct {
	Line   int   `json:"line"`
	Used   bool  `json:"used"`
	Orders []int `json:"orders,omitempty"`
}

// Movement marks a worker changing line at Slot.
type Movement struct {
	Worker int `json:"worker"`
	Slot   int `json:"slot"`
}

type TermValue struct {
	Term     formulation.Term `json:"term"`
	Raw      decimal.Decimal  `json:"raw"`
	Weight   decimal.Decimal  `json:"weight"`
	Weighted decimal.Decimal  `json:"weighted"`
}

// Breakdown prices each objective term. Values are rounded to four places.
type Breakdown struct {
	Terms      []TermValue     `json:"terms"`
	Total      decimal.Decimal `json:"total"`
	OnTimeRate decimal.Decimal `json:"on_time_rate"`
}
