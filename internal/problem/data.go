// Package problem holds the raw scheduling input and binds it into an
// immutable, validated Instance that the formulation reads from.
package problem

// Mode selects the time model.
type Mode string

const (
	// Discrete uses integer time slots 1..T and start-time binaries.
	Discrete Mode = "discrete"
	// Continuous uses real start/completion times, product types and
	// demands, with event points for workforce counting.
	Continuous Mode = "continuous"
)

// Data is the raw input accepted from JSON or YAML. Fields not used by the
// selected mode are ignored. Type ids in order_type and demand_type are
// 1-based.
type Data struct {
	Mode Mode `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=discrete continuous"`

	Orders    int `json:"orders" yaml:"orders" validate:"gte=1"`
	Lines     int `json:"lines" yaml:"lines" validate:"gte=1"`
	Workers   int `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`
	TimeSlots int `json:"time_slots,omitempty" yaml:"time_slots,omitempty" validate:"gte=0"`
	Types     int `json:"types,omitempty" yaml:"types,omitempty" validate:"gte=0"`
	Demands   int `json:"demands,omitempty" yaml:"demands,omitempty" validate:"gte=0"`

	Horizon float64 `json:"horizon,omitempty" yaml:"horizon,omitempty" validate:"gte=0"`

	ProcessingTime     [][]float64   `json:"processing_time" yaml:"processing_time"`
	SetupTime          [][][]float64 `json:"setup_time,omitempty" yaml:"setup_time,omitempty"`
	TypeSetupTime      [][]float64   `json:"type_setup_time,omitempty" yaml:"type_setup_time,omitempty"`
	DueDate            []float64     `json:"due_date" yaml:"due_date"`
	Priority           []float64     `json:"priority,omitempty" yaml:"priority,omitempty"`
	WorkerAvailability [][]int       `json:"worker_availability,omitempty" yaml:"worker_availability,omitempty"`
	InitialInventory   []int         `json:"initial_inventory,omitempty" yaml:"initial_inventory,omitempty"`
	ShippingSchedule   [][]int       `json:"shipping_schedule,omitempty" yaml:"shipping_schedule,omitempty"`
	OrderType          []int         `json:"order_type,omitempty" yaml:"order_type,omitempty"`
	DemandType         []int         `json:"demand_type,omitempty" yaml:"demand_type,omitempty"`
	DemandQty          []int         `json:"demand_qty,omitempty" yaml:"demand_qty,omitempty"`

	ReservedCapacity float64 `json:"reserved_capacity,omitempty" yaml:"reserved_capacity,omitempty" validate:"gte=0,lt=1"`
	WorkforceTarget  float64 `json:"workforce_target,omitempty" yaml:"workforce_target,omitempty" validate:"gte=0"`
}

// EffectiveMode returns Mode, defaulting to Discrete.
func (d *Data) EffectiveMode() Mode {
	if d.Mode == "" {
		return Discrete
	}
	return d.Mode
}
