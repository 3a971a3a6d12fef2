package problem

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks d in three passes: scalar bounds, array shapes, then
// parameter domains. It returns the first failure.
func Validate(d *Data) error {
	if err := validateScalars(d); err != nil {
		return err
	}
	switch d.EffectiveMode() {
	case Continuous:
		if err := continuousShapes(d); err != nil {
			return err
		}
		return continuousValues(d)
	default:
		if err := discreteShapes(d); err != nil {
			return err
		}
		return discreteValues(d)
	}
}

func validateScalars(d *Data) error {
	err := structValidator().Struct(d)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("value %v fails %q", fe.Value(), fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("value %v fails %s=%s", fe.Value(), fe.Tag(), fe.Param())
		}
		return &ValueError{Field: fe.Field(), Reason: reason}
	}
	if err != nil {
		return fmt.Errorf("validating input: %w", err)
	}

	switch d.EffectiveMode() {
	case Continuous:
		if d.Types < 1 {
			return &ValueError{Field: "types", Reason: "continuous mode needs at least one product type"}
		}
		if !(d.Horizon > 0) {
			return &ValueError{Field: "horizon", Reason: "continuous mode needs a positive horizon"}
		}
	default:
		if d.TimeSlots < 1 {
			return &ValueError{Field: "time_slots", Reason: "discrete mode needs at least one time slot"}
		}
		if d.Workers < 1 {
			return &ValueError{Field: "workers", Reason: "discrete mode needs at least one worker"}
		}
	}
	return nil
}

func discreteShapes(d *Data) error {
	n, t := d.Orders, d.TimeSlots
	if err := checkMatrix("processing_time", d.ProcessingTime, n, d.Lines); err != nil {
		return err
	}
	if d.SetupTime != nil {
		if err := checkLen("setup_time", 0, d.SetupTime, n); err != nil {
			return err
		}
		for _, row := range d.SetupTime {
			if err := checkMatrix("setup_time", row, n, d.Lines); err != nil {
				err.(*DimensionError).Axis++
				return err
			}
		}
	}
	if err := checkLen("due_date", 0, d.DueDate, n); err != nil {
		return err
	}
	if d.Priority != nil {
		if err := checkLen("priority", 0, d.Priority, n); err != nil {
			return err
		}
	}
	if err := checkMatrix("worker_availability", d.WorkerAvailability, d.Workers, t); err != nil {
		return err
	}
	if d.InitialInventory != nil {
		if err := checkLen("initial_inventory", 0, d.InitialInventory, n); err != nil {
			return err
		}
	}
	if d.ShippingSchedule != nil {
		if err := checkMatrix("shipping_schedule", d.ShippingSchedule, n, t); err != nil {
			return err
		}
	}
	return nil
}

func discreteValues(d *Data) error {
	for i, row := range d.ProcessingTime {
		for j, p := range row {
			if p < 1 || p != math.Trunc(p) {
				return &ValueError{Field: "processing_time", Index: []int{i + 1, j + 1}, Reason: fmt.Sprintf("%g is not a positive whole number of slots", p)}
			}
		}
	}
	for i, plane := range d.SetupTime {
		for k, row := range plane {
			for j, s := range row {
				if s < 0 {
					return &ValueError{Field: "setup_time", Index: []int{i + 1, k + 1, j + 1}, Reason: "negative setup time"}
				}
				if i == k && s != 0 {
					return &ValueError{Field: "setup_time", Index: []int{i + 1, k + 1, j + 1}, Reason: "setup from an order to itself must be zero"}
				}
			}
		}
	}
	for i, due := range d.DueDate {
		if due < 1 || due != math.Trunc(due) {
			return &ValueError{Field: "due_date", Index: []int{i + 1}, Reason: fmt.Sprintf("%g is not a whole slot number >= 1", due)}
		}
	}
	if err := checkNonNegative("priority", d.Priority); err != nil {
		return err
	}
	for w, row := range d.WorkerAvailability {
		for t, a := range row {
			if a != 0 && a != 1 {
				return &ValueError{Field: "worker_availability", Index: []int{w + 1, t + 1}, Reason: "availability must be 0 or 1"}
			}
		}
	}
	if err := checkNonNegative("initial_inventory", d.InitialInventory); err != nil {
		return err
	}
	for i, row := range d.ShippingSchedule {
		if err := checkNonNegative("shipping_schedule", row); err != nil {
			err.(*ValueError).Index = append([]int{i + 1}, err.(*ValueError).Index...)
			return err
		}
	}
	return nil
}

func continuousShapes(d *Data) error {
	if err := checkMatrix("processing_time", d.ProcessingTime, d.Types, d.Lines); err != nil {
		return err
	}
	if d.TypeSetupTime != nil {
		if err := checkMatrix("type_setup_time", d.TypeSetupTime, d.Types, d.Types); err != nil {
			return err
		}
	}
	if err := checkLen("order_type", 0, d.OrderType, d.Orders); err != nil {
		return err
	}
	if d.InitialInventory != nil {
		if err := checkLen("initial_inventory", 0, d.InitialInventory, d.Types); err != nil {
			return err
		}
	}
	if err := checkLen("due_date", 0, d.DueDate, d.Demands); err != nil {
		return err
	}
	if err := checkLen("demand_type", 0, d.DemandType, d.Demands); err != nil {
		return err
	}
	if err := checkLen("demand_qty", 0, d.DemandQty, d.Demands); err != nil {
		return err
	}
	if d.Priority != nil {
		if err := checkLen("priority", 0, d.Priority, d.Demands); err != nil {
			return err
		}
	}
	return nil
}

func continuousValues(d *Data) error {
	for u, row := range d.ProcessingTime {
		for j, p := range row {
			if !(p > 0) {
				return &ValueError{Field: "processing_time", Index: []int{u + 1, j + 1}, Reason: "processing time must be positive"}
			}
		}
	}
	for u, row := range d.TypeSetupTime {
		for v, s := range row {
			if s < 0 {
				return &ValueError{Field: "type_setup_time", Index: []int{u + 1, v + 1}, Reason: "negative setup time"}
			}
			if u == v && s != 0 {
				return &ValueError{Field: "type_setup_time", Index: []int{u + 1, v + 1}, Reason: "setup from a type to itself must be zero"}
			}
		}
	}
	if err := checkTypeIDs("order_type", d.OrderType, d.Types); err != nil {
		return err
	}
	if err := checkTypeIDs("demand_type", d.DemandType, d.Types); err != nil {
		return err
	}
	if err := checkNonNegative("initial_inventory", d.InitialInventory); err != nil {
		return err
	}
	if err := checkNonNegative("due_date", d.DueDate); err != nil {
		return err
	}
	for k, q := range d.DemandQty {
		if q < 1 {
			return &ValueError{Field: "demand_qty", Index: []int{k + 1}, Reason: "quantity must be at least 1"}
		}
	}
	return checkNonNegative("priority", d.Priority)
}

func checkLen[T any](field string, axis int, s []T, want int) error {
	if len(s) != want {
		return &DimensionError{Field: field, Axis: axis, Expected: want, Actual: len(s)}
	}
	return nil
}

func checkMatrix[T any](field string, m [][]T, rows, cols int) error {
	if err := checkLen(field, 0, m, rows); err != nil {
		return err
	}
	for _, row := range m {
		if err := checkLen(field, 1, row, cols); err != nil {
			return err
		}
	}
	return nil
}

func checkNonNegative[T number](field string, vals []T) error {
	for i, v := range vals {
		if v < 0 {
			return &ValueError{Field: field, Index: []int{i + 1}, Reason: fmt.Sprintf("%v is negative", v)}
		}
	}
	return nil
}

func checkTypeIDs(field string, ids []int, types int) error {
	for i, id := range ids {
		if id < 1 || id > types {
			return &ValueError{Field: field, Index: []int{i + 1}, Reason: fmt.Sprintf("type %d outside 1..%d", id, types)}
		}
	}
	return nil
}
