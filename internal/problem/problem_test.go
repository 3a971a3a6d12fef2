package problem

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discreteData() Data {
	return Data{
		Orders:         2,
		Lines:          1,
		Workers:        1,
		TimeSlots:      6,
		ProcessingTime: [][]float64{{2}, {3}},
		DueDate:        []float64{3, 6},
		WorkerAvailability: [][]int{
			{1, 1, 1, 1, 0, 1},
		},
	}
}

func continuousData() Data {
	return Data{
		Mode:           Continuous,
		Types:          2,
		Orders:         3,
		Demands:        2,
		Lines:          1,
		Horizon:        10,
		ProcessingTime: [][]float64{{2.5}, {1}},
		TypeSetupTime:  [][]float64{{0, 1}, {0.5, 0}},
		OrderType:      []int{1, 2, 2},
		DueDate:        []float64{4, 8},
		DemandType:     []int{2, 1},
		DemandQty:      []int{1, 2},
	}
}

func TestBindDiscreteDefaults(t *testing.T) {
	inst, err := Bind(discreteData())
	require.NoError(t, err)

	assert.Equal(t, Discrete, inst.Mode())
	assert.Equal(t, 6, inst.NumSlots())
	assert.Equal(t, 6.0, inst.Horizon())
	assert.Equal(t, 3, inst.Slots(1, 0))
	assert.Equal(t, 1.0, inst.Priority(0))
	assert.Equal(t, 0, inst.InitialInventory(1))
	assert.Equal(t, 0.0, inst.Setup(0, 1, 0))
	assert.False(t, inst.HasSetup())
	assert.False(t, inst.HasShippingSchedule())
	assert.False(t, inst.Available(0, 4))
	assert.Equal(t, 5, inst.TotalAvailability())
	assert.Equal(t, 0, inst.AvailableAt(4))
	assert.Equal(t, 6.0, inst.MaxDue())
}

func TestBindContinuous(t *testing.T) {
	inst, err := Bind(continuousData())
	require.NoError(t, err)

	assert.Equal(t, Continuous, inst.Mode())
	assert.Equal(t, 1, inst.TypeOf(1))
	assert.Equal(t, 2.5, inst.Processing(0, 0))
	assert.Equal(t, 1.0, inst.Processing(2, 0))
	assert.Equal(t, 1.0, inst.Setup(0, 1, 0))
	assert.Equal(t, 1.0, inst.MaxSetup())
	assert.Equal(t, []int{1, 2}, inst.OrdersOfType(1))
	assert.Equal(t, []int{1}, inst.DemandsOfType(0))
	assert.Equal(t, 2, inst.DemandQty(1))
	assert.Equal(t, 1.0, inst.DemandPriority(0))
	assert.Equal(t, 0, inst.InitialInventory(1))
}

func TestBindDoesNotAlias(t *testing.T) {
	d := discreteData()
	inst, err := Bind(d)
	require.NoError(t, err)
	d.ProcessingTime[0][0] = 99
	assert.Equal(t, 2, inst.Slots(0, 0))
}

func TestBindRejectsShapes(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Data)
		field  string
		axis   int
	}{
		{"processing rows", func(d *Data) { d.ProcessingTime = d.ProcessingTime[:1] }, "processing_time", 0},
		{"processing cols", func(d *Data) { d.ProcessingTime[1] = []float64{1, 2} }, "processing_time", 1},
		{"due", func(d *Data) { d.DueDate = []float64{1} }, "due_date", 0},
		{"availability", func(d *Data) { d.WorkerAvailability[0] = []int{1} }, "worker_availability", 1},
		{"setup", func(d *Data) { d.SetupTime = [][][]float64{{{0}, {0}}, {{0}}} }, "setup_time", 1},
		{"shipping", func(d *Data) { d.ShippingSchedule = [][]int{{0}} }, "shipping_schedule", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := discreteData()
			tc.mutate(&d)
			_, err := Bind(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDimensionMismatch)
			var de *DimensionError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.field, de.Field)
			assert.Equal(t, tc.axis, de.Axis)
		})
	}
}

func TestBindRejectsValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Data)
		field  string
	}{
		{"zero processing", func(d *Data) { d.ProcessingTime[0][0] = 0 }, "processing_time"},
		{"fractional processing", func(d *Data) { d.ProcessingTime[0][0] = 1.5 }, "processing_time"},
		{"due before start", func(d *Data) { d.DueDate[0] = 0 }, "due_date"},
		{"availability not binary", func(d *Data) { d.WorkerAvailability[0][0] = 2 }, "worker_availability"},
		{"negative inventory", func(d *Data) { d.InitialInventory = []int{0, -1} }, "initial_inventory"},
		{"setup diagonal", func(d *Data) {
			d.SetupTime = [][][]float64{{{1}, {0}}, {{0}, {0}}}
		}, "setup_time"},
		{"reserved capacity", func(d *Data) { d.ReservedCapacity = 1 }, "reserved_capacity"},
		{"no slots", func(d *Data) { d.TimeSlots = 0 }, "time_slots"},
		{"bad mode", func(d *Data) { d.Mode = "hourly" }, "mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := discreteData()
			tc.mutate(&d)
			_, err := Bind(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidValue)
			var ve *ValueError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestBindRejectsContinuousTypeIDs(t *testing.T) {
	d := continuousData()
	d.OrderType[2] = 3
	_, err := Bind(d)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "order_type[3]")

	d = continuousData()
	d.Horizon = 0
	_, err = Bind(d)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoad(t *testing.T) {
	js := `{"orders":1,"lines":1,"workers":1,"time_slots":4,
		"processing_time":[[2]],"due_date":[4],"worker_availability":[[1,1,1,1]]}`
	d, err := Load(strings.NewReader(js), JSON)
	require.NoError(t, err)
	assert.Equal(t, Discrete, d.EffectiveMode())
	_, err = Bind(d)
	require.NoError(t, err)

	ym := `
mode: continuous
types: 1
orders: 1
demands: 1
lines: 1
horizon: 10
processing_time: [[3]]
order_type: [1]
due_date: [5]
demand_type: [1]
demand_qty: [1]
initial_inventory: [1]
`
	d, err = Load(strings.NewReader(ym), YAML)
	require.NoError(t, err)
	assert.Equal(t, Continuous, d.Mode)
	assert.Equal(t, []int{1}, d.InitialInventory)

	_, err = Load(strings.NewReader(`{"orders":1,"bogus":2}`), JSON)
	assert.Error(t, err)

	assert.Equal(t, YAML, FormatFromPath("data/case.YML"))
	assert.Equal(t, JSON, FormatFromPath("case.json"))
	assert.Equal(t, JSON, FormatFromPath("-"))
}
