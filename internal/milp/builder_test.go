package milp

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inf = math.Inf(1)

func TestBuilderMergesTermsAndMovesConstant(t *testing.T) {
	b := NewBuilder("merge")
	x := b.NewVar("x", Integer, 0, 10)
	y := b.NewVar("y", Continuous, 0, 5)

	e := Sum(x, y, x)
	e.AddConst(3)
	e.Add(y, -1)
	b.AddRow("g", "r1", e, LE, 10)

	m, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 1, m.NumRows())

	r := m.Row(0)
	assert.Equal(t, []Term{{Var: x, Coef: 2}}, r.Terms)
	assert.Equal(t, 7.0, r.RHS)
	assert.Equal(t, LE, r.Sense)
}

func TestBuilderDuplicateName(t *testing.T) {
	b := NewBuilder("dup")
	b.NewVar("x", Binary, 0, 1)
	b.NewVar("x", Binary, 0, 1)

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestBinaryIsClamped(t *testing.T) {
	b := NewBuilder("clamp")
	z := b.NewVar("z", Binary, -3, 7)
	m, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Var(z).Lower)
	assert.Equal(t, 1.0, m.Var(z).Upper)
}

func TestImpliesRejectsSmallM(t *testing.T) {
	b := NewBuilder("bigm")
	z := b.NewVar("z", Binary, 0, 1)
	x := b.NewVar("x", Continuous, 0, 10)

	// z = 0 ⇒ x ≤ 0 needs M ≥ 10.
	b.UnlessLE("g", "off", z, Sum(x), 0, 9)

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBigMTooSmall))
	assert.Contains(t, err.Error(), "off")
}

func TestImpliesRejectsUnboundedExpression(t *testing.T) {
	b := NewBuilder("unbounded")
	z := b.NewVar("z", Binary, 0, 1)
	x := b.NewVar("x", Continuous, 0, inf)

	b.ImplyLE("g", "cap", z, Sum(x), 3, 1e6)

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrUnboundedIndicator)
}

func TestImpliesEncoding(t *testing.T) {
	b := NewBuilder("enc")
	z := b.NewVar("z", Binary, 0, 1)
	w := b.NewVar("w", Binary, 0, 1)
	x := b.NewVar("x", Continuous, 0, 10)

	// z = 1 ∧ w = 0 ⇒ x ≥ 4, M = 4.
	b.Implies("g", "both", []Expr{When(z), WhenNot(w)}, Sum(x), GE, 4, 4)

	m, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 1, m.NumRows())

	cases := []struct {
		name   string
		values []float64
		ok     bool
	}{
		{"active and satisfied", []float64{1, 0, 4}, true},
		{"active and violated", []float64{1, 0, 3}, false},
		{"z off relaxes", []float64{0, 0, 0}, true},
		{"w on relaxes", []float64{1, 1, 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := m.Violations(tc.values, 1e-9)
			if tc.ok {
				assert.Empty(t, v)
			} else {
				assert.NotEmpty(t, v)
			}
		})
	}
}

func TestViolationsReportsBoundsAndIntegrality(t *testing.T) {
	b := NewBuilder("viol")
	x := b.NewVar("x", Integer, 0, 3)
	y := b.NewVar("y", Continuous, 0, 1)
	b.AddRow("cap", "sum", Sum(x, y), LE, 2)
	m, err := b.Build()
	require.NoError(t, err)

	v := m.Violations([]float64{2.5, 1.5}, 1e-6)
	groups := make([]string, 0, len(v))
	for _, x := range v {
		groups = append(groups, x.Group)
	}
	assert.ElementsMatch(t, []string{"integrality", "bound", "cap"}, groups)

	assert.Empty(t, m.Violations([]float64{1, 1}, 1e-6))
}

func TestStatsAndObjective(t *testing.T) {
	b := NewBuilder("stats")
	x := b.NewVar("x", Binary, 0, 1)
	y := b.NewVar("y", Integer, 0, 4)
	z := b.NewVar("z", Continuous, 0, 1)
	b.AddRow("a", "a1", Sum(x, y), LE, 3)
	b.AddRow("a", "a2", Sum(y, z), GE, 1)
	b.AddRow("b", "b1", Sum(x, y, z), EQ, 2)

	obj := Sum(x)
	obj.Add(y, 2).AddConst(5)
	b.SetObjective(obj)

	m, err := b.Build()
	require.NoError(t, err)

	s := m.Stats()
	assert.Equal(t, 3, s.Columns)
	assert.Equal(t, 1, s.Binary)
	assert.Equal(t, 1, s.Integer)
	assert.Equal(t, 1, s.Continuous)
	assert.Equal(t, 7, s.NonZeros)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, s.RowsByGroup)

	assert.Equal(t, 12.0, m.ObjectiveValue([]float64{1, 3, 0}))

	got, ok := m.Lookup("y")
	require.True(t, ok)
	assert.Equal(t, y, got)
}

func TestWriteLP(t *testing.T) {
	b := NewBuilder("lp")
	x := b.NewVar("x_1", Binary, 0, 1)
	y := b.NewVar("y_1", Integer, 0, 4)
	z := b.NewVar("z_1", Continuous, 1, 1)
	e := Sum(x)
	e.Add(y, -2.5)
	b.AddRow("g", "row_1", e, GE, -1)
	b.AddRow("g", "row_2", Sum(z), EQ, 1)
	obj := Sum(y)
	b.SetObjective(obj)
	m, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "\\ Problem: lp\nMinimize\n obj: + y_1\n"))
	assert.Contains(t, out, " row_1: + x_1 - 2.5 y_1 >= -1\n")
	assert.Contains(t, out, " row_2: + z_1 = 1\n")
	assert.Contains(t, out, " 0 <= y_1 <= 4\n")
	assert.Contains(t, out, " z_1 = 1\n")
	assert.Contains(t, out, "Generals\n y_1\n")
	assert.Contains(t, out, "Binaries\n x_1\n")
	assert.True(t, strings.HasSuffix(out, "End\n"))
}

func TestWriteLPKeepsFixedBinariesFixed(t *testing.T) {
	b := NewBuilder("fixed")
	b.NewVar("on", Binary, 1, 1)
	b.NewVar("off", Binary, 0, 0)
	b.NewVar("free", Binary, 0, 1)
	m, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))
	out := buf.String()

	assert.Contains(t, out, " on = 1\n")
	assert.Contains(t, out, " off = 0\n")
	assert.Contains(t, out, "Generals\n on\n off\n")
	assert.Contains(t, out, "Binaries\n free\nEnd\n")
}
