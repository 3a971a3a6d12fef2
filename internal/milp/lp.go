package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

const lpTermsPerLine = 8

// WriteLP writes m in CPLEX LP format. Column and row names are written as
// given, so they must already be LP-safe (letters, digits, underscores).
// The objective constant is not representable in every reader and is
// omitted; use Model.ObjectiveValue for the full value.
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\ Problem: %s\n", m.name)
	bw.WriteString("Minimize\n obj:")
	if len(m.obj.Terms) == 0 && len(m.vars) > 0 {
		fmt.Fprintf(bw, " 0 %s", m.vars[0].Name)
	}
	writeTerms(bw, m, m.obj.Terms)
	bw.WriteString("\nSubject To\n")
	for _, r := range m.rows {
		fmt.Fprintf(bw, " %s:", r.Name)
		if len(r.Terms) == 0 && len(m.vars) > 0 {
			// LP readers reject empty rows; 0 x is a valid stand-in.
			fmt.Fprintf(bw, " 0 %s", m.vars[0].Name)
		}
		writeTerms(bw, m, r.Terms)
		fmt.Fprintf(bw, " %s %s\n", r.Sense, formatNum(r.RHS))
	}

	bw.WriteString("Bounds\n")
	for _, v := range m.vars {
		lo, hi := v.Lower, v.Upper
		switch {
		case math.IsInf(lo, -1) && math.IsInf(hi, 1):
			fmt.Fprintf(bw, " %s free\n", v.Name)
		case lo == hi:
			fmt.Fprintf(bw, " %s = %s\n", v.Name, formatNum(lo))
		case math.IsInf(hi, 1):
			fmt.Fprintf(bw, " %s >= %s\n", v.Name, formatNum(lo))
		case math.IsInf(lo, -1):
			fmt.Fprintf(bw, " -inf <= %s <= %s\n", v.Name, formatNum(hi))
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(lo), v.Name, formatNum(hi))
		}
	}

	// Binaries with bounds other than [0, 1] are listed as generals so the
	// Bounds entries above apply to them.
	writeSection(bw, m, "Generals", func(v Variable) bool {
		return v.Kind == Integer || (v.Kind == Binary && !plainBinary(v))
	})
	writeSection(bw, m, "Binaries", func(v Variable) bool {
		return v.Kind == Binary && plainBinary(v)
	})
	bw.WriteString("End\n")
	return bw.Flush()
}

func plainBinary(v Variable) bool { return v.Lower == 0 && v.Upper == 1 }

func writeTerms(bw *bufio.Writer, m *Model, terms []Term) {
	for n, t := range terms {
		if n > 0 && n%lpTermsPerLine == 0 {
			bw.WriteString("\n   ")
		}
		sign := "+"
		c := t.Coef
		if c < 0 {
			sign, c = "-", -c
		}
		if c == 1 {
			fmt.Fprintf(bw, " %s %s", sign, m.vars[t.Var].Name)
		} else {
			fmt.Fprintf(bw, " %s %s %s", sign, formatNum(c), m.vars[t.Var].Name)
		}
	}
}

func writeSection(bw *bufio.Writer, m *Model, title string, include func(Variable) bool) {
	first := true
	for _, v := range m.vars {
		if !include(v) {
			continue
		}
		if first {
			bw.WriteString(title + "\n")
			first = false
		}
		fmt.Fprintf(bw, " %s\n", v.Name)
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
