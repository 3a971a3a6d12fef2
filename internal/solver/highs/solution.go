package highs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RawSolution is what a HiGHS raw solution file (write_solution_style 0)
// says about the primal solution.
type RawSolution struct {
	ModelStatus    string
	PrimalFeasible bool
	Objective      float64
	Columns        []Column
}

type Column struct {
	Name  string
	Value float64
}

// ParseSolution reads the model status and primal column values. Dual
// values and the basis that follow are ignored.
func ParseSolution(r io.Reader) (*RawSolution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	raw := &RawSolution{}
	line := 0
	next := func() (string, bool) {
		for sc.Scan() {
			line++
			if s := strings.TrimSpace(sc.Text()); s != "" {
				return s, true
			}
		}
		return "", false
	}

	var sawStatus bool
	for {
		s, ok := next()
		if !ok {
			break
		}
		switch {
		case s == "Model status":
			status, ok := next()
			if !ok {
				return nil, fmt.Errorf("solution file: missing model status after line %d", line)
			}
			raw.ModelStatus = status
			sawStatus = true

		case strings.HasPrefix(s, "Model status"):
			// Older writers put the status on the same line.
			raw.ModelStatus = strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(s, "Model status"), ": "))
			sawStatus = true

		case s == "# Primal solution values":
			state, ok := next()
			if !ok {
				return nil, fmt.Errorf("solution file: missing primal state after line %d", line)
			}
			raw.PrimalFeasible = state == "Feasible"

		case strings.HasPrefix(s, "Objective"):
			v, err := parseFloat(strings.TrimSpace(strings.TrimPrefix(s, "Objective")))
			if err != nil {
				return nil, fmt.Errorf("solution file line %d: objective: %w", line, err)
			}
			raw.Objective = v

		case strings.HasPrefix(s, "# Columns"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(s, "# Columns")))
			if err != nil {
				return nil, fmt.Errorf("solution file line %d: column count: %w", line, err)
			}
			raw.Columns = make([]Column, 0, n)
			for k := 0; k < n; k++ {
				s, ok := next()
				if !ok {
					return nil, fmt.Errorf("solution file: expected %d columns, got %d", n, k)
				}
				fields := strings.Fields(s)
				if len(fields) != 2 {
					return nil, fmt.Errorf("solution file line %d: want name and value, got %q", line, s)
				}
				v, err := parseFloat(fields[1])
				if err != nil {
					return nil, fmt.Errorf("solution file line %d: column %s: %w", line, fields[0], err)
				}
				raw.Columns = append(raw.Columns, Column{Name: fields[0], Value: v})
			}
			// Only the primal block matters.
			if !sawStatus {
				return nil, fmt.Errorf("solution file: no model status")
			}
			return raw, sc.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading solution file: %w", err)
	}
	if !sawStatus {
		return nil, fmt.Errorf("solution file: no model status")
	}
	return raw, nil
}

// parseFloat accepts HiGHS spellings of infinity.
func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf":
		s = "+Inf"
	case "-inf":
		s = "-Inf"
	}
	return strconv.ParseFloat(s, 64)
}
