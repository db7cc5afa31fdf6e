package scape

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"simbrain/internal/agent"
)

// Pattern scores an agent by the negative mean squared error between its
// outputs and a table of target rows.
type Pattern struct {
	name    string
	inputs  [][]float64
	targets [][]float64
}

func NewPattern(name string, inputs, targets [][]float64) (*Pattern, error) {
	if len(inputs) == 0 || len(inputs) != len(targets) {
		return nil, fmt.Errorf("pattern needs matching non-empty input and target rows: inputs=%d targets=%d", len(inputs), len(targets))
	}
	in, out := len(inputs[0]), len(targets[0])
	if in == 0 || out == 0 {
		return nil, fmt.Errorf("pattern rows must be non-empty")
	}
	p := &Pattern{name: name}
	for i := range inputs {
		if len(inputs[i]) != in || len(targets[i]) != out {
			return nil, fmt.Errorf("pattern row %d shape %dx%d, want %dx%d", i, len(inputs[i]), len(targets[i]), in, out)
		}
		p.inputs = append(p.inputs, append([]float64(nil), inputs[i]...))
		p.targets = append(p.targets, append([]float64(nil), targets[i]...))
	}
	return p, nil
}

func (p *Pattern) Name() string { return p.name }
func (p *Pattern) Inputs() int  { return len(p.inputs[0]) }
func (p *Pattern) Outputs() int { return len(p.targets[0]) }
func (p *Pattern) Rows() int    { return len(p.inputs) }

func (p *Pattern) Evaluate(ctx context.Context, a *agent.Agent) (float64, Trace, error) {
	predictions, err := cases(ctx, a, p.inputs, p.Outputs())
	if err != nil {
		return 0, nil, err
	}
	sse := 0.0
	for i, out := range predictions {
		d := floats.Distance(out, p.targets[i], 2)
		sse += d * d
	}
	mse := sse / float64(len(predictions)*p.Outputs())
	return -mse, Trace{"mse": mse, "sse": sse, "cases": len(predictions)}, nil
}

// LoadPatternCSV reads a table whose header names each column; columns
// named "out" or prefixed "out" are targets, the rest are inputs. Blank
// lines are skipped.
func LoadPatternCSV(path string) (*Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern csv %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read pattern csv header: %w", err)
	}
	isTarget := make([]bool, len(header))
	for i, name := range header {
		isTarget[i] = strings.HasPrefix(strings.ToLower(strings.TrimSpace(name)), "out")
	}

	var inputs, targets [][]float64
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read pattern csv row %d: %w", row+1, err)
		}
		row++
		var in, out []float64
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("parse pattern csv row %d column %q: %w", row, header[i], err)
			}
			if isTarget[i] {
				out = append(out, v)
			} else {
				in = append(in, v)
			}
		}
		inputs = append(inputs, in)
		targets = append(targets, out)
	}
	return NewPattern(fmt.Sprintf("pattern.csv.%s", filepath.Base(path)), inputs, targets)
}
