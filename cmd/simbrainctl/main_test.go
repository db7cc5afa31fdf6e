package main

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

// fieldValue returns the value of the first key=value pair named key.
func fieldValue(out, key string) (string, bool) {
	for _, field := range strings.Fields(out) {
		if v, ok := strings.CutPrefix(field, key+"="); ok {
			return v, true
		}
	}
	return "", false
}

func TestRunRequiresKnownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage: simbrainctl") {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := run(context.Background(), []string{"benchmark"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestHopfieldCommandRecallsPattern(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"hopfield", "--flip", "4", "--order", "sequential"})
	})
	if err != nil {
		t.Fatalf("hopfield command: %v", err)
	}
	if v, _ := fieldValue(out, "recovered"); v != "true" {
		t.Fatalf("expected recovered pattern, got: %s", out)
	}
	if v, _ := fieldValue(out, "corrupted"); v != "1,-1,1,-1,-1,-1,1,-1,1" {
		t.Fatalf("unexpected corrupted pattern: %s", v)
	}

	if err := run(context.Background(), []string{"hopfield", "--flip", "9"}); err == nil {
		t.Fatal("expected flip index error")
	}
	if err := run(context.Background(), []string{"hopfield", "--order", "diagonal"}); err == nil {
		t.Fatal("expected update order error")
	}
}

func TestESNCommandReportsSpectralRadius(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"esn", "--reservoir", "60", "--radius", "0.8", "--train-steps", "150", "--seed", "3"})
	})
	if err != nil {
		t.Fatalf("esn command: %v", err)
	}
	raw, ok := fieldValue(out, "spectral_radius")
	if !ok {
		t.Fatalf("missing spectral_radius in output: %s", out)
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		t.Fatalf("parse spectral radius: %v", err)
	}
	if math.Abs(radius-0.8) > 1e-3 {
		t.Fatalf("spectral radius: got=%f want=0.8", radius)
	}
	if _, ok := fieldValue(out, "mse"); !ok {
		t.Fatalf("missing training mse in output: %s", out)
	}

	if err := run(context.Background(), []string{"esn", "--inputs", "2", "--train-steps", "10"}); err == nil {
		t.Fatal("expected sine training shape error")
	}
}

func TestEvolveCommandMemoryStore(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"evolve",
			"--store", "memory",
			"--scape", "xor",
			"--pop", "6",
			"--gens", "2",
			"--seed", "11",
			"--workers", "2",
		})
	})
	if err != nil {
		t.Fatalf("evolve command: %v", err)
	}
	if v, _ := fieldValue(out, "generations"); v != "2" {
		t.Fatalf("unexpected generations in output: %s", out)
	}
	if v, _ := fieldValue(out, "scape"); v != "xor" {
		t.Fatalf("unexpected scape in output: %s", out)
	}
	if v, _ := fieldValue(out, "run_id"); len(v) != 36 {
		t.Fatalf("expected uuid run id, got %q", v)
	}
}

func TestEvolveCommandConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "or.csv")
	if err := os.WriteFile(data, []byte("a,b,out\n0,0,0\n0,1,1\n1,0,1\n1,1,1\n"), 0o644); err != nil {
		t.Fatalf("write pattern csv: %v", err)
	}
	config := filepath.Join(dir, "evolve.json")
	payload := `{"run_id": "cfg-run", "scape": "pattern", "data": "` + filepath.ToSlash(data) + `", "population": 4, "generations": 5, "workers": 1}`
	if err := os.WriteFile(config, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"evolve", "--store", "memory", "--config", config, "--gens", "1"})
	})
	if err != nil {
		t.Fatalf("evolve command: %v", err)
	}
	if v, _ := fieldValue(out, "run_id"); v != "cfg-run" {
		t.Fatalf("config run id not applied: %s", out)
	}
	if v, _ := fieldValue(out, "generations"); v != "1" {
		t.Fatalf("flag should override config generations: %s", out)
	}
	if v, _ := fieldValue(out, "scape"); v != "pattern.csv.or.csv" {
		t.Fatalf("config scape not applied: %s", out)
	}
}

func TestQueryCommandsOnEmptyMemoryStore(t *testing.T) {
	out, err := captureStdout(func() error {
		return run(context.Background(), []string{"runs", "--store", "memory"})
	})
	if err != nil || !strings.Contains(out, "no runs found") {
		t.Fatalf("runs on empty store: out=%q err=%v", out, err)
	}
	out, err = captureStdout(func() error {
		return run(context.Background(), []string{"history", "--store", "memory", "--run-id", "missing"})
	})
	if err != nil || !strings.Contains(out, "no fitness history") {
		t.Fatalf("history on empty store: out=%q err=%v", out, err)
	}
	if err := run(context.Background(), []string{"top", "--store", "memory", "--run-id", "missing"}); err == nil {
		t.Fatal("expected run not found error")
	}
	if err := run(context.Background(), []string{"export", "--store", "memory", "--run-id", "missing", "--out", t.TempDir()}); err == nil {
		t.Fatal("expected export run not found error")
	}
	if err := run(context.Background(), []string{"history", "--store", "memory"}); err == nil {
		t.Fatal("expected missing run id error")
	}
	if err := run(context.Background(), []string{"runs", "--store", "memory", "--limit", "0"}); err == nil {
		t.Fatal("expected limit error")
	}
}
