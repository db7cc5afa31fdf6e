package networks

import (
	"errors"
	"math/rand/v2"
	"testing"

	"simbrain/internal/nn"
)

func newWTAWithInputs(t *testing.T, cfg WTAConfig, values []float64) (*WinnerTakeAll, []*nn.Neuron) {
	t.Helper()
	net := nn.NewNetwork()
	inputs := net.AddNeurons(len(values), func() nn.UpdateRule { return nn.ClampedRule{} })
	w, err := NewWinnerTakeAll(net, cfg, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("new wta: %v", err)
	}
	for i, n := range w.Neurons() {
		if _, err := net.AddSynapse(inputs[i], n, 1); err != nil {
			t.Fatalf("add synapse: %v", err)
		}
	}
	if err := nn.SetActivations(inputs, values); err != nil {
		t.Fatalf("set inputs: %v", err)
	}
	return w, inputs
}

func TestWTASingleWinner(t *testing.T) {
	w, _ := newWTAWithInputs(t, DefaultWTAConfig(5), []float64{0.1, 0.4, 0.9, 0.3, 0.2})
	if w.Winner() != -1 {
		t.Fatalf("unexpected winner before update: %d", w.Winner())
	}
	w.Update()
	if w.Winner() != 2 {
		t.Fatalf("unexpected winner: got=%d want=2", w.Winner())
	}
	winners := 0
	for i, n := range w.Neurons() {
		switch n.Activation() {
		case 1:
			winners++
			if i != 2 {
				t.Fatalf("wrong neuron won: %d", i)
			}
		case 0:
		default:
			t.Fatalf("neuron %d has activation %f", i, n.Activation())
		}
	}
	if winners != 1 {
		t.Fatalf("unexpected winner count: got=%d want=1", winners)
	}
}

func TestWTATieGoesToFirst(t *testing.T) {
	cfg := DefaultWTAConfig(4)
	cfg.WinValue, cfg.LoseValue = 5, -1
	w, _ := newWTAWithInputs(t, cfg, []float64{0.2, 0.7, 0.7, 0.1})
	w.Update()
	if w.Winner() != 1 {
		t.Fatalf("tie not resolved to first index: got=%d", w.Winner())
	}
	got := nn.Activations(w.Neurons())
	want := []float64{-1, 5, -1, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected activations: got=%v want=%v", got, want)
		}
	}
}

func TestWTARandomWinnerStillSingle(t *testing.T) {
	cfg := DefaultWTAConfig(6)
	cfg.UseRandom = true
	cfg.RandomProb = 1
	w, _ := newWTAWithInputs(t, cfg, []float64{0, 0, 0, 1, 0, 0})
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		w.Update()
		seen[w.Winner()] = true
		count := 0
		for _, a := range nn.Activations(w.Neurons()) {
			if a == cfg.WinValue {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("tick %d: got %d winners", i, count)
		}
	}
	if len(seen) < 2 {
		t.Fatalf("random winners never varied: %v", seen)
	}
}

func TestWTAValidation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	if _, err := NewWinnerTakeAll(nil, DefaultWTAConfig(0), rng); !errors.Is(err, nn.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for size 0, got %v", err)
	}
	cfg := DefaultWTAConfig(3)
	cfg.RandomProb = 2
	if _, err := NewWinnerTakeAll(nil, cfg, rng); !errors.Is(err, nn.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for probability, got %v", err)
	}
	if _, err := NewWinnerTakeAll(nil, DefaultWTAConfig(3), nil); !errors.Is(err, nn.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for nil rng, got %v", err)
	}
}
