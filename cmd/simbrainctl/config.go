package main

import (
	"encoding/json"
	"os"
	"time"
)

type evolveRequest struct {
	RunID           string
	Scape           string
	Data            string
	Population      int
	Generations     int
	Seed            uint64
	Workers         int
	EliminationRate float64
	CrossoverRate   float64
	FitnessGoal     float64
	EvalTimeout     time.Duration
	Settle          int
	NodeRate        float64
	ConnRate        float64
	Amplitude       float64
}

// loadEvolveRequest overlays the keys present in the JSON file at path onto
// base.
func loadEvolveRequest(path string, base evolveRequest) (evolveRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evolveRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return evolveRequest{}, err
	}

	req := base
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["scape"]); ok {
		req.Scape = v
	}
	if v, ok := asString(raw["data"]); ok {
		req.Data = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asUint64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asFloat64(raw["elimination_rate"]); ok {
		req.EliminationRate = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = v
	}
	if v, ok := asFloat64(raw["fitness_goal"]); ok {
		req.FitnessGoal = v
	}
	if v, ok := asInt(raw["eval_timeout_ms"]); ok {
		req.EvalTimeout = time.Duration(v) * time.Millisecond
	}
	if v, ok := asInt(raw["settle"]); ok {
		req.Settle = v
	}
	if mutation, ok := raw["mutation"].(map[string]any); ok {
		if v, ok := asFloat64(mutation["new_node_rate"]); ok {
			req.NodeRate = v
		}
		if v, ok := asFloat64(mutation["new_connection_rate"]); ok {
			req.ConnRate = v
		}
		if v, ok := asFloat64(mutation["strength_amplitude"]); ok {
			req.Amplitude = v
		}
	}
	return req, nil
}

// overrideFromFlags copies every explicitly set flag from flagReq onto req.
func overrideFromFlags(req evolveRequest, set map[string]bool, flagReq evolveRequest) evolveRequest {
	for name := range set {
		switch name {
		case "run-id":
			req.RunID = flagReq.RunID
		case "scape":
			req.Scape = flagReq.Scape
		case "data":
			req.Data = flagReq.Data
		case "pop":
			req.Population = flagReq.Population
		case "gens":
			req.Generations = flagReq.Generations
		case "seed":
			req.Seed = flagReq.Seed
		case "workers":
			req.Workers = flagReq.Workers
		case "elimination-rate":
			req.EliminationRate = flagReq.EliminationRate
		case "crossover-rate":
			req.CrossoverRate = flagReq.CrossoverRate
		case "fitness-goal":
			req.FitnessGoal = flagReq.FitnessGoal
		case "eval-timeout-ms":
			req.EvalTimeout = flagReq.EvalTimeout
		case "settle":
			req.Settle = flagReq.Settle
		case "node-rate":
			req.NodeRate = flagReq.NodeRate
		case "conn-rate":
			req.ConnRate = flagReq.ConnRate
		case "amplitude":
			req.Amplitude = flagReq.Amplitude
		}
	}
	return req
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
