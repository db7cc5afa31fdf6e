package genotype

import (
	"context"
	"fmt"

	"simbrain/internal/model"
	"simbrain/internal/storage"
)

// SavePopulationSnapshot stores every genome under runID and records the
// population membership for the given generation.
func SavePopulationSnapshot(ctx context.Context, store storage.Store, runID string, generation int, state string, genomes []*Genome) error {
	if store == nil {
		return fmt.Errorf("store is required")
	}
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	ids := make([]int, 0, len(genomes))
	seen := make(map[int]struct{}, len(genomes))
	for _, g := range genomes {
		if _, ok := seen[g.ID()]; ok {
			return fmt.Errorf("%w: duplicate genome id %d in population", ErrInvalidGenome, g.ID())
		}
		seen[g.ID()] = struct{}{}
		rec, err := g.ToRecord(runID)
		if err != nil {
			return err
		}
		if err := store.SaveGenome(ctx, rec); err != nil {
			return err
		}
		ids = append(ids, g.ID())
	}

	return store.SavePopulation(ctx, model.PopulationRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Generation:      generation,
		State:           state,
		GenomeIDs:       ids,
	})
}

// LoadPopulationSnapshot restores the genomes of runID's population. All of
// them share params and one innovation table rebuilt from their genes.
func LoadPopulationSnapshot(ctx context.Context, store storage.Store, runID string, params *MutationParams) (model.PopulationRecord, []*Genome, error) {
	if store == nil {
		return model.PopulationRecord{}, nil, fmt.Errorf("store is required")
	}
	if runID == "" {
		return model.PopulationRecord{}, nil, fmt.Errorf("run id is required")
	}

	pop, ok, err := store.GetPopulation(ctx, runID)
	if err != nil {
		return model.PopulationRecord{}, nil, err
	}
	if !ok {
		return model.PopulationRecord{}, nil, fmt.Errorf("population not found: %s", runID)
	}

	var table *InnovationTable
	genomes := make([]*Genome, 0, len(pop.GenomeIDs))
	for _, id := range pop.GenomeIDs {
		rec, ok, err := store.GetGenome(ctx, runID, id)
		if err != nil {
			return model.PopulationRecord{}, nil, err
		}
		if !ok {
			return model.PopulationRecord{}, nil, fmt.Errorf("genome not found for run %s genome %d", runID, id)
		}
		if table == nil {
			table = NewInnovationTable(rec.Inputs + rec.Outputs)
		}
		g, err := FromRecord(rec, params, table)
		if err != nil {
			return model.PopulationRecord{}, nil, err
		}
		genomes = append(genomes, g)
	}
	return pop, genomes, nil
}

// LoadGenome restores a single stored genome with a private innovation
// table.
func LoadGenome(ctx context.Context, store storage.Store, runID string, id int, params *MutationParams) (*Genome, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	rec, ok, err := store.GetGenome(ctx, runID, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("genome not found for run %s genome %d", runID, id)
	}
	return FromRecord(rec, params, nil)
}
