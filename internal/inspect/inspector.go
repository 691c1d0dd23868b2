package inspect

import (
	"context"

	"github.com/rawblock/mev-inspect/internal/pricing"
	"github.com/rawblock/mev-inspect/pkg/models"
)

// Inspector is the per-strategy detection contract. Implementations read the
// shared tree and metadata without mutating either, and must emit bundles in
// a deterministic order: identical inputs produce identical output.
//
// A returned error is fatal for the block (a tree lookup that cannot miss
// missed); shape and pricing rejections are silent and simply omit the
// candidate.
type Inspector interface {
	Name() string
	ProcessTree(ctx context.Context, tree *models.BlockTree, meta *pricing.Metadata) ([]models.Bundle, error)
}

// RunInspectors drives each inspector over the same block and concatenates
// their bundles in inspector order. Merging overlapping detections across
// strategies is the composer's job, not done here.
func RunInspectors(
	ctx context.Context,
	inspectors []Inspector,
	tree *models.BlockTree,
	meta *pricing.Metadata,
) ([]models.Bundle, error) {
	var all []models.Bundle
	for _, ins := range inspectors {
		bundles, err := ins.ProcessTree(ctx, tree, meta)
		if err != nil {
			return nil, err
		}
		all = append(all, bundles...)
	}
	return all, nil
}
