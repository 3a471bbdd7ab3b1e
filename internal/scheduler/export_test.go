package scheduler

import "context"

// ExportedPrune exposes the private prune method for external tests.
func (p *Pruner) ExportedPrune(ctx context.Context) {
	p.prune(ctx)
}
