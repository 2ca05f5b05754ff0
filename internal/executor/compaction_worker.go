package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// defaultCompactionRetentionDays applies when the task payload carries no
// retention override
const defaultCompactionRetentionDays = 30

// FactPruner removes superseded knowledge graph entries
type FactPruner interface {
	PruneSuperseded(ctx context.Context, cutoff time.Time) (int, error)
}

// FactCompactionWorker prunes superseded memory facts on a schedule. The fact
// log is append-only at write time, so old entries that have been overridden
// by higher-confidence writes accumulate until this worker removes them.
type FactCompactionWorker struct {
	logger *zap.Logger
	facts  FactPruner
}

// NewFactCompactionWorker creates a new fact compaction worker
func NewFactCompactionWorker(logger *zap.Logger, facts FactPruner) *FactCompactionWorker {
	return &FactCompactionWorker{
		logger: logger,
		facts:  facts,
	}
}

// ProcessTask prunes superseded facts older than the retention window
func (w *FactCompactionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload FactCompactionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal compaction payload: %w", err)
	}

	retentionDays := payload.RetentionDays
	if retentionDays <= 0 {
		retentionDays = defaultCompactionRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	pruned, err := w.facts.PruneSuperseded(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune superseded facts: %w", err)
	}

	w.logger.Info("fact compaction completed",
		zap.Int("pruned", pruned),
		zap.Int("retention_days", retentionDays),
		zap.Time("cutoff", cutoff),
	)
	return nil
}
