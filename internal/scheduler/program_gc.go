package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanatv/hanatv/internal/repository"
)

// ProgramGC deletes programs that ended more than retention ago, keeping
// the programs table bounded to the near past and the current/upcoming
// schedule rather than growing forever.
type ProgramGC struct {
	programRepo repository.ProgramRepository
	retention   time.Duration
	logger      *slog.Logger
}

// NewProgramGC creates a ProgramGC.
func NewProgramGC(programRepo repository.ProgramRepository, retention time.Duration, logger *slog.Logger) *ProgramGC {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgramGC{programRepo: programRepo, retention: retention, logger: logger}
}

// Run deletes programs whose EndAt is older than now minus retention.
func (g *ProgramGC) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-g.retention)
	deleted, err := g.programRepo.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("scheduler: deleting ended programs: %w", err)
	}
	if deleted > 0 {
		g.logger.Info("garbage collected ended programs", slog.Int64("count", deleted), slog.Time("cutoff", cutoff))
	}
	return nil
}
