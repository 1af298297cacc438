package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roleadmin/internal/services"
	"roleadmin/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Refiller applies due auto refills.
type Refiller interface {
	RefillDue(ctx context.Context, now time.Time) (int, error)
}

// Archiver copies a window of transactions to object storage.
type Archiver interface {
	Enabled() bool
	Archive(ctx context.Context, since, until time.Time) (services.ArchiveResult, error)
}

// TaskHandler processes the periodic ledger tasks.
type TaskHandler struct {
	refiller Refiller
	archiver Archiver
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskHandler creates a new TaskHandler. Archive windows are computed in loc.
func NewTaskHandler(refiller Refiller, archiver Archiver, loc *time.Location) *TaskHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskHandler{
		refiller: refiller,
		archiver: archiver,
		location: loc,
		logger:   logger.New("task_handler"),
		now:      time.Now,
	}
}

// Register mounts every handler on mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeBalanceRefill, h.HandleBalanceRefill)
	mux.HandleFunc(TaskTypeTransactionsArchive, h.HandleTransactionsArchive)
}

func (h *TaskHandler) HandleBalanceRefill(ctx context.Context, t *asynq.Task) error {
	var p RefillPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decoding refill payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	at := p.At
	if at.IsZero() {
		at = h.now()
	}

	n, err := h.refiller.RefillDue(ctx, at)
	if err != nil {
		return h.logger.Error("refill pass applied %d refill(s) before failing", err, n)
	}
	h.logger.Debug("refill pass at %s applied %d refill(s)", at.Format(time.RFC3339), n)
	return nil
}

func (h *TaskHandler) HandleTransactionsArchive(ctx context.Context, t *asynq.Task) error {
	if h.archiver == nil || !h.archiver.Enabled() {
		h.logger.Warn("skipping %s: archiving is disabled", t.Type())
		return nil
	}

	var p ArchivePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decoding archive payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	since, until := p.Since, p.Until
	if since.IsZero() || until.IsZero() {
		since, until = PreviousDay(h.now().In(h.location))
	}

	res, err := h.archiver.Archive(ctx, since, until)
	if err != nil {
		return err
	}
	if res.Count > 0 {
		h.logger.Success("archived %d transaction(s) to %s", res.Count, res.Key)
	}
	return nil
}
