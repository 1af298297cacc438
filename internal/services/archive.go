package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roleadmin/internal/store"
	console "roleadmin/internal/utils/logger"
)

var archiveLog = console.New("ARCHIVE")

const archiveLinkTTL = 24 * time.Hour

type ArchiveResult struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	URL   string `json:"url,omitempty"`
}

// Archiver copies the transaction audit trail to object storage as JSON lines.
type Archiver struct {
	balances store.BalanceStore
	objects  ObjectStore
}

// NewArchiver returns an archiver; a nil objects store turns Archive into a no-op.
func NewArchiver(balances store.BalanceStore, objects ObjectStore) *Archiver {
	return &Archiver{balances: balances, objects: objects}
}

func (a *Archiver) Enabled() bool {
	return a.objects != nil
}

// ArchiveKey names the object for a window starting at since. The date is
// taken in since's own location so daily windows land under their own day.
func ArchiveKey(since time.Time) string {
	return fmt.Sprintf("transactions/%04d/%02d/%02d/%s.jsonl", since.Year(), since.Month(), since.Day(), uuid.New().String())
}

// Archive uploads the transactions created in [since, until). Empty windows upload nothing.
func (a *Archiver) Archive(ctx context.Context, since, until time.Time) (ArchiveResult, error) {
	if !a.Enabled() {
		archiveLog.Warn("archive skipped: no bucket configured")
		return ArchiveResult{}, nil
	}
	if !until.After(since) {
		return ArchiveResult{}, fmt.Errorf("archive window is empty: %s >= %s", since.Format(time.RFC3339), until.Format(time.RFC3339))
	}

	txs, err := a.balances.ListTransactions(ctx, store.TransactionFilter{Since: since, Until: until})
	if err != nil {
		return ArchiveResult{}, archiveLog.Error("listing transactions", err)
	}
	if len(txs) == 0 {
		archiveLog.Info("no transactions between %s and %s", since.Format(time.RFC3339), until.Format(time.RFC3339))
		return ArchiveResult{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := len(txs) - 1; i >= 0; i-- {
		if err := enc.Encode(txs[i]); err != nil {
			return ArchiveResult{}, archiveLog.Error("encoding transaction %s", err, txs[i].ID)
		}
	}

	key := ArchiveKey(since)
	if err := a.objects.PutObject(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return ArchiveResult{}, err
	}
	res := ArchiveResult{Key: key, Count: len(txs)}
	if url, err := a.objects.GetSignedURL(ctx, key, archiveLinkTTL); err == nil {
		res.URL = url
	}
	archiveLog.Success("archived %d transaction(s) to %s", res.Count, key)
	return res, nil
}
