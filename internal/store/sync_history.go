package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type SyncHistoryStore struct {
	db *sqlx.DB
}

var (
	TriggerTypeManual    = "manual"
	TriggerTypeScheduled = "scheduled"
)

var (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusSkipped    = "skipped"
)

func (sh *SyncHistoryStore) InsertSyncHistory(ctx context.Context, history *SyncHistory) error {
	query := `INSERT INTO sync_history (
		run_id,
		fingerprint,
		id_ente,
		an_exercicio,
		nr_periodo,
		co_tipo_demonstrativo,
		trigger_type,
		status,
		message
	) VALUES (
		:run_id,
		:fingerprint,
		:id_ente,
		:an_exercicio,
		:nr_periodo,
		:co_tipo_demonstrativo,
		:trigger_type,
		:status,
		:message
	) RETURNING id, processed_at`

	rows, err := sqlx.NamedQueryContext(ctx, sh.db, query, history)
	if err != nil {
		return fmt.Errorf("failed to insert sync history: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&history.ID, &history.ProcessedAt); err != nil {
			return fmt.Errorf("failed to scan sync history id: %w", err)
		}
	}
	return rows.Err()
}

func (sh *SyncHistoryStore) UpdateSyncStatus(ctx context.Context, id int64, status, message string) error {
	_, err := sh.db.ExecContext(ctx, `
	UPDATE sync_history
	SET status = $1, message = $2, processed_at = NOW()
	WHERE id = $3`, status, message, id)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

func (sh *SyncHistoryStore) GetLatest(ctx context.Context, limit int) ([]SyncHistory, error) {
	history := []SyncHistory{}
	err := sh.db.SelectContext(ctx, &history, `
	SELECT id, run_id, fingerprint, id_ente, an_exercicio, nr_periodo, co_tipo_demonstrativo,
		trigger_type, status, message, processed_at
	FROM sync_history
	ORDER BY processed_at DESC
	LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	return history, nil
}

// GetLatestByScope returns the most recent record of each fingerprint.
func (sh *SyncHistoryStore) GetLatestByScope(ctx context.Context, fingerprints []string) ([]SyncHistory, error) {
	history := []SyncHistory{}
	if len(fingerprints) == 0 {
		return history, nil
	}
	err := sh.db.SelectContext(ctx, &history, `
	SELECT DISTINCT ON (fingerprint)
		id, run_id, fingerprint, id_ente, an_exercicio, nr_periodo, co_tipo_demonstrativo,
		trigger_type, status, message, processed_at
	FROM sync_history
	WHERE fingerprint = ANY($1)
	ORDER BY fingerprint, processed_at DESC`, pq.Array(fingerprints))
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history by scope: %w", err)
	}
	return history, nil
}
