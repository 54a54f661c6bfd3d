package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

// itemBatchSize keeps one multi-row insert well under the Postgres bind
// parameter limit.
const itemBatchSize = 1000

type FiscalItemStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Get returns the cached dataset of a scope. A missing scope, or one fetched
// more than maxAge ago, is reported as ok=false.
func (s *FiscalItemStore) Get(ctx context.Context, f fiscal.Filter, maxAge time.Duration) (*fiscal.Dataset, bool, error) {
	fp := f.Fingerprint()

	var entry CacheEntry
	err := s.db.GetContext(ctx, &entry, `
	SELECT fingerprint, id_ente, an_exercicio, nr_periodo, co_tipo_demonstrativo, no_anexo, co_esfera,
		entity_name, uf, item_count, truncated, fetched_at
	FROM rreo_cache
	WHERE fingerprint = $1`, fp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if maxAge > 0 && s.now().Sub(entry.FetchedAt) > maxAge {
		return nil, false, nil
	}

	var rows []ItemRow
	err = s.db.SelectContext(ctx, &rows, `
	SELECT fingerprint, position, cod_conta, conta, coluna, valor
	FROM rreo_items
	WHERE fingerprint = $1
	ORDER BY position`, fp)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached items: %w", err)
	}

	items := make([]fiscal.LineItem, len(rows))
	for i, r := range rows {
		items[i] = fiscal.LineItem{
			AccountCode:        r.AccountCode,
			AccountDescription: r.Description,
			ColumnLabel:        r.Column,
			Value:              r.Value,
		}
	}

	return &fiscal.Dataset{
		Filter:    f,
		Items:     items,
		Meta:      fiscal.Metadata{EntityName: entry.EntityName, UF: entry.UF},
		FetchedAt: entry.FetchedAt,
		Truncated: entry.Truncated,
	}, true, nil
}

// Put replaces every row of the scope and records its freshness in one
// transaction.
func (s *FiscalItemStore) Put(ctx context.Context, ds *fiscal.Dataset) error {
	fp := ds.Filter.Fingerprint()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rreo_items WHERE fingerprint = $1`, fp); err != nil {
		return fmt.Errorf("failed to clear cached items: %w", err)
	}

	rows := make([]ItemRow, len(ds.Items))
	for i, it := range ds.Items {
		rows[i] = ItemRow{
			Fingerprint: fp,
			Position:    i,
			AccountCode: it.AccountCode,
			Description: it.AccountDescription,
			Column:      it.ColumnLabel,
			Value:       it.Value,
		}
	}
	for start := 0; start < len(rows); start += itemBatchSize {
		end := min(start+itemBatchSize, len(rows))
		_, err := tx.NamedExecContext(ctx, `INSERT INTO rreo_items (
			fingerprint,
			position,
			cod_conta,
			conta,
			coluna,
			valor
		) VALUES (
			:fingerprint,
			:position,
			:cod_conta,
			:conta,
			:coluna,
			:valor
		)`, rows[start:end])
		if err != nil {
			return fmt.Errorf("failed to insert cached items: %w", err)
		}
	}

	entry := CacheEntry{
		Fingerprint: fp,
		EntityID:    ds.Filter.EntityID,
		Year:        ds.Filter.Year,
		Period:      ds.Filter.Period,
		ReportType:  string(ds.Filter.ReportType),
		Annex:       ds.Filter.Annex,
		Sphere:      string(ds.Filter.Sphere),
		EntityName:  ds.Meta.EntityName,
		UF:          ds.Meta.UF,
		ItemCount:   len(ds.Items),
		Truncated:   ds.Truncated,
		FetchedAt:   ds.FetchedAt,
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = s.now()
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO rreo_cache (
		fingerprint,
		id_ente,
		an_exercicio,
		nr_periodo,
		co_tipo_demonstrativo,
		no_anexo,
		co_esfera,
		entity_name,
		uf,
		item_count,
		truncated,
		fetched_at
	) VALUES (
		:fingerprint,
		:id_ente,
		:an_exercicio,
		:nr_periodo,
		:co_tipo_demonstrativo,
		:no_anexo,
		:co_esfera,
		:entity_name,
		:uf,
		:item_count,
		:truncated,
		:fetched_at
	)
	ON CONFLICT (fingerprint) DO UPDATE SET
		entity_name = EXCLUDED.entity_name,
		uf = EXCLUDED.uf,
		item_count = EXCLUDED.item_count,
		truncated = EXCLUDED.truncated,
		fetched_at = EXCLUDED.fetched_at`, entry)
	if err != nil {
		return fmt.Errorf("failed to record cache freshness: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache replace: %w", err)
	}
	return nil
}

// Delete drops a scope; rreo_items rows cascade.
func (s *FiscalItemStore) Delete(ctx context.Context, f fiscal.Filter) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rreo_cache WHERE fingerprint = $1`, f.Fingerprint()); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Availability lists the cached scopes of an entity, newest first.
func (s *FiscalItemStore) Availability(ctx context.Context, entityID string) ([]CacheEntry, error) {
	entries := []CacheEntry{}
	err := s.db.SelectContext(ctx, &entries, `
	SELECT fingerprint, id_ente, an_exercicio, nr_periodo, co_tipo_demonstrativo, no_anexo, co_esfera,
		entity_name, uf, item_count, truncated, fetched_at
	FROM rreo_cache
	WHERE id_ente = $1
	ORDER BY an_exercicio DESC, nr_periodo DESC, co_tipo_demonstrativo`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	return entries, nil
}
