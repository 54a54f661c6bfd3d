package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type EntityStore struct {
	db *sqlx.DB
}

const entityBatchSize = 500

func (es *EntityStore) UpsertStates(ctx context.Context, states []State) error {
	if len(states) == 0 {
		return nil
	}
	query := `INSERT INTO estados (
		codigo_uf,
		uf,
		nome,
		regiao
	) VALUES (
		:codigo_uf,
		:uf,
		:nome,
		:regiao
	)
	ON CONFLICT (codigo_uf) DO UPDATE SET
		uf = EXCLUDED.uf,
		nome = EXCLUDED.nome,
		regiao = EXCLUDED.regiao`

	if _, err := es.db.NamedExecContext(ctx, query, states); err != nil {
		return fmt.Errorf("failed to upsert states: %w", err)
	}
	return nil
}

func (es *EntityStore) UpsertMunicipalities(ctx context.Context, municipalities []Municipality) error {
	if len(municipalities) == 0 {
		return nil
	}
	query := `INSERT INTO entes (
		id_ente,
		nome,
		uf,
		mesorregiao,
		microrregiao
	) VALUES (
		:id_ente,
		:nome,
		:uf,
		:mesorregiao,
		:microrregiao
	)
	ON CONFLICT (id_ente) DO UPDATE SET
		nome = EXCLUDED.nome,
		uf = EXCLUDED.uf,
		mesorregiao = EXCLUDED.mesorregiao,
		microrregiao = EXCLUDED.microrregiao`

	tx, err := es.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(municipalities); start += entityBatchSize {
		end := min(start+entityBatchSize, len(municipalities))
		if _, err := tx.NamedExecContext(ctx, query, municipalities[start:end]); err != nil {
			return fmt.Errorf("failed to upsert municipalities: %w", err)
		}
	}
	return tx.Commit()
}

func (es *EntityStore) ListStates(ctx context.Context) ([]State, error) {
	states := []State{}
	err := es.db.SelectContext(ctx, &states, `SELECT codigo_uf, uf, nome, regiao FROM estados ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	return states, nil
}

// ListMunicipalities lists every municipality, or those of one UF.
func (es *EntityStore) ListMunicipalities(ctx context.Context, uf string) ([]Municipality, error) {
	municipalities := []Municipality{}
	query := `SELECT id_ente, nome, uf, mesorregiao, microrregiao FROM entes`
	args := []any{}
	if uf != "" {
		query += ` WHERE uf = $1`
		args = append(args, uf)
	}
	query += ` ORDER BY nome`

	if err := es.db.SelectContext(ctx, &municipalities, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list municipalities: %w", err)
	}
	return municipalities, nil
}

// EntityName resolves a municipality or state code to its display name.
func (es *EntityStore) EntityName(ctx context.Context, entityID string) (string, bool, error) {
	var name string
	err := es.db.GetContext(ctx, &name, `
	SELECT nome FROM entes WHERE id_ente = $1
	UNION ALL
	SELECT nome FROM estados WHERE codigo_uf::text = $1
	LIMIT 1`, entityID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve entity name: %w", err)
	}
	return name, true, nil
}
