package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

type Storage struct {
	FiscalItems interface {
		Get(ctx context.Context, f fiscal.Filter, maxAge time.Duration) (*fiscal.Dataset, bool, error)
		Put(ctx context.Context, ds *fiscal.Dataset) error
		Delete(ctx context.Context, f fiscal.Filter) error
		Availability(ctx context.Context, entityID string) ([]CacheEntry, error)
	}

	Entities interface {
		UpsertStates(ctx context.Context, states []State) error
		UpsertMunicipalities(ctx context.Context, municipalities []Municipality) error
		ListStates(ctx context.Context) ([]State, error)
		ListMunicipalities(ctx context.Context, uf string) ([]Municipality, error)
		EntityName(ctx context.Context, entityID string) (string, bool, error)
	}

	SyncHistory interface {
		InsertSyncHistory(ctx context.Context, history *SyncHistory) error
		UpdateSyncStatus(ctx context.Context, id int64, status, message string) error
		GetLatest(ctx context.Context, limit int) ([]SyncHistory, error)
		GetLatestByScope(ctx context.Context, fingerprints []string) ([]SyncHistory, error)
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		FiscalItems: &FiscalItemStore{db: db, now: time.Now},
		Entities:    &EntityStore{db: db},
		SyncHistory: &SyncHistoryStore{db: db},
	}
}
