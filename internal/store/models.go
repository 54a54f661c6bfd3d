package store

import (
	"time"
)

// CacheEntry represents the 'rreo_cache' table: one row per cached scope.
type CacheEntry struct {
	Fingerprint string    `db:"fingerprint" json:"-"`
	EntityID    string    `db:"id_ente" json:"id_ente"`
	Year        int       `db:"an_exercicio" json:"an_exercicio"`
	Period      int       `db:"nr_periodo" json:"nr_periodo"`
	ReportType  string    `db:"co_tipo_demonstrativo" json:"co_tipo_demonstrativo"`
	Annex       string    `db:"no_anexo" json:"no_anexo,omitempty"`
	Sphere      string    `db:"co_esfera" json:"co_esfera,omitempty"`
	EntityName  string    `db:"entity_name" json:"entity_name,omitempty"`
	UF          string    `db:"uf" json:"uf,omitempty"`
	ItemCount   int       `db:"item_count" json:"item_count"`
	Truncated   bool      `db:"truncated" json:"truncated"`
	FetchedAt   time.Time `db:"fetched_at" json:"fetched_at"`
}

// ItemRow represents the 'rreo_items' table.
type ItemRow struct {
	Fingerprint string  `db:"fingerprint"`
	Position    int     `db:"position"`
	AccountCode string  `db:"cod_conta"`
	Description string  `db:"conta"`
	Column      string  `db:"coluna"`
	Value       float64 `db:"valor"`
}

// State represents the 'estados' table.
type State struct {
	Code   int    `db:"codigo_uf" json:"codigo_uf"`
	UF     string `db:"uf" json:"uf"`
	Name   string `db:"nome" json:"nome"`
	Region string `db:"regiao" json:"regiao"`
}

// Municipality represents the 'entes' table.
type Municipality struct {
	EntityID    string `db:"id_ente" json:"id_ente"`
	Name        string `db:"nome" json:"nome"`
	UF          string `db:"uf" json:"uf"`
	Mesoregion  string `db:"mesorregiao" json:"mesorregiao,omitempty"`
	Microregion string `db:"microrregiao" json:"microrregiao,omitempty"`
}

// SyncHistory represents the 'sync_history' table: one row per warm-up job.
type SyncHistory struct {
	ID          int64     `db:"id" json:"id"`
	RunID       string    `db:"run_id" json:"run_id"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	EntityID    string    `db:"id_ente" json:"id_ente"`
	Year        int       `db:"an_exercicio" json:"an_exercicio"`
	Period      int       `db:"nr_periodo" json:"nr_periodo"`
	ReportType  string    `db:"co_tipo_demonstrativo" json:"co_tipo_demonstrativo"`
	TriggerType string    `db:"trigger_type" json:"trigger_type"`
	Status      string    `db:"status" json:"status"`
	Message     string    `db:"message" json:"message,omitempty"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}
