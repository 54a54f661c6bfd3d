package fiscal

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// ReportType is the co_tipo_demonstrativo accepted by SICONFI.
type ReportType string

const (
	ReportFull       ReportType = "RREO"
	ReportSimplified ReportType = "RREO Simplificado"
)

// Sphere is the co_esfera accepted by SICONFI.
type Sphere string

const (
	SphereMunicipal Sphere = "M"
	SphereState     Sphere = "E"
)

// Filter is the logical scope of one RREO request.
type Filter struct {
	EntityID    string     `json:"id_ente" validate:"required"`
	Year        int        `json:"an_exercicio" validate:"gt=0"`
	Period      int        `json:"nr_periodo" validate:"min=1,max=6"`
	ReportType  ReportType `json:"co_tipo_demonstrativo" validate:"oneof='RREO' 'RREO Simplificado'"`
	Annex       string     `json:"no_anexo,omitempty"`
	Sphere      Sphere     `json:"co_esfera,omitempty" validate:"omitempty,oneof=M E"`
	Periodicity string     `json:"co_periodicidade,omitempty"`
}

// PreviousYear returns the same scope one fiscal year earlier.
func (f Filter) PreviousYear() Filter {
	prev := f
	prev.Year--
	return prev
}

// Key is the human readable composite scope key.
func (f Filter) Key() string {
	return strings.Join([]string{
		f.EntityID,
		strconv.Itoa(f.Year),
		strconv.Itoa(f.Period),
		string(f.ReportType),
		f.Annex,
		string(f.Sphere),
	}, "|")
}

// Fingerprint is the SHA-1 of Key, used as the persisted cache identity.
func (f Filter) Fingerprint() string {
	sum := sha1.Sum([]byte(f.Key()))
	return hex.EncodeToString(sum[:])
}

// LineItem is one reported figure after normalization. Scope is carried by
// the surrounding Dataset, never by the item.
type LineItem struct {
	AccountCode        string  `json:"cod_conta" db:"cod_conta"`
	AccountDescription string  `json:"conta" db:"conta"`
	ColumnLabel        string  `json:"coluna" db:"coluna"`
	Value              float64 `json:"valor" db:"valor"`
}

// Metadata holds optional display labels found in the upstream payload.
type Metadata struct {
	EntityName string `json:"entity_name,omitempty"`
	UF         string `json:"uf,omitempty"`
}

// Dataset is the working set of one scope.
type Dataset struct {
	Filter    Filter     `json:"filter"`
	Items     []LineItem `json:"items"`
	Meta      Metadata   `json:"meta"`
	FetchedAt time.Time  `json:"fetched_at"`
	Truncated bool       `json:"truncated,omitempty"`
}
