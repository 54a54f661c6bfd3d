package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func testFilter() fiscal.Filter {
	return fiscal.Filter{EntityID: "3550308", Year: 2024, Period: 6, ReportType: fiscal.ReportFull, Sphere: fiscal.SphereMunicipal}
}

var cacheColumns = []string{
	"fingerprint", "id_ente", "an_exercicio", "nr_periodo", "co_tipo_demonstrativo", "no_anexo", "co_esfera",
	"entity_name", "uf", "item_count", "truncated", "fetched_at",
}

func cacheRow(f fiscal.Filter, fetchedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(cacheColumns).AddRow(
		f.Fingerprint(), f.EntityID, f.Year, f.Period, string(f.ReportType), f.Annex, string(f.Sphere),
		"São Paulo", "SP", 2, false, fetchedAt,
	)
}

func TestFiscalItemStoreGetHit(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	s := &FiscalItemStore{db: db, now: func() time.Time { return now }}
	f := testFilter()

	mock.ExpectQuery("FROM rreo_cache").WithArgs(f.Fingerprint()).WillReturnRows(cacheRow(f, now.Add(-time.Hour)))
	mock.ExpectQuery("FROM rreo_items").WithArgs(f.Fingerprint()).WillReturnRows(
		sqlmock.NewRows([]string{"fingerprint", "position", "cod_conta", "conta", "coluna", "valor"}).
			AddRow(f.Fingerprint(), 0, "RO1", "Receitas Correntes", "Realizado", 10.5).
			AddRow(f.Fingerprint(), 1, "RO2", "Receitas de Capital", "Realizado", 2.0),
	)

	ds, ok, err := s.Get(context.Background(), f, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, ds.Items, 2)
	assert.Equal(t, "RO1", ds.Items[0].AccountCode)
	assert.Equal(t, "São Paulo", ds.Meta.EntityName)
	assert.Equal(t, f, ds.Filter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFiscalItemStoreGetStaleOrMissing(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	s := &FiscalItemStore{db: db, now: func() time.Time { return now }}
	f := testFilter()

	mock.ExpectQuery("FROM rreo_cache").WillReturnRows(cacheRow(f, now.Add(-25*time.Hour)))
	_, ok, err := s.Get(context.Background(), f, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery("FROM rreo_cache").WillReturnRows(sqlmock.NewRows(cacheColumns))
	_, ok, err = s.Get(context.Background(), f, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFiscalItemStorePutReplacesInOneTransaction(t *testing.T) {
	db, mock := newMock(t)
	s := &FiscalItemStore{db: db, now: time.Now}
	f := testFilter()
	ds := &fiscal.Dataset{
		Filter: f,
		Items: []fiscal.LineItem{
			{AccountCode: "RO1", AccountDescription: "Receitas Correntes", ColumnLabel: "Realizado", Value: 10},
			{AccountCode: "RO2", AccountDescription: "Receitas de Capital", ColumnLabel: "Realizado", Value: 5},
		},
		FetchedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rreo_items").WithArgs(f.Fingerprint()).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO rreo_items").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO rreo_cache").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Put(context.Background(), ds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFiscalItemStorePutRollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	s := &FiscalItemStore{db: db, now: time.Now}
	ds := &fiscal.Dataset{Filter: testFilter(), Items: []fiscal.LineItem{{AccountCode: "1", ColumnLabel: "Valor", Value: 1}}}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rreo_items").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO rreo_items").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Put(context.Background(), ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFiscalItemStoreAvailability(t *testing.T) {
	db, mock := newMock(t)
	s := &FiscalItemStore{db: db, now: time.Now}
	f := testFilter()

	mock.ExpectQuery("FROM rreo_cache").WithArgs("3550308").WillReturnRows(cacheRow(f, time.Now()))
	entries, err := s.Availability(context.Background(), "3550308")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2024, entries[0].Year)
	assert.Equal(t, 2, entries[0].ItemCount)
}

func TestEntityStoreEntityName(t *testing.T) {
	db, mock := newMock(t)
	s := &EntityStore{db: db}

	mock.ExpectQuery("SELECT nome FROM entes").WithArgs("3550308").
		WillReturnRows(sqlmock.NewRows([]string{"nome"}).AddRow("São Paulo"))
	name, ok, err := s.EntityName(context.Background(), "3550308")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "São Paulo", name)

	mock.ExpectQuery("SELECT nome FROM entes").WithArgs("0").WillReturnRows(sqlmock.NewRows([]string{"nome"}))
	_, ok, err = s.EntityName(context.Background(), "0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntityStoreListMunicipalitiesByUF(t *testing.T) {
	db, mock := newMock(t)
	s := &EntityStore{db: db}

	mock.ExpectQuery("FROM entes WHERE uf").WithArgs("SP").WillReturnRows(
		sqlmock.NewRows([]string{"id_ente", "nome", "uf", "mesorregiao", "microrregiao"}).
			AddRow("3550308", "São Paulo", "SP", "Metropolitana de São Paulo", "São Paulo"),
	)
	list, err := s.ListMunicipalities(context.Background(), "SP")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "3550308", list[0].EntityID)
}

func TestSyncHistoryInsertReturnsID(t *testing.T) {
	db, mock := newMock(t)
	s := &SyncHistoryStore{db: db}
	processed := time.Now()

	mock.ExpectQuery("INSERT INTO sync_history").WillReturnRows(
		sqlmock.NewRows([]string{"id", "processed_at"}).AddRow(int64(42), processed),
	)
	h := &SyncHistory{RunID: "7b1f", Fingerprint: testFilter().Fingerprint(), Status: StatusInProgress}
	require.NoError(t, s.InsertSyncHistory(context.Background(), h))
	assert.EqualValues(t, 42, h.ID)

	mock.ExpectExec("UPDATE sync_history").WithArgs(StatusSuccess, "", int64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdateSyncStatus(context.Background(), 42, StatusSuccess, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}
