package ibge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/store"
)

const estadosJSON = `[
	{"id": 35, "sigla": "SP", "nome": "São Paulo", "regiao": {"id": 3, "sigla": "SE", "nome": "Sudeste"}},
	{"id": 11, "sigla": "RO", "nome": "Rondônia", "regiao": {"id": 1, "sigla": "N", "nome": "Norte"}},
	{"id": 99, "sigla": "", "nome": "Sem sigla"}
]`

const municipiosJSON = `[
	{
		"id": 3550308,
		"nome": "São Paulo",
		"microrregiao": {
			"id": 35061,
			"nome": "São Paulo",
			"mesorregiao": {
				"id": 3515,
				"nome": "Metropolitana de São Paulo",
				"UF": {"id": 35, "sigla": "SP", "nome": "São Paulo", "regiao": {"id": 3, "sigla": "SE", "nome": "Sudeste"}}
			}
		}
	},
	{
		"id": 5101837,
		"nome": "Boa Esperança do Norte",
		"microrregiao": null,
		"regiao-imediata": {
			"id": 510009,
			"nome": "Sorriso",
			"regiao-intermediaria": {
				"id": 5103,
				"nome": "Sinop",
				"UF": {"id": 51, "sigla": "MT", "nome": "Mato Grosso", "regiao": {"id": 5, "sigla": "CO", "nome": "Centro-Oeste"}}
			}
		}
	},
	{"id": 1, "nome": "Orfão", "microrregiao": null}
]`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/localidades/estados", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(estadosJSON))
	})
	mux.HandleFunc("/localidades/municipios", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(municipiosJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStates(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/localidades", time.Second, logger.Discard())

	states, err := c.States(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.State{
		{Code: 35, UF: "SP", Name: "São Paulo", Region: "Sudeste"},
		{Code: 11, UF: "RO", Name: "Rondônia", Region: "Norte"},
	}, states)
}

func TestMunicipalities(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL+"/localidades/", time.Second, logger.Discard())

	got, err := c.Municipalities(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, store.Municipality{
		EntityID:    "3550308",
		Name:        "São Paulo",
		UF:          "SP",
		Mesoregion:  "Metropolitana de São Paulo",
		Microregion: "São Paulo",
	}, got[0])
	assert.Equal(t, "MT", got[1].UF)
	assert.Empty(t, got[1].Mesoregion)
}

func TestStatesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).States(context.Background())
	var se *fetcher.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestMunicipalitiesMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"erro": true}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Municipalities(context.Background())
	var me *fetcher.MalformedResponseError
	assert.True(t, errors.As(err, &me))
}
