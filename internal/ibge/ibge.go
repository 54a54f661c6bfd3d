package ibge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/logger"
	"github.com/farxc/envelopa-rreo/internal/store"
)

const DefaultBaseURL = "https://servicodados.ibge.gov.br/api/v1/localidades/"

type region struct {
	ID    int    `json:"id"`
	Sigla string `json:"sigla"`
	Nome  string `json:"nome"`
}

type uf struct {
	ID     int    `json:"id"`
	Sigla  string `json:"sigla"`
	Nome   string `json:"nome"`
	Regiao region `json:"regiao"`
}

type mesorregiao struct {
	Nome string `json:"nome"`
	UF   *uf    `json:"UF"`
}

type microrregiao struct {
	Nome        string       `json:"nome"`
	Mesorregiao *mesorregiao `json:"mesorregiao"`
}

type regiaoIntermediaria struct {
	UF *uf `json:"UF"`
}

type regiaoImediata struct {
	RegiaoIntermediaria *regiaoIntermediaria `json:"regiao-intermediaria"`
}

type municipio struct {
	ID             int             `json:"id"`
	Nome           string          `json:"nome"`
	Microrregiao   *microrregiao   `json:"microrregiao"`
	RegiaoImediata *regiaoImediata `json:"regiao-imediata"`
}

// stateOf walks microrregiao -> mesorregiao -> UF, falling back to the
// immediate/intermediate region chain used by municipalities created after
// the micro/mesoregion division was frozen.
func (m municipio) stateOf() *uf {
	if m.Microrregiao != nil && m.Microrregiao.Mesorregiao != nil && m.Microrregiao.Mesorregiao.UF != nil {
		return m.Microrregiao.Mesorregiao.UF
	}
	if m.RegiaoImediata != nil && m.RegiaoImediata.RegiaoIntermediaria != nil {
		return m.RegiaoImediata.RegiaoIntermediaria.UF
	}
	return nil
}

// Client reads states and municipalities from the IBGE localities API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		http:    &http.Client{Timeout: timeout},
		logger:  log,
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	const component = "IBGE"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &fetcher.TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug(component, "GET path=%s", path)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(component, "HTTP request failed: path=%s error=%v", path, err)
		return &fetcher.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn(component, "Non-OK HTTP response: path=%s statusCode=%d", path, resp.StatusCode)
		return &fetcher.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &fetcher.MalformedResponseError{Reason: "unexpected " + path + " payload", Err: err}
	}
	return nil
}

// States returns every federative unit. Entries without a sigla are dropped.
func (c *Client) States(ctx context.Context) ([]store.State, error) {
	const component = "IBGE"

	var raw []uf
	if err := c.get(ctx, "estados", &raw); err != nil {
		return nil, err
	}

	states := make([]store.State, 0, len(raw))
	for _, s := range raw {
		if s.Sigla == "" || s.Nome == "" {
			continue
		}
		states = append(states, store.State{
			Code:   s.ID,
			UF:     s.Sigla,
			Name:   s.Nome,
			Region: s.Regiao.Nome,
		})
	}
	c.logger.Info(component, "States fetched: count=%d", len(states))
	return states, nil
}

// Municipalities returns every municipality whose state can be resolved.
func (c *Client) Municipalities(ctx context.Context) ([]store.Municipality, error) {
	const component = "IBGE"

	var raw []municipio
	if err := c.get(ctx, "municipios", &raw); err != nil {
		return nil, err
	}

	out := make([]store.Municipality, 0, len(raw))
	skipped := 0
	for _, m := range raw {
		state := m.stateOf()
		if m.ID == 0 || m.Nome == "" || state == nil || state.Sigla == "" {
			skipped++
			continue
		}
		mun := store.Municipality{
			EntityID: strconv.Itoa(m.ID),
			Name:     m.Nome,
			UF:       state.Sigla,
		}
		if m.Microrregiao != nil {
			mun.Microregion = m.Microrregiao.Nome
			if m.Microrregiao.Mesorregiao != nil {
				mun.Mesoregion = m.Microrregiao.Mesorregiao.Nome
			}
		}
		out = append(out, mun)
	}
	if skipped > 0 {
		c.logger.Warn(component, "Municipalities without resolvable state skipped: count=%d", skipped)
	}
	c.logger.Info(component, "Municipalities fetched: count=%d", len(out))
	return out, nil
}
