package siconfi

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var body any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&body))
	return body
}

func TestExtractPageItemsEnvelope(t *testing.T) {
	body := decode(t, `{
		"items": [
			{"INSTITUICAO": "Prefeitura de Sao Paulo", "UF": "SP", "COD_CONTA": "RO1", "CONTA": "Receitas Correntes", "COLUNA": "Até o Bimestre", "VALOR": "1.234,56"},
			{"cod_conta": "RO2", "conta": "Receitas de Capital", "coluna": "Realizado", "vl_realizado": 10},
			{"cod_conta": "", "conta": "", "coluna": "Realizado", "valor": 1},
			{"cod_conta": "RO3", "conta": "Sem coluna", "valor": 1},
			{"cod_conta": "RO4", "conta": "Sem valor", "coluna": "Realizado", "valor": ""},
			"not an object"
		],
		"hasMore": true,
		"links": [{"rel": "self", "href": "/x"}, {"rel": "next", "href": "/ords/siconfi/tt/rreo?offset=1000"}]
	}`)

	page, err := ExtractPage(body, "https://api.example/ords/siconfi/tt/")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 4, page.Dropped)

	assert.Equal(t, "RO1", page.Items[0].AccountCode)
	assert.Equal(t, "Receitas Correntes", page.Items[0].AccountDescription)
	assert.Equal(t, "Até o Bimestre", page.Items[0].ColumnLabel)
	assert.InDelta(t, 1234.56, page.Items[0].Value, 1e-9)
	assert.InDelta(t, 10.0, page.Items[1].Value, 1e-9)

	assert.Equal(t, "Prefeitura de Sao Paulo", page.Meta.EntityName)
	assert.Equal(t, "SP", page.Meta.UF)
	assert.True(t, page.HasMore)
	assert.Equal(t, "https://api.example/ords/siconfi/tt/rreo?offset=1000", page.NextLink)
}

func TestExtractPageValueEnvelopeAndBareList(t *testing.T) {
	page, err := ExtractPage(decode(t, `{"value": [{"cd_conta": "1", "ds_conta": "X", "coluna": "Valor", "valor": 2}]}`), "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)

	page, err = ExtractPage(decode(t, `[{"cd_conta": "1", "ds_conta": "X", "coluna": "Valor", "valor": "3"}]`), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.InDelta(t, 3.0, page.Items[0].Value, 1e-9)
}

func TestExtractPageUnrecognizedObjectIsEmpty(t *testing.T) {
	page, err := ExtractPage(decode(t, `{"message": "nothing here"}`), "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestExtractPageScalarIsMalformed(t *testing.T) {
	_, err := ExtractPage(decode(t, `"oops"`), "")
	var malformed *fetcher.MalformedResponseError
	assert.True(t, errors.As(err, &malformed))
}

func TestResolveLink(t *testing.T) {
	assert.Equal(t, "https://other/next", resolveLink("https://other/next", "https://base/"))
	assert.Equal(t, "HTTP://other/next", resolveLink("HTTP://other/next", "https://base/"))
	assert.Equal(t, "https://base/a/rreo?page=2", resolveLink("rreo?page=2", "https://base/a/"))
	assert.Equal(t, "https://base/a/rreo", resolveLink("rreo", "https://base/a"))
	assert.Equal(t,
		"https://host/ords/siconfi/tt/rreo?offset=1000",
		resolveLink("/ords/siconfi/tt/rreo?offset=1000", "https://host/ords/siconfi/tt/"))
	assert.Equal(t, "https://host/ords/siconfi/rreo", resolveLink("../rreo", "https://host/ords/siconfi/tt/"))
}
