package rreo

type Annex struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var annexes = []Annex{
	{Code: "RREO-Anexo 01", Label: "Balanço Orçamentário"},
	{Code: "RREO-Anexo 02", Label: "Demonstrativo da Execução das Despesas por Função/Subfunção"},
	{Code: "RREO-Anexo 03", Label: "Demonstrativo da Receita Corrente Líquida"},
	{Code: "RREO-Anexo 04", Label: "Demonstrativo das Receitas e Despesas Previdenciárias do RPPS"},
	{Code: "RREO-Anexo 05", Label: "Demonstrativo das Despesas com Manutenção e Desenvolvimento do Ensino"},
	{Code: "RREO-Anexo 06", Label: "Demonstrativo do Resultado Primário e Nominal"},
	{Code: "RREO-Anexo 07", Label: "Demonstrativo dos Restos a Pagar por Poder e Órgão"},
}

// Annexes returns the known RREO annexes in report order.
func Annexes() []Annex {
	out := make([]Annex, len(annexes))
	copy(out, annexes)
	return out
}

// AnnexLabel returns the label of a known annex, the code itself otherwise,
// and "" for an empty code.
func AnnexLabel(code string) string {
	for _, a := range annexes {
		if a.Code == code {
			return a.Label
		}
	}
	return code
}
