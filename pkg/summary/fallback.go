package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Fallback builds a deterministic narrative from the metrics alone.
type Fallback struct{}

// Name implements Summarizer.
func (Fallback) Name() string { return "fallback" }

// Summarize implements Summarizer.
func (Fallback) Summarize(_ context.Context, c Context) string {
	sums := c.sums()
	highlights := "Sem colunas numéricas."
	if len(sums) > 0 {
		parts := make([]string, len(sums))
		for i, s := range sums {
			parts[i] = fmt.Sprintf("%s soma=%.2f", s.Column, s.Sum)
		}
		highlights = strings.Join(parts, ", ")
	}

	var sb strings.Builder
	sb.WriteString("Resumo automático (fallback):\n")
	sb.WriteString("- Linhas processadas: " + strconv.Itoa(c.RowCount) + "\n")
	sb.WriteString("- Colunas: " + strings.Join(c.Columns, ", ") + "\n")
	sb.WriteString("- Destaques: " + highlights + "\n")
	sb.WriteString("- Recomenda-se revisar outliers e sazonalidade.\n")
	sb.WriteString("- Próximos passos: acompanhar KPIs semanalmente e validar qualidade dos dados.")
	return sb.String()
}
