// Package template renders message templates against captured leads.
// Placeholders use the {token} form the operator UI exposes; unknown
// tokens are left untouched so operators see their typo instead of a
// silently mangled message.
package template

import (
	"strconv"
	"strings"
	"time"

	"github.com/slugzin/leadflow-backend/internal/model"
)

// Tokens in the order the UI lists them.
var tokens = []string{
	"empresa_nome",
	"categoria",
	"website",
	"avaliacao",
	"total_avaliacoes",
	"endereco",
	"cidade",
	"telefone",
	"pesquisa",
	"status",
	"data_captura",
}

// Tokens returns the full placeholder set, in display order.
func Tokens() []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}

func fields(r model.Recipient) map[string]string {
	reviews := ""
	if r.ReviewCount > 0 {
		reviews = strconv.Itoa(r.ReviewCount)
	}
	captured := ""
	if !r.CapturedAt.IsZero() {
		captured = r.CapturedAt.Format("02/01/2006")
	}
	return map[string]string{
		"empresa_nome":     r.CompanyName,
		"categoria":        r.Category,
		"website":          r.Website,
		"avaliacao":        r.Rating,
		"total_avaliacoes": reviews,
		"endereco":         r.Address,
		"cidade":           DeriveCity(r.Address),
		"telefone":         r.Phone,
		"pesquisa":         r.SearchTerm,
		"status":           r.Status,
		"data_captura":     captured,
	}
}

// Render replaces every known placeholder with the recipient's field
// value. Missing fields render as empty strings; it never errors.
func Render(template string, r model.Recipient) string {
	result := template
	values := fields(r)
	for _, token := range tokens {
		result = strings.ReplaceAll(result, "{"+token+"}", values[token])
	}
	return result
}

// Detect lists the known placeholders present in the template, in order
// of first appearance. Unknown {braced} text is not reported.
func Detect(template string) []string {
	type hit struct {
		token string
		pos   int
	}
	hits := []hit{}
	for _, token := range tokens {
		if pos := strings.Index(template, "{"+token+"}"); pos >= 0 {
			hits = append(hits, hit{token: token, pos: pos})
		}
	}
	// insertion sort by position; the token set is small
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	found := make([]string, len(hits))
	for i, h := range hits {
		found[i] = h.token
	}
	return found
}

var exampleRecipient = model.Recipient{
	CompanyName: "Padaria Pão Dourado",
	Category:    "Padaria",
	Website:     "www.paodourado.com.br",
	Rating:      "4.8",
	ReviewCount: 127,
	Address:     "Rua das Flores, 123, Centro, São Paulo - SP",
	Phone:       "+55 11 91234-5678",
	SearchTerm:  "padarias em são paulo",
	Status:      "novo",
	CapturedAt:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
}

// Preview renders the template against a fixed example lead, for display
// before any recipient is chosen.
func Preview(template string) string {
	return Render(template, exampleRecipient)
}

// DeriveCity extracts the city from a captured address. Addresses arrive
// as "street, number, district, City - ST"; the city is the last
// comma-separated segment with any trailing state marker removed.
func DeriveCity(address string) string {
	if strings.TrimSpace(address) == "" {
		return ""
	}
	parts := strings.Split(address, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if idx := strings.LastIndex(last, " - "); idx >= 0 {
		last = strings.TrimSpace(last[:idx])
	}
	return last
}
