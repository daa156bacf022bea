package template_test

import (
	"strings"
	"testing"
	"time"

	"github.com/slugzin/leadflow-backend/internal/model"
	"github.com/slugzin/leadflow-backend/internal/template"
)

func sampleRecipient() model.Recipient {
	return model.Recipient{
		ID:          "rec-1",
		CompanyName: "Padaria Estrela",
		Category:    "Padaria",
		Website:     "www.estrela.com.br",
		Rating:      "4.2",
		ReviewCount: 58,
		Address:     "Av. Paulista, 900, Bela Vista, São Paulo - SP",
		Phone:       "+5511912340002",
		SearchTerm:  "padarias em são paulo",
		Status:      "novo",
		CapturedAt:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRenderReplacesTokens(t *testing.T) {
	got := template.Render("Olá {empresa_nome}, vi sua {categoria} em {cidade}!", sampleRecipient())
	want := "Olá Padaria Estrela, vi sua Padaria em São Paulo!"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderMissingFieldsAreEmpty(t *testing.T) {
	got := template.Render("Site: {website}.", model.Recipient{CompanyName: "Loja X"})
	if got != "Site: ." {
		t.Errorf("expected empty substitution, got %q", got)
	}
}

func TestRenderUnknownTokenUntouched(t *testing.T) {
	got := template.Render("Oi {empresa_nome}, {nao_existe}!", sampleRecipient())
	if !strings.Contains(got, "{nao_existe}") {
		t.Errorf("unknown token should pass through, got %q", got)
	}
}

func TestRenderNeverLeavesKnownTokens(t *testing.T) {
	rec := sampleRecipient()
	tmpl := "{empresa_nome} {categoria} {website} {avaliacao} {total_avaliacoes} {endereco} {cidade} {telefone} {pesquisa} {status} {data_captura}"
	got := template.Render(tmpl, rec)
	for _, token := range template.Tokens() {
		if strings.Contains(got, "{"+token+"}") {
			t.Errorf("token %q survived rendering: %q", token, got)
		}
	}
}

func TestDetectOrdersByAppearance(t *testing.T) {
	got := template.Detect("{cidade} primeiro, depois {empresa_nome}, e {cidade} de novo")
	if len(got) != 2 {
		t.Fatalf("expected 2 tokens, got %v", got)
	}
	if got[0] != "cidade" || got[1] != "empresa_nome" {
		t.Errorf("expected [cidade empresa_nome], got %v", got)
	}
}

func TestDetectIgnoresUnknown(t *testing.T) {
	got := template.Detect("nada aqui {invalido}")
	if len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestPreviewUsesExampleRecord(t *testing.T) {
	got := template.Preview("Oi {empresa_nome}")
	if strings.Contains(got, "{empresa_nome}") || got == "Oi " {
		t.Errorf("preview should substitute a sample value, got %q", got)
	}
}

func TestDeriveCity(t *testing.T) {
	cases := []struct {
		address string
		want    string
	}{
		{"Rua das Flores, 123, Centro, São Paulo - SP", "São Paulo"},
		{"Av. Brasil, 1, Rio de Janeiro", "Rio de Janeiro"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := template.DeriveCity(tc.address); got != tc.want {
			t.Errorf("DeriveCity(%q) = %q, want %q", tc.address, got, tc.want)
		}
	}
}
