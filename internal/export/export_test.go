package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lexconsul-backend/internal/models"
)

func TestFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := []struct {
		docType models.DocumentType
		want    string
	}{
		{models.DocumentContract, "LexConsul_Analise_Contrato_1700000000123.pdf"},
		{models.DocumentBalance, "LexConsul_Analise_Balanço_DRE_1700000000123.pdf"},
		{models.DocumentFiscal, "LexConsul_Analise_Fiscal_(SEFA)_1700000000123.pdf"},
	}

	for _, tc := range tests {
		t.Run(string(tc.docType), func(t *testing.T) {
			if got := Filename(tc.docType, now); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMetadataLine(t *testing.T) {
	r := Report{
		DocumentType: models.DocumentPayslip,
		GeneratedAt:  time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC),
	}
	if got, want := r.metadataLine(), "Análise: Holerite | Data: 07/03/2026"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRenderPDF(t *testing.T) {
	body := strings.Repeat("Cláusula de rescisão com multa compensatória. ", 400)
	out, err := RenderPDF(Report{
		DocumentType: models.DocumentContract,
		Analysis:     body,
		GeneratedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
}

func TestRenderPDF_EmptyAnalysis(t *testing.T) {
	if _, err := RenderPDF(Report{DocumentType: models.DocumentGeneral, Analysis: "  "}); err == nil {
		t.Fatalf("expected error for empty analysis")
	}
}

func TestSharePayload(t *testing.T) {
	p, ok := SharePayload("", " Resposta ", "")
	if !ok || p.Title != defaultShareTitle || p.Text != "Resposta" {
		t.Fatalf("unexpected payload %+v (%v)", p, ok)
	}
	if _, ok := SharePayload("x", "", ""); ok {
		t.Fatalf("expected empty text to be rejected")
	}
}
