// Package export renders document analyses for download and builds share
// payloads.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"lexconsul-backend/internal/models"
)

const (
	ReportTitle = "Relatório LexConsul"
	margin      = 20.0
)

// Report is one analysis ready to render.
type Report struct {
	DocumentType models.DocumentType
	Analysis     string
	GeneratedAt  time.Time
}

func (r Report) metadataLine() string {
	return fmt.Sprintf("Análise: %s | Data: %s", r.DocumentType, r.GeneratedAt.Format("02/01/2006"))
}

// WritePDF renders the report as an A4 document: bold title, metadata line,
// a rule, then the word-wrapped analysis body.
func WritePDF(w io.Writer, r Report) error {
	if strings.TrimSpace(r.Analysis) == "" {
		return fmt.Errorf("nothing to export")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()

	// Core fonts are cp1252; accented Portuguese needs translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(30, 64, 175)
	pdf.Text(margin, 30, tr(ReportTitle))

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 116, 139)
	pdf.Text(margin, 38, tr(r.metadataLine()))

	pdf.SetDrawColor(226, 232, 240)
	pdf.Line(margin, 45, pageWidth-margin, 45)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(30, 41, 59)
	pdf.SetXY(margin, 55)
	pdf.MultiCell(pageWidth-2*margin, 5.5, tr(r.Analysis), "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// RenderPDF is WritePDF into memory.
func RenderPDF(r Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var filenameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// Filename is LexConsul_Analise_<type>_<unix ms>.pdf with separators in the
// type replaced by underscores.
func Filename(docType models.DocumentType, now time.Time) string {
	return fmt.Sprintf("LexConsul_Analise_%s_%d.pdf", filenameReplacer.Replace(string(docType)), now.UnixMilli())
}
