package models

import (
	"fmt"
	"strings"
)

// DocumentType is the label the user picks before starting an analysis.
type DocumentType string

const (
	DocumentContract DocumentType = "Contrato"
	DocumentPayslip  DocumentType = "Holerite"
	DocumentBalance  DocumentType = "Balanço/DRE"
	DocumentFiscal   DocumentType = "Fiscal (SEFA)"
	DocumentGeneral  DocumentType = "Geral"
)

var documentTypes = []DocumentType{
	DocumentContract,
	DocumentPayslip,
	DocumentBalance,
	DocumentFiscal,
	DocumentGeneral,
}

func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(documentTypes))
	copy(out, documentTypes)
	return out
}

// ParseDocumentType accepts the label case-insensitively; blank means General.
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DocumentGeneral, nil
	}
	for _, dt := range documentTypes {
		if strings.EqualFold(string(dt), s) {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// AnalysisInput is the content handed to the advisory client. Exactly one of
// Text (IsPlainText) or Data is meaningful.
type AnalysisInput struct {
	Text        string
	Data        []byte
	MIMEType    string
	FileName    string
	IsPlainText bool
}

func (in AnalysisInput) Empty() bool {
	if in.IsPlainText {
		return strings.TrimSpace(in.Text) == ""
	}
	return len(in.Data) == 0
}

type AnalyzeTextRequest struct {
	DocumentType string `json:"document_type"`
	Text         string `json:"text"`
}

type AnalysisResponse struct {
	DocumentType DocumentType `json:"document_type"`
	Analysis     string       `json:"analysis"`
	Fallback     bool         `json:"fallback"`
}

// AnalysisStateResponse reports the device's analysis phase and the latest
// completed result, if any.
type AnalysisStateResponse struct {
	Phase string            `json:"phase"`
	Last  *AnalysisResponse `json:"last,omitempty"`
}

type ExportRequest struct {
	DocumentType string `json:"document_type"`
	Analysis     string `json:"analysis"`
}

type ShareRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type SharePayload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}
