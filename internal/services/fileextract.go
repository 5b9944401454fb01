package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"lexconsul-backend/internal/models"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeTXT  = "text/plain"
)

var allowedUploadTypes = map[string]string{
	".pdf":  mimePDF,
	".docx": mimeDOCX,
	".txt":  mimeTXT,
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// FileExtractService turns uploads into analysable content. Text formats are
// flattened to plain text; PDFs and images are sent as binary unless a PDF is
// too large to inline, in which case its text layer is used.
type FileExtractService struct {
	maxBytes    int64
	inlineLimit int
}

func NewFileExtractService(maxUploadMB int) *FileExtractService {
	return &FileExtractService{
		maxBytes:    int64(maxUploadMB) << 20,
		inlineLimit: maxInlineBytes,
	}
}

func (s *FileExtractService) MaxBytes() int64 { return s.maxBytes }

// Prepare validates an upload and returns the content to analyse.
func (s *FileExtractService) Prepare(fileName string, data []byte) (models.AnalysisInput, error) {
	if len(data) == 0 {
		return models.AnalysisInput{}, &ValidationError{Fields: map[string]string{"file": "File is empty"}}
	}
	if int64(len(data)) > s.maxBytes {
		return models.AnalysisInput{}, &ValidationError{Fields: map[string]string{
			"file": fmt.Sprintf("File exceeds %d MB", s.maxBytes>>20),
		}}
	}

	mimeType, err := detectUploadType(fileName, data)
	if err != nil {
		return models.AnalysisInput{}, &ValidationError{Fields: map[string]string{"file": err.Error()}}
	}

	in := models.AnalysisInput{FileName: fileName, MIMEType: mimeType}
	switch mimeType {
	case mimeTXT:
		text, err := s.extractTXT(data)
		if err != nil {
			return models.AnalysisInput{}, &ValidationError{Fields: map[string]string{"file": err.Error()}}
		}
		in.Text, in.IsPlainText = text, true
	case mimeDOCX:
		text, err := s.extractDOCX(data)
		if err != nil {
			return models.AnalysisInput{}, &ValidationError{Fields: map[string]string{"file": err.Error()}}
		}
		in.Text, in.IsPlainText = text, true
	case mimePDF:
		if len(data) > s.inlineLimit {
			text, err := s.extractPDF(data)
			if err == nil {
				in.Text, in.IsPlainText = text, true
				return in, nil
			}
			log.Printf("fileextract: %s has no usable text layer, sending binary: %v", fileName, err)
		}
		in.Data = data
	default:
		in.Data = data
	}
	return in, nil
}

func detectUploadType(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	declared, ok := allowedUploadTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}

	sniffed := http.DetectContentType(data)
	switch declared {
	case mimeTXT:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text file is not valid UTF-8")
		}
	case mimeDOCX:
		if sniffed != "application/zip" {
			return "", fmt.Errorf("file content does not match %s", ext)
		}
	default:
		if !strings.HasPrefix(sniffed, declared) {
			return "", fmt.Errorf("file content does not match %s", ext)
		}
	}
	return declared, nil
}

func (s *FileExtractService) extractTXT(data []byte) (string, error) {
	text := normalizeExtractedText(string(data))
	if text == "" {
		return "", fmt.Errorf("text file is empty")
	}
	return text, nil
}

func (s *FileExtractService) extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}

	return text, nil
}

func (s *FileExtractService) extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		break
	}

	if len(documentXML) == 0 {
		return "", fmt.Errorf("docx document.xml not found")
	}

	text := normalizeExtractedText(stripDOCXML(documentXML))
	if text == "" {
		return "", fmt.Errorf("no extractable text found in docx")
	}

	return text, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// DOCX paragraphs and line breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

// normalizeExtractedText trims lines and collapses runs of blank lines.
func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var buf strings.Builder
	emptyCount := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
