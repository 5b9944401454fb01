package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"lexconsul-backend/internal/export"
	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/services"
	"lexconsul-backend/internal/session"
)

type AnalysisHandler struct {
	registry    *session.Registry
	fileExtract *services.FileExtractService
	now         func() time.Time
}

func NewAnalysisHandler(registry *session.Registry, fileExtract *services.FileExtractService) *AnalysisHandler {
	return &AnalysisHandler{registry: registry, fileExtract: fileExtract, now: time.Now}
}

// Analyze accepts pasted text as JSON or a document as multipart "file", with
// document_type in either body.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var (
		in         models.AnalysisInput
		docTypeRaw string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var ok bool
		in, docTypeRaw, ok = h.readUpload(w, r)
		if !ok {
			return
		}
	} else {
		var req models.AnalyzeTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
		in = models.AnalysisInput{Text: strings.TrimSpace(req.Text), MIMEType: "text/plain", IsPlainText: true}
		docTypeRaw = req.DocumentType
	}

	docType, err := models.ParseDocumentType(docTypeRaw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid document type",
			map[string]string{"document_type": err.Error()}, r))
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	result, err := h.registry.Analysis(deviceID).Start(context.WithoutCancel(r.Context()), in, docType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AnalysisResponse{
		DocumentType: result.DocumentType,
		Analysis:     result.Text,
		Fallback:     result.Fallback,
	})
}

func (h *AnalysisHandler) readUpload(w http.ResponseWriter, r *http.Request) (models.AnalysisInput, string, bool) {
	// Allow for multipart framing on top of the file itself.
	limit := h.fileExtract.MaxBytes() + 1<<20
	if r.ContentLength > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds the upload limit", r))
		return models.AnalysisInput{}, "", false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds the upload limit", r))
		} else {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart body", r))
		}
		return models.AnalysisInput{}, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return models.AnalysisInput{}, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return models.AnalysisInput{}, "", false
	}

	in, err := h.fileExtract.Prepare(header.Filename, data)
	if err != nil {
		handleServiceError(w, r, err)
		return models.AnalysisInput{}, "", false
	}
	return in, r.FormValue("document_type"), true
}

func (h *AnalysisHandler) state(a *session.AnalysisSurface) models.AnalysisStateResponse {
	resp := models.AnalysisStateResponse{Phase: string(a.Phase())}
	if last, ok := a.Last(); ok {
		resp.Last = &models.AnalysisResponse{
			DocumentType: last.DocumentType,
			Analysis:     last.Text,
			Fallback:     last.Fallback,
		}
	}
	return resp
}

// State lets a client that dropped its POST see whether the analysis is still
// running and pick up the result.
func (h *AnalysisHandler) State(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	writeJSON(w, http.StatusOK, h.state(h.registry.Analysis(deviceID)))
}

// Cancel aborts the in-flight analysis. The pending POST still answers, with
// the failure text as its result.
func (h *AnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	a := h.registry.Analysis(deviceID)
	a.Cancel()
	writeJSON(w, http.StatusOK, h.state(a))
}

// Export renders the given analysis, or the device's latest one, as a PDF.
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	report := export.Report{Analysis: req.Analysis, GeneratedAt: h.now()}
	if strings.TrimSpace(req.Analysis) != "" {
		docType, err := models.ParseDocumentType(req.DocumentType)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid document type",
				map[string]string{"document_type": err.Error()}, r))
			return
		}
		report.DocumentType = docType
	} else {
		deviceID := middleware.GetDeviceID(r.Context())
		last, ok := h.registry.Analysis(deviceID).Last()
		if !ok {
			handleServiceError(w, r, &services.NotFoundError{Message: "No analysis to export"})
			return
		}
		report.DocumentType, report.Analysis = last.DocumentType, last.Text
	}

	pdf, err := export.RenderPDF(report)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("EXPORT_FAILED", "Failed to export PDF", r))
		return
	}

	filename := export.Filename(report.DocumentType, report.GeneratedAt)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *AnalysisHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req models.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	payload, ok := export.SharePayload(req.Title, req.Text, "")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Nothing to share",
			map[string]string{"text": "Text is required"}, r))
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
