package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/entitlement"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/types"
)

const (
	// multipartOverhead is allowed on top of the file cap for boundaries and text fields.
	multipartOverhead = 1 << 20

	// multipartMemory is kept in memory before parts spill to temp files.
	multipartMemory = 8 << 20

	maxMarkdownBytes = 1 << 20
)

// handleCreateAnalysis accepts a multipart upload (file, jobTitle, jobDescription)
// and runs the synchronous pipeline.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(w, http.StatusBadRequest, s.sizeLimitMessage())
			return
		}
		errorResponse(w, http.StatusBadRequest, pipeline.MsgMissingFields)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, pipeline.MsgMissingFields)
		return
	}
	defer file.Close()
	if header.Size > s.maxUploadBytes {
		errorResponse(w, http.StatusBadRequest, s.sizeLimitMessage())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[server] reading upload: %v", err)
		errorResponse(w, http.StatusBadRequest, pipeline.MsgMissingFields)
		return
	}

	resp, err := s.analyzer.Submit(r.Context(), pipeline.Submission{
		OwnerID:        ownerID,
		FileName:       header.Filename,
		MIMEType:       partMediaType(header.Header.Get("Content-Type")),
		Data:           data,
		JobTitle:       r.FormValue("jobTitle"),
		JobDescription: r.FormValue("jobDescription"),
	})
	if err != nil {
		s.writeError(w, r, err, MsgAnalysisFailed)
		return
	}

	jsonResponse(w, http.StatusCreated, resp)
}

// partMediaType returns the bare media type of a part header, or "" if unparseable.
func partMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

func (s *Server) sizeLimitMessage() string {
	return fmt.Sprintf("File exceeds the %dMB limit", s.maxUploadBytes/(1024*1024))
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.records.ListByOwner(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	views := make([]types.AnalysisView, 0, len(records))
	for i := range records {
		views = append(views, toView(&records[i]))
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"analyses": views,
		"count":    len(views),
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, toView(rec))
}

// handleDeleteAnalysis removes the record, then its stored upload. A failed
// blob delete is logged and does not fail the request.
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadOwned(w, r)
	if !ok {
		return
	}

	if err := s.records.Delete(r.Context(), rec.ID, rec.OwnerID); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if err := s.blobs.Delete(r.Context(), rec.SourceFile.StorageLocator); err != nil {
		log.Printf("[server] blob delete failed for analysis %s: %v", rec.ID, err)
	}

	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleUpdateRewriteMarkdown replaces the rewritten resume with an explicit edit.
func (s *Server) handleUpdateRewriteMarkdown(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireFeature(w, r, entitlement.RewriteEdit)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req types.UpdateMarkdownRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMarkdownBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Markdown = strings.TrimSpace(req.Markdown)
	if err := s.validate.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, "markdown is required")
		return
	}

	updated, err := s.records.UpdateRewriteMarkdown(r.Context(), id, ownerID, req.Markdown)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	jsonResponse(w, http.StatusOK, toView(updated))
}

// handleAnalysisPDF renders the rewritten resume as a downloadable PDF.
func (s *Server) handleAnalysisPDF(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireFeature(w, r, entitlement.RewritePDFExport)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	rec, err := s.records.FindByIDForOwner(r.Context(), id, ownerID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if !rec.Analysis.HasRewrite() {
		errorResponse(w, http.StatusNotFound, MsgNoRewrite)
		return
	}

	pdf, err := s.renderer.RenderMarkdownToPDF(r.Context(), *rec.Analysis.RewrittenResumeMarkdown, s.style)
	if err != nil {
		s.writeError(w, r, err, MsgPDFFailed)
		return
	}

	name := rendering.DownloadFilename(rec.Analysis.ContactInfo.Name, rec.JobTitle, rec.ID)
	writePDF(w, pdf, "attachment", name)
}

// toView projects a record for the API, replacing the storage locator with its blob URL.
func toView(rec *types.ResumeAnalysis) types.AnalysisView {
	rec.Analysis.Normalize()
	return types.AnalysisView{
		ResumeAnalysis: *rec,
		BlobURL:        blobURL(rec.SourceFile.StorageLocator),
	}
}

func blobURL(locator string) string {
	if locator == "" {
		return ""
	}
	return "/resume-blobs/" + locator
}

func writePDF(w http.ResponseWriter, pdf []byte, disposition, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		log.Printf("[server] writing pdf: %v", err)
	}
}

// requireUser returns the authenticated user, writing a 401 when absent.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

// requireFeature is requireUser plus an entitlement check, writing a 403 when denied.
func (s *Server) requireFeature(w http.ResponseWriter, r *http.Request, feature entitlement.Feature) (uuid.UUID, bool) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if !s.gate.IsEntitled(r.Context(), userID, feature) {
		s.writeError(w, r, &analysis.ForbiddenError{Feature: string(feature)}, "")
		return uuid.Nil, false
	}
	return userID, true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid analysis ID")
		return uuid.Nil, false
	}
	return id, true
}

// loadOwned resolves the {id} path value to a record owned by the requester.
func (s *Server) loadOwned(w http.ResponseWriter, r *http.Request) (*types.ResumeAnalysis, bool) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return nil, false
	}
	rec, err := s.records.FindByIDForOwner(r.Context(), id, ownerID)
	if err != nil {
		s.writeError(w, r, err, "")
		return nil, false
	}
	return rec, true
}
