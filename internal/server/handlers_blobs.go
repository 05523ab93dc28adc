package server

import (
	"net/http"

	"github.com/jonathan/resume-analyzer/internal/storage"
)

// handleGetBlob streams an uploaded resume inline. The locator must be valid
// and belong to one of the requester's analyses.
func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	locator := r.PathValue("locator")
	if err := storage.ValidateLocator(locator); err != nil {
		s.writeError(w, r, err, "")
		return
	}

	rec, err := s.records.FindByLocatorForOwner(r.Context(), locator, ownerID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	data, err := s.blobs.Get(r.Context(), locator)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	name := rec.SourceFile.OriginalFileName
	if name == "" {
		name = locator
	}
	w.Header().Set("Cache-Control", "private, no-store")
	writePDF(w, data, "inline", name)
}
