package server

import (
	"net/http"

	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// handleGetMe returns the authenticated account and its feature entitlements.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := s.userService.Profile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	jsonResponse(w, http.StatusOK, types.MeResponse{
		User:         user,
		Entitlements: s.gate.Entitlements(r.Context(), userID),
	})
}
