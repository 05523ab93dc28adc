// Package entitlement decides whether a principal may use premium features.
package entitlement

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
)

// Feature names a capability guarded by the gate.
type Feature string

const (
	RewriteGeneration Feature = "rewrite_generation"
	RewritePDFExport  Feature = "rewrite_pdf_export"
	RewriteEdit       Feature = "rewrite_edit"
)

// AllFeatures lists every guarded feature in a stable order.
var AllFeatures = []Feature{RewriteGeneration, RewritePDFExport, RewriteEdit}

// Lookup resolves a principal's verified email.
// An unknown principal returns an empty string and no error.
type Lookup interface {
	UserEmail(ctx context.Context, id uuid.UUID) (string, error)
}

// Gate grants every feature to principals whose email is on the allow-list.
type Gate struct {
	lookup  Lookup
	allowed map[string]struct{}
}

// NewGate builds a gate over the given emails. Matching is case-insensitive.
func NewGate(lookup Lookup, emails []string) *Gate {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = normalizeEmail(e)
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Gate{lookup: lookup, allowed: allowed}
}

// IsEntitled reports whether principalID may use feature. Lookup failures deny.
func (g *Gate) IsEntitled(ctx context.Context, principalID uuid.UUID, feature Feature) bool {
	if g == nil || g.lookup == nil || len(g.allowed) == 0 || principalID == uuid.Nil {
		return false
	}
	email, err := g.lookup.UserEmail(ctx, principalID)
	if err != nil {
		log.Printf("[entitlement] lookup failed for %s (%s): %v", principalID, feature, err)
		return false
	}
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	_, ok := g.allowed[email]
	return ok
}

// Entitlements reports every feature for principalID, keyed by feature name.
func (g *Gate) Entitlements(ctx context.Context, principalID uuid.UUID) map[string]bool {
	out := make(map[string]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		out[string(f)] = g.IsEntitled(ctx, principalID, f)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
