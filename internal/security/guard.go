// Package security rejects gallery and photo identifiers that do not belong
// to the active session before any request is built.
package security

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/proofsheet/tablo/internal/domain"
)

// Guard validates identifiers against the session context
type Guard struct {
	session domain.SessionContext
	logger  *slog.Logger
}

// NewGuard creates a guard bound to session
func NewGuard(session domain.SessionContext, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{session: session, logger: logger}
}

// ValidateGalleryAccess fails unless galleryID is the session's gallery
func (g *Guard) ValidateGalleryAccess(galleryID int) error {
	authorized := 0
	if g.session != nil {
		authorized = g.session.GalleryID()
	}
	if authorized <= 0 {
		g.logger.Warn("gallery access without session", "galleryId", galleryID)
		return domain.ErrNoSession
	}
	if galleryID != authorized {
		g.logger.Warn("gallery access rejected",
			"galleryId", galleryID,
			"authorizedGalleryId", authorized)
		return fmt.Errorf("%w: %d", domain.ErrGalleryMismatch, galleryID)
	}
	return nil
}

// SanitizePhotoIDs drops non-positive, out of range and duplicate ids,
// keeping first occurrences in order.
func (g *Guard) SanitizePhotoIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	dropped := 0
	for _, id := range ids {
		if !IsValidPhotoID(id) {
			dropped++
			continue
		}
		if _, dup := seen[id]; dup {
			dropped++
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if dropped > 0 {
		g.logger.Debug("dropped invalid photo ids", "dropped", dropped, "kept", len(out))
	}
	return out
}

// IsValidPhotoID reports whether id can identify a backend photo
func IsValidPhotoID(id int) bool {
	return id > 0 && id <= math.MaxInt32
}
