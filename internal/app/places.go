package app

import (
	"context"
	"fmt"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// StaticPlaces resolves businesses to provider place IDs from configuration.
// Business records live in a separate system; this service only needs the
// mapping.
type StaticPlaces map[string]string

var _ domain.PlaceResolver = StaticPlaces{}

func (m StaticPlaces) PlaceID(ctx context.Context, businessID string) (string, error) {
	id, ok := m[businessID]
	if !ok {
		return "", fmt.Errorf("business %s: %w", businessID, domain.ErrNotFound)
	}
	return id, nil
}
