package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

// Entry outcomes, also used as metric labels.
const (
	outcomeResolved   = "resolved"
	outcomeFallback   = "fallback"
	outcomeUnresolved = "unresolved"
	outcomeSkipped    = "skipped"
)

// entryGeocoder resolves a single catalog entry, retrying once with a
// simplified address. It never returns an error: failures leave the entry
// unresolved.
type entryGeocoder struct {
	geocoder   domain.Geocoder
	logger     *slog.Logger
	onFallback func(ctx context.Context, e domain.CatalogEntry, query string)
}

func (g *entryGeocoder) geocode(ctx context.Context, e domain.CatalogEntry) (domain.CatalogEntry, string) {
	if e.Resolved() {
		return e, outcomeResolved
	}
	address := strings.TrimSpace(e.Address)
	if address == "" {
		return e, outcomeSkipped
	}

	c, err := g.geocoder.Forward(ctx, address)
	if err == nil {
		return e.WithCoordinates(c), outcomeResolved
	}
	if ctx.Err() != nil {
		return e, outcomeUnresolved
	}

	simplified, ok := domain.SimplifyAddress(address)
	if !ok {
		g.logUnresolved(e, err)
		return e, outcomeUnresolved
	}

	if g.onFallback != nil {
		g.onFallback(ctx, e, simplified)
	}
	c, retryErr := g.geocoder.Forward(ctx, simplified)
	if retryErr != nil {
		g.logUnresolved(e, fmt.Errorf("%w (fallback: %w)", err, retryErr))
		return e, outcomeUnresolved
	}
	return e.WithCoordinates(c), outcomeFallback
}

func (g *entryGeocoder) logUnresolved(e domain.CatalogEntry, err error) {
	level := slog.LevelWarn
	if errors.Is(err, domain.ErrNotFound) {
		level = slog.LevelDebug
	}
	g.logger.Log(context.Background(), level, "entry left unresolved",
		"entry_id", e.ID,
		"address", e.Address,
		"outcome", domain.OutcomeOf(err),
		"error", err,
	)
}
