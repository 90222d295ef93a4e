package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/geo"
	"github.com/couchcryptid/mart-locator/internal/proximity"
	"github.com/couchcryptid/mart-locator/internal/resolver"
)

// EntryLister lists the live catalog.
type EntryLister interface {
	Entries() []domain.CatalogEntry
}

// EntryResolver resolves live catalog entries on demand.
type EntryResolver interface {
	ResolveByID(ctx context.Context, id int) (domain.CatalogEntry, error)
	ResolveNearby(ctx context.Context, entries []domain.CatalogEntry, limit int) (int, error)
	SearchArea(ctx context.Context, center domain.Coordinate) (resolver.AreaResult, error)
	SetCoordinates(id int, c domain.Coordinate) error
}

// EntryOptions tunes the /entries routes. Zero values use the package
// defaults of proximity and resolver.
type EntryOptions struct {
	LocateTimeout  time.Duration
	NearbyRadiusKm float64
	NearbyLimit    int
}

const defaultNearestLimit = 10

type entryRoutes struct {
	list    EntryLister
	resolve EntryResolver
	opts    EntryOptions
	server  *Server
}

// HandleEntries adds the catalog query and resolution routes:
//
//	GET  /entries/nearest?origin=lat,lng&limit=n&resolve=true
//	POST /entries/search-area?origin=lat,lng
//	POST /entries/{id}/resolve
//	PUT  /entries/{id}/coordinates
func (s *Server) HandleEntries(list EntryLister, resolve EntryResolver, opts EntryOptions) {
	if opts.NearbyLimit <= 0 {
		opts.NearbyLimit = resolver.DefaultNearbyLimit
	}
	r := &entryRoutes{list: list, resolve: resolve, opts: opts, server: s}
	s.mux.HandleFunc("GET /entries/nearest", r.handleNearest)
	s.mux.HandleFunc("POST /entries/search-area", r.handleSearchArea)
	s.mux.HandleFunc("POST /entries/{id}/resolve", r.handleResolve)
	s.mux.HandleFunc("PUT /entries/{id}/coordinates", r.handleSetCoordinates)
}

type rankedEntry struct {
	Entry      domain.CatalogEntry `json:"entry"`
	DistanceKm *float64            `json:"distance_km"`
	Nearby     bool                `json:"nearby"`
}

type nearestResponse struct {
	Origin   *domain.Coordinate `json:"origin"`
	Resolved int                `json:"resolved"`
	Results  []rankedEntry      `json:"results"`
}

func (rt *entryRoutes) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var loc proximity.Locator
	if s := q.Get("origin"); s != "" {
		c, err := geo.ParseCoordinate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		loc = proximity.StaticLocator(c)
	}
	limit := defaultNearestLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	ctx := r.Context()
	resp := nearestResponse{Results: []rankedEntry{}}
	origin, hasOrigin := proximity.LocateOrigin(ctx, loc, rt.opts.LocateTimeout, rt.server.logger)
	if hasOrigin {
		resp.Origin = &origin
	}

	if resolveGaps, _ := strconv.ParseBool(q.Get("resolve")); resolveGaps {
		var gaps []domain.CatalogEntry
		for _, e := range rt.list.Entries() {
			if !e.Resolved() {
				gaps = append(gaps, e)
			}
		}
		n, err := rt.resolve.ResolveNearby(ctx, gaps, rt.opts.NearbyLimit)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		resp.Resolved = n
	}

	ranked := proximity.RankFrom(ctx, rt.list.Entries(), loc, rt.opts.LocateTimeout, rt.server.logger)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for _, e := range ranked {
		item := rankedEntry{Entry: e}
		if hasOrigin && e.Coordinates != nil {
			d := geo.DistanceKm(origin, *e.Coordinates)
			item.DistanceKm = &d
			item.Nearby = proximity.IsNearby(origin, *e.Coordinates, rt.opts.NearbyRadiusKm)
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *entryRoutes) handleSearchArea(w http.ResponseWriter, r *http.Request) {
	center, err := geo.ParseCoordinate(r.URL.Query().Get("origin"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	area, err := rt.resolve.SearchArea(r.Context(), center)
	switch {
	case errors.Is(err, domain.ErrNoNearbyEntries):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   err.Error(),
			"address": area.Address,
			"keyword": area.Keyword,
		})
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":  area.Address,
		"keyword":  area.Keyword,
		"matches":  area.Matches,
		"resolved": area.Resolved,
	})
}

func (rt *entryRoutes) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	entry, err := rt.resolve.ResolveByID(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrUnknownEntry):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, domain.ErrUnresolvable):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (rt *entryRoutes) handleSetCoordinates(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var c domain.Coordinate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := rt.resolve.SetCoordinates(id, c)
	switch {
	case errors.Is(err, domain.ErrUnknownEntry):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rt.server.logger.Info("entry coordinates corrected", "entry_id", id, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "lat": c.Lat, "lng": c.Lng})
}

func entryID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("entry id must be an integer"))
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
