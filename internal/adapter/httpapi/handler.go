package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/query"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/spatial"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/validator"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PhotoSigner produces a downloadable URL for a stored media reference.
type PhotoSigner interface {
	SignedURL(ctx context.Context, rawURL string) (string, error)
}

// Handler serves the discovery endpoints. Every request is compiled
// statelessly; pagination is driven by the client through offset.
type Handler struct {
	repo      domain.ListingRepository
	planner   *query.Planner
	validator *validator.Validator
	signer    PhotoSigner
	mapOpts   spatial.Options
	logger    *zap.Logger
}

func NewHandler(repo domain.ListingRepository, planner *query.Planner, signer PhotoSigner, mapOpts spatial.Options, logger *zap.Logger) *Handler {
	return &Handler{
		repo:      repo,
		planner:   planner,
		validator: validator.New(),
		signer:    signer,
		mapOpts:   mapOpts,
		logger:    logger.Named("http_handler"),
	}
}

type searchResponse struct {
	Items        []domain.Listing `json:"items"`
	Offset       int              `json:"offset"`
	NextOffset   int              `json:"next_offset"`
	HasMore      bool             `json:"has_more"`
	SortFallback bool             `json:"sort_fallback"`
	Rejected     int              `json:"rejected"`
}

// SearchListings handles GET /api/discovery/listings.
func (h *Handler) SearchListings(w http.ResponseWriter, r *http.Request) {
	state, offset, ok := h.decodeFilter(w, r)
	if !ok {
		return
	}
	page := domain.Page{Offset: offset, Limit: domain.PageSize}
	items, desc, rejected, err := h.fetch(r.Context(), state, page)
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, errors.New("listing backend unavailable"))
		return
	}
	resp := searchResponse{
		Items:        items,
		Offset:       offset,
		NextOffset:   offset + domain.PageSize,
		HasMore:      len(items)+rejected == domain.PageSize,
		SortFallback: desc.SortFallback,
		Rejected:     rejected,
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFacetSchema handles GET /api/discovery/facets/{category}.
func (h *Handler) GetFacetSchema(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SchemaFor(category))
}

type markerView struct {
	spatial.Marker
	Label string `json:"label"`
}

type mapResponse struct {
	Active   bool              `json:"active"`
	Markers  []markerView      `json:"markers"`
	Clusters []spatial.Cluster `json:"clusters"`
	Viewport *spatial.Viewport `json:"viewport,omitempty"`
}

// MapListings handles GET /api/discovery/map. It returns markers, clusters and
// the fitted viewport for one page of results.
func (h *Handler) MapListings(w http.ResponseWriter, r *http.Request) {
	state, offset, ok := h.decodeFilter(w, r)
	if !ok {
		return
	}
	state.ViewMode = domain.ViewMap
	resp := mapResponse{Markers: []markerView{}, Clusters: []spatial.Cluster{}}
	if !spatial.ShouldRender(state) {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	items, _, _, err := h.fetch(r.Context(), state, domain.Page{Offset: offset, Limit: domain.PageSize})
	if err != nil {
		h.logger.Error("map fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, errors.New("listing backend unavailable"))
		return
	}

	renderer := spatial.NewRenderer(nil, h.mapOpts, h.logger)
	renderer.SetActive(true)
	renderer.Sync(items)
	vp := renderer.Viewport()

	resp.Active = true
	for _, m := range renderer.Markers() {
		resp.Markers = append(resp.Markers, markerView{Marker: m, Label: m.Label()})
	}
	if len(resp.Markers) > 0 {
		resp.Clusters = renderer.Clusters(vp.Zoom)
		resp.Viewport = &vp
	}
	writeJSON(w, http.StatusOK, resp)
}

type previewResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Category     domain.Category `json:"category"`
	Price        float64         `json:"price"`
	PriceLabel   string          `json:"price_label"`
	Address      string          `json:"address,omitempty"`
	MainPhotoURL string          `json:"main_photo_url,omitempty"`
}

// GetPreview handles GET /api/discovery/listings/{id}/preview, the card shown
// for a selected map marker.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("preview lookup failed", zap.String("listing_id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, errors.New("listing backend unavailable"))
		return
	}
	resp := previewResponse{
		ID:         l.ID,
		Title:      l.Title,
		Category:   l.Category,
		Price:      l.Price,
		PriceLabel: spatial.FormatPriceLabel(l.Price),
	}
	if l.Location != nil {
		resp.Address = l.Location.Address
	}
	if photo, ok := l.MainPhoto(); ok {
		resp.MainPhotoURL = photo.URL
		if h.signer != nil {
			signed, err := h.signer.SignedURL(r.Context(), photo.URL)
			if err != nil {
				h.logger.Warn("failed to sign main photo", zap.String("listing_id", l.ID), zap.Error(err))
			} else {
				resp.MainPhotoURL = signed
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decodeFilter(w http.ResponseWriter, r *http.Request) (domain.FilterState, int, bool) {
	req, err := parseSearchRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.FilterState{}, 0, false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.FilterState{}, 0, false
	}
	state, err := req.filterState()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.FilterState{}, 0, false
	}
	return state, req.Offset, true
}

// fetch plans and runs one page. Generation 0 keeps the planner from caching
// recommendations across requests.
func (h *Handler) fetch(ctx context.Context, state domain.FilterState, page domain.Page) ([]domain.Listing, domain.QueryDescriptor, int, error) {
	desc := h.planner.Plan(ctx, state, 0, page, auth.UserIDFromContext(ctx))
	if desc.Empty {
		return []domain.Listing{}, desc, 0, nil
	}
	raw, err := h.repo.Query(ctx, desc)
	if err != nil {
		return nil, desc, 0, err
	}
	admitted, rejections := query.Admit(raw)
	for _, rj := range rejections {
		h.logger.Warn("dropping listing from results", zap.String("listing_id", rj.ListingID), zap.Error(rj.Err))
	}
	return admitted, desc, len(rejections), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
