package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	natsAdapter "github.com/Abdurahmanit/GroupProject/discovery-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/app"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/filter"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/query"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/spatial"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/usecase"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/auth"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/platform/metrics"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type facetFlags map[string]string

func (f facetFlags) String() string { return fmt.Sprint(map[string]string(f)) }

func (f facetFlags) Set(v string) error {
	name, value, ok := strings.Cut(v, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", v)
	}
	f[name] = value
	return nil
}

type options struct {
	configPath string
	token      string
	category   string
	search     string
	sort       string
	view       string
	priceMin   float64
	priceMax   float64
	pages      int
	seed       string
	facets     facetFlags
}

func main() {
	opts := options{facets: facetFlags{}}
	flag.StringVar(&opts.configPath, "config", "", "path to a config file or directory")
	flag.StringVar(&opts.token, "token", "", "bearer token of the signed-in user")
	flag.StringVar(&opts.category, "category", "all", "category to browse")
	flag.StringVar(&opts.search, "q", "", "search text")
	flag.StringVar(&opts.sort, "sort", string(domain.SortNewest), "newest, mostViewed or recommended")
	flag.StringVar(&opts.view, "view", string(domain.ViewList), "list or map")
	flag.Float64Var(&opts.priceMin, "price-min", 0, "minimum price")
	flag.Float64Var(&opts.priceMax, "price-max", domain.DefaultPriceCeiling, "maximum price")
	flag.IntVar(&opts.pages, "pages", 1, "number of pages to load")
	flag.StringVar(&opts.seed, "seed", "", "JSON file of listings to store before searching")
	flag.Var(opts.facets, "facet", "facet filter as name=value (repeatable)")
	flag.Parse()

	_ = godotenv.Load()
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "discover: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	appLogger := logger.NewLogger(cfg.Log).Named("discover")
	defer func() { _ = appLogger.Sync() }()

	ctx := context.Background()
	metricsManager := metrics.NewMetricsManager("discovery")
	backend, err := app.OpenBackend(ctx, cfg, metricsManager, appLogger.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	if opts.seed != "" {
		n, err := seed(ctx, backend.Writer, opts.seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "seeded %d listings\n", n)
	}

	session, err := auth.NewSession(auth.NewTokenVerifier(cfg.Auth.JWTSecret), opts.token)
	if err != nil {
		return err
	}

	patch, err := opts.patch()
	if err != nil {
		return err
	}
	store := filter.NewStore(appLogger.Logger)
	store.Set(patch)

	deps := usecase.Dependencies{
		Store:      store,
		Repository: backend.Listings,
		Planner: query.NewPlanner(backend.Recommender, metricsManager, appLogger.Logger,
			query.WithLookupTimeout(cfg.Discovery.RecommendTimeout)),
		Renderer: spatial.NewRenderer(&printSurface{out: out}, spatial.Options{
			MaxZoom:       cfg.Discovery.MaxZoom,
			WidthPx:       cfg.Discovery.ViewportWidthPx,
			HeightPx:      cfg.Discovery.ViewportHeightPx,
			ClusterCellPx: cfg.Discovery.ClusterCellPx,
		}, appLogger.Logger),
		Session: session,
		Metrics: metricsManager,
	}
	if cfg.NATS.Enabled {
		publisher, err := natsAdapter.NewNATSPublisher(&cfg.NATS, appLogger.Logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	controller := usecase.NewController(deps, usecase.Config{FetchTimeout: cfg.Discovery.FetchTimeout}, appLogger.Logger)
	defer controller.Close()
	appLogger.Debug("session started",
		zap.String("backend", cfg.Backend),
		zap.Bool("signed_in", session.UserID() != ""),
		zap.Uint64("generation", uint64(store.Generation())),
	)

	controller.Start()
	controller.Wait()
	for page := 1; page < opts.pages; page++ {
		if !controller.LoadMore() {
			break
		}
		controller.Wait()
	}
	return report(out, controller)
}

func (o options) patch() (domain.FilterPatch, error) {
	category, err := domain.ParseCategory(o.category)
	if err != nil {
		return domain.FilterPatch{}, err
	}
	sort := domain.SortMode(o.sort)
	view := domain.ViewMode(o.view)
	price := domain.PriceRange{Min: o.priceMin, Max: o.priceMax}
	if err := price.Validate(); err != nil {
		return domain.FilterPatch{}, err
	}
	facets := domain.Facets{}
	schema := domain.SchemaFor(category)
	for name, raw := range o.facets {
		spec, ok := schema.Lookup(name)
		if !ok {
			return domain.FilterPatch{}, fmt.Errorf("%w: %q for %s", domain.ErrUnknownFacet, name, category)
		}
		switch spec.Kind {
		case domain.FacetNumericRange:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return domain.FilterPatch{}, fmt.Errorf("facet %s: %w", name, err)
			}
			facets[name] = domain.NumberFacet(n)
		case domain.FacetBoolean:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return domain.FilterPatch{}, fmt.Errorf("facet %s: %w", name, err)
			}
			facets[name] = domain.BoolFacet(b)
		case domain.FacetTextList:
			facets[name] = domain.ListFacet(strings.Split(raw, ",")...)
		default:
			facets[name] = domain.EnumFacet(raw)
		}
		if err := spec.Accepts(facets[name]); err != nil {
			return domain.FilterPatch{}, err
		}
	}
	return domain.FilterPatch{
		Category:   &category,
		SearchText: &o.search,
		PriceRange: &price,
		Sort:       &sort,
		Facets:     facets,
		ViewMode:   &view,
	}, nil
}

func seed(ctx context.Context, w app.ListingWriter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return 0, fmt.Errorf("decode seed file: %w", err)
	}
	for i := range listings {
		if listings[i].CreatedAt.IsZero() {
			listings[i].CreatedAt = time.Now().UTC()
		}
		if err := w.Save(ctx, &listings[i]); err != nil {
			return i, fmt.Errorf("seed listing %d: %w", i, err)
		}
	}
	return len(listings), nil
}

func report(out io.Writer, c *usecase.Controller) error {
	view := c.View()
	fmt.Fprintf(out, "state=%s generation=%d items=%d has_more=%t\n", view.State, view.Generation, len(view.Items), view.HasMore)
	if view.Err != nil {
		fmt.Fprintf(out, "error: %v\n", view.Err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tPRICE\tTITLE")
	for _, l := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.ID, l.Category, spatial.FormatPriceLabel(l.Price), l.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r := c.Renderer(); r.Active() {
		vp := r.Viewport()
		fmt.Fprintf(out, "map: %d markers, center=(%.5f,%.5f) zoom=%d\n", len(r.Markers()), vp.Center.Lat, vp.Center.Lng, vp.Zoom)
		for _, cl := range r.Clusters(vp.Zoom) {
			fmt.Fprintf(out, "  cluster %s: %d listings around (%.5f,%.5f)\n", cl.ID, cl.Count, cl.Center.Lat, cl.Center.Lng)
		}
	}
	if view.State == usecase.StateErrored {
		return errors.New("last fetch failed")
	}
	return nil
}

// printSurface writes marker operations to the terminal.
type printSurface struct {
	out  io.Writer
	next int
}

func (p *printSurface) AddMarker(m spatial.Marker) spatial.MarkerHandle {
	p.next++
	fmt.Fprintf(p.out, "+ marker %s %s\n", m.ListingID, m.Label())
	return p.next
}

func (p *printSurface) UpdateMarker(_ spatial.MarkerHandle, m spatial.Marker) {
	fmt.Fprintf(p.out, "~ marker %s %s\n", m.ListingID, m.Label())
}

func (p *printSurface) RemoveMarker(h spatial.MarkerHandle) {
	fmt.Fprintf(p.out, "- marker #%v\n", h)
}

func (p *printSurface) SetViewport(v spatial.Viewport) {
	fmt.Fprintf(p.out, "viewport zoom=%d\n", v.Zoom)
}
