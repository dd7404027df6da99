package spatial

import (
	"math"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
)

// tileSize is the edge of a Web Mercator tile in pixels.
const tileSize = 256.0

// Bounds is a lat/lng bounding box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the smallest box containing every point.
func BoundsOf(points []domain.LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{South: points[0].Lat, North: points[0].Lat, West: points[0].Lng, East: points[0].Lng}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b, true
}

func (b Bounds) Extend(p domain.LatLng) Bounds {
	b.South = math.Min(b.South, p.Lat)
	b.North = math.Max(b.North, p.Lat)
	b.West = math.Min(b.West, p.Lng)
	b.East = math.Max(b.East, p.Lng)
	return b
}

func (b Bounds) Center() domain.LatLng {
	return domain.LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

func (b Bounds) Contains(p domain.LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// ZoomForBounds returns the largest integer zoom at which b fits a viewport of
// widthPx x heightPx, capped to maxZoom.
func ZoomForBounds(b Bounds, widthPx, heightPx int, maxZoom int) int {
	latFraction := (mercatorLat(b.North) - mercatorLat(b.South)) / math.Pi
	lngDiff := b.East - b.West
	if lngDiff < 0 {
		lngDiff += 360
	}
	lngFraction := lngDiff / 360

	zoom := math.Min(
		zoomFor(float64(heightPx), latFraction),
		zoomFor(float64(widthPx), lngFraction),
	)
	if zoom > float64(maxZoom) || math.IsInf(zoom, 1) || math.IsNaN(zoom) {
		return maxZoom
	}
	if zoom < 0 {
		return 0
	}
	return int(zoom)
}

func zoomFor(px, fraction float64) float64 {
	if fraction <= 0 {
		return math.Inf(1)
	}
	return math.Floor(math.Log(px/tileSize/fraction) / math.Ln2)
}

func mercatorLat(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	radX2 := math.Log((1+sin)/(1-sin)) / 2
	return math.Max(math.Min(radX2, math.Pi), -math.Pi) / 2
}

// worldPixel projects p to Web Mercator pixel coordinates at zoom.
func worldPixel(p domain.LatLng, zoom int) (float64, float64) {
	scale := tileSize * math.Exp2(float64(zoom))
	x := (p.Lng + 180) / 360 * scale
	sin := math.Sin(p.Lat * math.Pi / 180)
	sin = math.Min(math.Max(sin, -0.9999), 0.9999)
	y := (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * scale
	return x, y
}
