package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/discovery/domain"
)

// Cluster groups markers that fall into the same grid cell at a zoom level.
type Cluster struct {
	ID         string        `json:"id"`
	Center     domain.LatLng `json:"center"`
	Count      int           `json:"count"`
	ListingIDs []string      `json:"listing_ids"`
	Bounds     Bounds        `json:"bounds"`
}

type cell struct{ x, y int }

// Clusters groups the current markers on a pixel grid of the configured cell
// size. Output is ordered by cell row, then column.
func (r *Renderer) Clusters(zoom int) []Cluster {
	return ClusterMarkers(r.Markers(), zoom, r.opts.ClusterCellPx)
}

// ClusterMarkers is the stateless form of Renderer.Clusters.
func ClusterMarkers(markers []Marker, zoom, cellPx int) []Cluster {
	if cellPx <= 0 {
		cellPx = DefaultOptions().ClusterCellPx
	}
	if zoom < 0 {
		zoom = 0
	}
	groups := make(map[cell][]Marker)
	for _, m := range markers {
		x, y := worldPixel(m.Position, zoom)
		c := cell{x: int(math.Floor(x / float64(cellPx))), y: int(math.Floor(y / float64(cellPx)))}
		groups[c] = append(groups[c], m)
	}

	cells := make([]cell, 0, len(groups))
	for c := range groups {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].y != cells[j].y {
			return cells[i].y < cells[j].y
		}
		return cells[i].x < cells[j].x
	})

	out := make([]Cluster, 0, len(cells))
	for _, c := range cells {
		members := groups[c]
		ids := make([]string, 0, len(members))
		points := make([]domain.LatLng, 0, len(members))
		var lat, lng float64
		for _, m := range members {
			ids = append(ids, m.ListingID)
			points = append(points, m.Position)
			lat += m.Position.Lat
			lng += m.Position.Lng
		}
		sort.Strings(ids)
		b, _ := BoundsOf(points)
		n := float64(len(members))
		out = append(out, Cluster{
			ID:         fmt.Sprintf("z%d:%d:%d", zoom, c.x, c.y),
			Center:     domain.LatLng{Lat: lat / n, Lng: lng / n},
			Count:      len(members),
			ListingIDs: ids,
			Bounds:     b,
		})
	}
	return out
}
