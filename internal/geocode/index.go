package geocode

import (
	"context"
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/mmcloughlin/geohash"
	"github.com/tripstream-data/internal/common/logger"
)

const (
	// maxMatchRadiusKM bounds how far a pickup point may be from a
	// catalog place and still match it. Beyond this the lookup is a
	// miss and the zone stays unknown.
	maxMatchRadiusKM = 10.0

	// cellPrecision is the geohash length used for the exact-cell fast
	// path. Six characters is roughly a 1.2km x 0.6km cell.
	cellPrecision = 6

	// pointTolerance is the side of the degenerate bounding box a
	// catalog point occupies in the R-tree.
	pointTolerance = 0.0001
)

// ZoneIndex is the in-process reverse geocoder: a catalog of zone
// points indexed twice, in an R-tree for nearest-neighbor scans and in
// a geohash cell map for cheap exact-cell hits. It is read-only after
// construction and safe for concurrent lookups.
type ZoneIndex struct {
	name   string
	tree   *rtreego.Rtree
	cells  map[string][]*zoneEntry
	logger logger.Logger
}

type zoneEntry struct {
	place Place
	loc   rtreego.Point
}

// Bounds satisfies rtreego.Spatial with a degenerate box around the
// zone point.
func (e *zoneEntry) Bounds() rtreego.Rect {
	return e.loc.ToRect(pointTolerance)
}

// Open loads the catalog for the named place index and builds its
// lookup structures.
func Open(catalogDir, indexName string, log logger.Logger) (*ZoneIndex, error) {
	places, err := LoadCatalog(CatalogPath(catalogDir, indexName))
	if err != nil {
		return nil, fmt.Errorf("opening place index %s: %w", indexName, err)
	}
	return NewZoneIndex(indexName, places, log), nil
}

// NewZoneIndex builds an index over the given catalog places.
func NewZoneIndex(name string, places []Place, log logger.Logger) *ZoneIndex {
	idx := &ZoneIndex{
		name:   name,
		tree:   rtreego.NewTree(2, 25, 50),
		cells:  make(map[string][]*zoneEntry),
		logger: log,
	}

	for _, place := range places {
		entry := &zoneEntry{
			place: place,
			loc:   rtreego.Point{place.Longitude, place.Latitude},
		}
		idx.tree.Insert(entry)

		// Register the zone under its own cell and the eight
		// surrounding cells, so a pickup just across a cell boundary
		// still hits the fast path.
		cell := geohash.EncodeWithPrecision(place.Latitude, place.Longitude, cellPrecision)
		idx.cells[cell] = append(idx.cells[cell], entry)
		for _, neighbor := range geohash.Neighbors(cell) {
			idx.cells[neighbor] = append(idx.cells[neighbor], entry)
		}
	}

	log.Info("Zone index loaded", "index", name, "places", len(places), "cells", len(idx.cells))
	return idx
}

// SearchNearest returns up to maxResults catalog places within the
// match radius of the coordinate, nearest first. An empty slice means
// no zone matched.
func (z *ZoneIndex) SearchNearest(ctx context.Context, longitude, latitude float64, maxResults int) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults < 1 {
		maxResults = 1
	}

	candidates := z.cells[geohash.EncodeWithPrecision(latitude, longitude, cellPrecision)]
	if len(candidates) < maxResults {
		candidates = union(candidates, z.treeCandidates(longitude, latitude, maxResults))
	}

	type scored struct {
		place Place
		dist  float64
	}
	matches := make([]scored, 0, len(candidates))
	for _, entry := range candidates {
		d := distanceKM(latitude, longitude, entry.place.Latitude, entry.place.Longitude)
		if d <= maxMatchRadiusKM {
			matches = append(matches, scored{place: entry.place, dist: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	places := make([]Place, len(matches))
	for i, m := range matches {
		places[i] = m.place
	}
	return places, nil
}

func (z *ZoneIndex) treeCandidates(longitude, latitude float64, k int) []*zoneEntry {
	neighbors := z.tree.NearestNeighbors(k, rtreego.Point{longitude, latitude})
	entries := make([]*zoneEntry, 0, len(neighbors))
	for _, spatial := range neighbors {
		if entry, ok := spatial.(*zoneEntry); ok && entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

func union(a, b []*zoneEntry) []*zoneEntry {
	seen := make(map[*zoneEntry]struct{}, len(a))
	out := make([]*zoneEntry, 0, len(a)+len(b))
	for _, e := range a {
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for _, e := range b {
		if _, ok := seen[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}
