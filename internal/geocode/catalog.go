package geocode

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadCatalog reads a place catalog: a CSV file with a header row and
// zone_name, latitude, longitude columns. Rows with malformed
// coordinates are dropped.
func LoadCatalog(path string) ([]Place, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"zone_name", "latitude", "longitude"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog is missing column %q", required)
		}
	}

	var places []Place
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog row: %w", err)
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[cols["latitude"]]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[cols["longitude"]]), 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		places = append(places, Place{
			Label:     strings.TrimSpace(row[cols["zone_name"]]),
			Latitude:  lat,
			Longitude: lon,
		})
	}

	return places, nil
}

// CatalogPath resolves a place index name to its catalog file.
func CatalogPath(catalogDir, indexName string) string {
	return filepath.Join(catalogDir, indexName+".csv")
}
