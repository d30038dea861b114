// Package export writes artworks to JSON or CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/natefinch/atomic"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

const filePerms = 0o644

// Header is the CSV header row.
var Header = []string{"id", "title", "place_of_origin", "artist_display", "inscriptions", "date_start", "date_end"}

// ParseFormat accepts "json" or "csv" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("format must be json or csv (got %q)", s)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Write encodes items to w.
func Write(w io.Writer, format Format, items []artwork.Artwork) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, items)
	case FormatCSV:
		return writeCSV(w, items)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteFile encodes items and replaces path atomically, creating parent
// directories as needed.
func WriteFile(path string, format Format, items []artwork.Artwork) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, items); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	// atomic.WriteFile leaves temp-file permissions on new files
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("set file permissions: %w", err)
	}

	return nil
}

func writeJSON(w io.Writer, items []artwork.Artwork) error {
	if items == nil {
		items = []artwork.Artwork{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, items []artwork.Artwork) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, a := range items {
		record := []string{
			strconv.FormatInt(a.ID, 10),
			a.Title,
			a.PlaceOfOrigin,
			a.ArtistDisplay,
			a.Inscriptions,
			strconv.Itoa(a.DateStart),
			strconv.Itoa(a.DateEnd),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}
