package records

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/geosensing/allocator/internal/domain"
)

// Column is an output column appended to the input attributes, typically the
// result of a processing stage (cluster id, route position, assigned worker).
type Column struct {
	Name   string
	Values []string
}

// Table is a rectangular record set ready for serialization. Rows keep the
// input order of the points they were built from.
type Table struct {
	Header []string
	Rows   [][]string
}

// BuildTable lays out points followed by any extra columns: id, longitude,
// latitude, the original attributes in input order, then the extras.
func BuildTable(points []domain.Point, attrKeys []string, extras ...Column) (*Table, error) {
	for _, col := range extras {
		if len(col.Values) != len(points) {
			return nil, fmt.Errorf("build table: column %q has %d values for %d points",
				col.Name, len(col.Values), len(points))
		}
	}

	header := append([]string{"id", "longitude", "latitude"}, attrKeys...)
	for _, col := range extras {
		header = append(header, col.Name)
	}

	rows := make([][]string, len(points))
	for i, p := range points {
		row := make([]string, 0, len(header))
		row = append(row, p.ID, formatFloat(p.Coords.Lon), formatFloat(p.Coords.Lat))
		for _, key := range attrKeys {
			row = append(row, p.Attrs[key])
		}
		for _, col := range extras {
			row = append(row, col.Values[i])
		}
		rows[i] = row
	}

	return &Table{Header: header, Rows: rows}, nil
}

// WriteCSV serializes the table as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON serializes the table as a JSON document of record objects plus
// the run metadata when provided.
func (t *Table) WriteJSON(w io.Writer, info *domain.RunInfo) error {
	recs := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for j, name := range t.Header {
			rec[name] = row[j]
		}
		recs[i] = rec
	}

	doc := struct {
		Records  []map[string]string `json:"records"`
		Metadata *domain.RunInfo     `json:"metadata,omitempty"`
	}{Records: recs, Metadata: info}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteFile writes the table to path in the given format ("csv" or "json").
// For CSV output the metadata goes to a <path>.meta.json sidecar so the
// tabular file stays loadable by anything that reads CSV.
func (t *Table) WriteFile(path, format string, info *domain.RunInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	defer f.Close()

	switch format {
	case "json":
		return t.WriteJSON(f, info)
	case "csv":
		if err := t.WriteCSV(f); err != nil {
			return err
		}
		if info != nil {
			return writeMetaSidecar(path, info)
		}
		return nil
	default:
		return &domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q", format)}
	}
}

func writeMetaSidecar(path string, info *domain.RunInfo) error {
	mf, err := os.Create(path + ".meta.json")
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	defer mf.Close()
	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// WriteCentroids writes cluster centroids as a small CSV keyed by cluster id.
func WriteCentroids(path string, centroids []domain.Coordinates) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write centroids: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"cluster", "longitude", "latitude"}); err != nil {
		return err
	}
	for i, c := range centroids {
		row := []string{strconv.Itoa(i), formatFloat(c.Lon), formatFloat(c.Lat)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteByWorker splits assignment output into one file per worker, next to
// the combined output path. Files are named <base>.<workerID><ext>; each
// worker's rows are ordered by ascending distance.
func WriteByWorker(path, format string, t *Table, workerCol, distCol string, workers []domain.Worker) error {
	col := -1
	dcol := -1
	for i, name := range t.Header {
		switch name {
		case workerCol:
			col = i
		case distCol:
			dcol = i
		}
	}
	if col < 0 {
		return fmt.Errorf("write by worker: column %q not in table", workerCol)
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	for _, w := range workers {
		sub := &Table{Header: t.Header}
		for _, row := range t.Rows {
			if row[col] == w.ID {
				sub.Rows = append(sub.Rows, row)
			}
		}
		if len(sub.Rows) == 0 {
			continue
		}
		if dcol >= 0 {
			sort.SliceStable(sub.Rows, func(a, b int) bool {
				da, _ := strconv.ParseFloat(sub.Rows[a][dcol], 64)
				db, _ := strconv.ParseFloat(sub.Rows[b][dcol], 64)
				return da < db
			})
		}
		if err := sub.WriteFile(base+"."+sanitize(w.ID)+ext, format, nil); err != nil {
			return err
		}
	}
	return nil
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, id)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
