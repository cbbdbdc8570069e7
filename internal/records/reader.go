package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/geosensing/allocator/internal/domain"
)

// ReadPoints loads points from a CSV file. The longitude and latitude
// columns are required; every other column is carried through verbatim as
// point attributes. The returned attr key list preserves the input column
// order for output.
func ReadPoints(path string) ([]domain.Point, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read points: %w", err)
	}
	defer f.Close()
	return readPoints(f)
}

func readPoints(r io.Reader) ([]domain.Point, []string, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, nil, err
	}

	cols, attrKeys, err := locateColumns(header)
	if err != nil {
		return nil, nil, err
	}

	points := make([]domain.Point, 0, len(rows))
	for i, row := range rows {
		coords, err := parseCoords(row, cols, i)
		if err != nil {
			return nil, nil, err
		}

		id := strconv.Itoa(i + 1)
		if cols.id >= 0 {
			id = row[cols.id]
		}

		attrs := make(map[string]string, len(attrKeys))
		for _, key := range attrKeys {
			attrs[key] = row[cols.byName[key]]
		}

		points = append(points, domain.Point{ID: id, Coords: coords, Attrs: attrs})
	}

	return points, attrKeys, nil
}

// ReadWorkers loads worker locations from a CSV file. Columns longitude and
// latitude are required; id and capacity are optional, capacity absent or
// empty meaning unbounded.
func ReadWorkers(path string) ([]domain.Worker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read workers: %w", err)
	}
	defer f.Close()
	return readWorkers(f)
}

func readWorkers(r io.Reader) ([]domain.Worker, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}

	cols, _, err := locateColumns(header)
	if err != nil {
		return nil, err
	}
	capCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "capacity") {
			capCol = i
		}
	}

	workers := make([]domain.Worker, 0, len(rows))
	for i, row := range rows {
		coords, err := parseCoords(row, cols, i)
		if err != nil {
			return nil, err
		}

		id := strconv.Itoa(i + 1)
		if cols.id >= 0 {
			id = row[cols.id]
		}

		capacity := 0
		if capCol >= 0 && strings.TrimSpace(row[capCol]) != "" {
			capacity, err = strconv.Atoi(strings.TrimSpace(row[capCol]))
			if err != nil || capacity < 0 {
				return nil, &domain.ValidationError{Field: "capacity",
					Reason: fmt.Sprintf("row %d: %q is not a non-negative integer", i+1, row[capCol])}
			}
		}

		workers = append(workers, domain.Worker{ID: id, Coords: coords, Capacity: capacity})
	}

	return workers, nil
}

func readTable(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, &domain.ValidationError{Field: "input", Reason: "file is empty"}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return header, rows, nil
}

type columnIndex struct {
	lon, lat, id int
	byName       map[string]int
}

func locateColumns(header []string) (columnIndex, []string, error) {
	cols := columnIndex{lon: -1, lat: -1, id: -1, byName: make(map[string]int, len(header))}
	var attrKeys []string

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "longitude":
			cols.lon = i
		case "latitude":
			cols.lat = i
		case "id":
			cols.id = i
		default:
			cols.byName[raw] = i
			attrKeys = append(attrKeys, raw)
			continue
		}
		cols.byName[name] = i
	}

	if cols.lon < 0 {
		return cols, nil, &domain.ValidationError{Field: "longitude", Reason: "required column is missing"}
	}
	if cols.lat < 0 {
		return cols, nil, &domain.ValidationError{Field: "latitude", Reason: "required column is missing"}
	}
	return cols, attrKeys, nil
}

func parseCoords(row []string, cols columnIndex, rowIdx int) (domain.Coordinates, error) {
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[cols.lon]), 64)
	if err != nil {
		return domain.Coordinates{}, &domain.ValidationError{Field: "longitude",
			Reason: fmt.Sprintf("row %d: %q is not a number", rowIdx+1, row[cols.lon])}
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[cols.lat]), 64)
	if err != nil {
		return domain.Coordinates{}, &domain.ValidationError{Field: "latitude",
			Reason: fmt.Sprintf("row %d: %q is not a number", rowIdx+1, row[cols.lat])}
	}
	return domain.Coordinates{Lon: lon, Lat: lat}, nil
}
