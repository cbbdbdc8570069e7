package records

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosensing/allocator/internal/domain"
)

func samplePoints() ([]domain.Point, []string) {
	points := []domain.Point{
		{ID: "a", Coords: domain.Coordinates{Lon: 1.5, Lat: 2.5}, Attrs: map[string]string{"name": "alpha"}},
		{ID: "b", Coords: domain.Coordinates{Lon: 3, Lat: 4}, Attrs: map[string]string{"name": "beta"}},
	}
	return points, []string{"name"}
}

func TestBuildTableLayout(t *testing.T) {
	points, attrKeys := samplePoints()

	table, err := BuildTable(points, attrKeys, Column{Name: "cluster", Values: []string{"0", "1"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "longitude", "latitude", "name", "cluster"}, table.Header)
	assert.Equal(t, []string{"a", "1.5", "2.5", "alpha", "0"}, table.Rows[0])
	assert.Equal(t, []string{"b", "3", "4", "beta", "1"}, table.Rows[1])
}

func TestBuildTableColumnLengthMismatch(t *testing.T) {
	points, attrKeys := samplePoints()

	_, err := BuildTable(points, attrKeys, Column{Name: "cluster", Values: []string{"0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	points, attrKeys := samplePoints()
	table, err := BuildTable(points, attrKeys)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	back, backKeys, err := readPoints(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, attrKeys, backKeys)
	assert.Equal(t, points, back)
}

func TestWriteJSONIncludesMetadata(t *testing.T) {
	points, attrKeys := samplePoints()
	table, err := BuildTable(points, attrKeys)
	require.NoError(t, err)

	info := domain.NewRunInfo("cluster", "kmeans", "planar", len(points))

	var buf bytes.Buffer
	require.NoError(t, table.WriteJSON(&buf, info))

	var doc struct {
		Records  []map[string]string `json:"records"`
		Metadata map[string]any      `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Len(t, doc.Records, 2)
	assert.Equal(t, "a", doc.Records[0]["id"])
	assert.Equal(t, "alpha", doc.Records[0]["name"])
	assert.Equal(t, "kmeans", doc.Metadata["method"])
	assert.NotEmpty(t, doc.Metadata["invocation_id"])
}

func TestWriteFileCSVWritesSidecarMetadata(t *testing.T) {
	points, attrKeys := samplePoints()
	table, err := BuildTable(points, attrKeys)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	info := domain.NewRunInfo("route", "approx", "planar", len(points))
	require.NoError(t, table.WriteFile(path, "csv", info))

	raw, err := os.ReadFile(path + ".meta.json")
	require.NoError(t, err)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "route", meta["command"])
}

func TestWriteFileRejectsUnknownFormat(t *testing.T) {
	points, attrKeys := samplePoints()
	table, err := BuildTable(points, attrKeys)
	require.NoError(t, err)

	err = table.WriteFile(filepath.Join(t.TempDir(), "out.xml"), "xml", nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestWriteCentroids(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centroids.csv")
	centroids := []domain.Coordinates{{Lon: 1, Lat: 2}, {Lon: 3.5, Lat: 4.5}}
	require.NoError(t, WriteCentroids(path, centroids))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "cluster,longitude,latitude", lines[0])
	assert.Equal(t, "1,3.5,4.5", lines[2])
}

func TestWriteByWorker(t *testing.T) {
	points := []domain.Point{
		{ID: "a", Coords: domain.Coordinates{Lon: 1}},
		{ID: "b", Coords: domain.Coordinates{Lon: 2}},
		{ID: "c", Coords: domain.Coordinates{Lon: 3}},
	}
	table, err := BuildTable(points, nil,
		Column{Name: "worker", Values: []string{"w1", "w2", "w1"}},
		Column{Name: "distance", Values: []string{"9", "1", "4"}})
	require.NoError(t, err)

	dir := t.TempDir()
	combined := filepath.Join(dir, "assigned.csv")
	workers := []domain.Worker{{ID: "w1"}, {ID: "w2"}, {ID: "w3"}}
	require.NoError(t, WriteByWorker(combined, "csv", table, "worker", "distance", workers))

	w1, err := os.ReadFile(filepath.Join(dir, "assigned.w1.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(w1)), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	// Rows inside a worker file are ordered by ascending distance.
	assert.True(t, strings.HasPrefix(lines[1], "c,"), "nearest point first: %v", lines)
	assert.True(t, strings.HasPrefix(lines[2], "a,"), "farthest point last: %v", lines)

	_, err = os.Stat(filepath.Join(dir, "assigned.w3.csv"))
	assert.True(t, os.IsNotExist(err), "idle workers get no file")
}
