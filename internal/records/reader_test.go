package records

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosensing/allocator/internal/domain"
)

func TestReadPointsPassesAttributesThrough(t *testing.T) {
	in := strings.NewReader(
		"name,longitude,latitude,notes\n" +
			"alpha,77.1,28.6,first stop\n" +
			"beta,72.8,19.0,\n")

	points, attrKeys, err := readPoints(in)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, []string{"name", "notes"}, attrKeys)
	assert.Equal(t, "1", points[0].ID)
	assert.Equal(t, 77.1, points[0].Coords.Lon)
	assert.Equal(t, 28.6, points[0].Coords.Lat)
	assert.Equal(t, "alpha", points[0].Attrs["name"])
	assert.Equal(t, "first stop", points[0].Attrs["notes"])
	assert.Equal(t, "", points[1].Attrs["notes"])
}

func TestReadPointsUsesIDColumn(t *testing.T) {
	in := strings.NewReader("id,longitude,latitude\nseg-7,1,2\nseg-9,3,4\n")

	points, attrKeys, err := readPoints(in)
	require.NoError(t, err)
	assert.Empty(t, attrKeys)
	assert.Equal(t, "seg-7", points[0].ID)
	assert.Equal(t, "seg-9", points[1].ID)
}

func TestReadPointsMissingCoordinateColumn(t *testing.T) {
	_, _, err := readPoints(strings.NewReader("longitude,name\n1,x\n"))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "latitude", verr.Field)

	_, _, err = readPoints(strings.NewReader("latitude,name\n1,x\n"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "longitude", verr.Field)
}

func TestReadPointsMalformedCoordinate(t *testing.T) {
	in := strings.NewReader("longitude,latitude\n1.5,2.5\nnope,3\n")

	_, _, err := readPoints(in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "longitude", verr.Field)
	assert.Contains(t, verr.Reason, "row 2")
}

func TestReadPointsEmptyFile(t *testing.T) {
	_, _, err := readPoints(strings.NewReader(""))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestReadWorkers(t *testing.T) {
	in := strings.NewReader(
		"id,longitude,latitude,capacity\n" +
			"w1,1,2,5\n" +
			"w2,3,4,\n")

	workers, err := readWorkers(in)
	require.NoError(t, err)
	require.Len(t, workers, 2)

	assert.Equal(t, "w1", workers[0].ID)
	assert.Equal(t, 5, workers[0].Capacity)
	// Empty capacity means unbounded.
	assert.Equal(t, 0, workers[1].Capacity)
}

func TestReadWorkersWithoutCapacityColumn(t *testing.T) {
	workers, err := readWorkers(strings.NewReader("longitude,latitude\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, workers[0].Capacity)
	assert.Equal(t, "1", workers[0].ID)
}

func TestReadWorkersBadCapacity(t *testing.T) {
	for _, capacity := range []string{"-2", "lots"} {
		_, err := readWorkers(strings.NewReader("longitude,latitude,capacity\n1,2," + capacity + "\n"))
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, "capacity %q", capacity)
		assert.Equal(t, "capacity", verr.Field)
	}
}
