package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteLegs(t *testing.T) {
	open := &Route{Order: []int{2, 0, 1}}
	assert.Equal(t, [][2]int{{2, 0}, {0, 1}}, open.Legs())

	closed := &Route{Order: []int{2, 0, 1}, Closed: true}
	assert.Equal(t, [][2]int{{2, 0}, {0, 1}, {1, 2}}, closed.Legs())
}

func TestRouteLegsDegenerate(t *testing.T) {
	assert.Nil(t, (&Route{Order: []int{0}}).Legs())
	assert.Nil(t, (&Route{}).Legs())
}

func TestErrorMessages(t *testing.T) {
	assert.EqualError(t,
		&ValidationError{Field: "k", Reason: "must be positive"},
		"validation: k: must be positive")

	assert.Contains(t,
		(&ServiceError{Service: "osrm", Permanent: true, Err: assert.AnError}).Error(),
		"permanent")
	assert.Contains(t,
		(&ServiceError{Service: "osrm", Err: assert.AnError}).Error(),
		"transient")

	cerr := &CapacityError{PointID: "p-9", PointIndex: 8}
	assert.Contains(t, cerr.Error(), `"p-9"`)
}
