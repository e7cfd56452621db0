package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, distanceMeters(12.97, 77.59, 12.97, 77.59), 1e-6)
	// one degree of latitude is ~111.2km
	assert.InDelta(t, 111195, distanceMeters(0, 0, 1, 0), 50)
	assert.InDelta(t, distanceMeters(10, 20, 11, 21), distanceMeters(11, 21, 10, 20), 1e-6)
}
