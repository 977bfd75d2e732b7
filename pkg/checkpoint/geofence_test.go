package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, DistanceMeters(37.5665, 126.9780, 37.5665, 126.9780), 0.001)
	// One degree of latitude is roughly 111 km.
	assert.InDelta(t, 111195, DistanceMeters(37, 127, 38, 127), 100)
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(37.5665, 126.9780, 37.5670, 126.9780, 300))
	assert.False(t, WithinRadius(37.5665, 126.9780, 37.5765, 126.9780, 300))
	assert.True(t, WithinRadius(37.5665, 126.9780, 10, 10, 0))
}
