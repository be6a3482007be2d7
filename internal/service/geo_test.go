package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMetersSamePoint(t *testing.T) {
	d := distanceMeters(-26.2041, 28.0473, -26.2041, 28.0473)
	assert.Zero(t, d)
}

func TestDistanceMetersLatitudeDegree(t *testing.T) {
	// One millidegree of latitude is ~111.2m regardless of longitude.
	d := distanceMeters(0, 0, 0.001, 0)
	assert.InDelta(t, 111.2, d, 0.5)

	d = distanceMeters(-26.2041, 28.0473, -26.2031, 28.0473)
	assert.InDelta(t, 111.2, d, 0.5)
}

func TestDistanceMetersLongitudeShrinksWithLatitude(t *testing.T) {
	atEquator := distanceMeters(0, 0, 0, 0.001)
	atSixty := distanceMeters(60, 0, 60, 0.001)

	assert.InDelta(t, 111.2, atEquator, 0.5)
	// cos(60 degrees) = 0.5
	assert.InDelta(t, atEquator/2, atSixty, 0.5)
}

func TestDistanceMetersSymmetric(t *testing.T) {
	a := distanceMeters(-26.2041, 28.0473, -26.1952, 28.0340)
	b := distanceMeters(-26.1952, 28.0340, -26.2041, 28.0473)
	assert.InDelta(t, a, b, 1e-9)
}
