package scoring

import (
	"testing"

	"github.com/banking/fraud-risk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestGeoClassifier_Classify(t *testing.T) {
	geo := NewGeoClassifier(testGeoConfig())

	tests := []struct {
		name string
		loc  domain.Coordinates
		want Region
	}{
		{"colombo", domain.Coordinates{Lat: 6.9271, Lon: 79.8612}, RegionHome},
		{"northern edge inclusive", domain.Coordinates{Lat: 10.0, Lon: 80.0}, RegionHome},
		{"southern edge inclusive", domain.Coordinates{Lat: 5.5, Lon: 79.0}, RegionHome},
		{"open ocean inside box", domain.Coordinates{Lat: 7.0, Lon: 81.9}, RegionHome},
		{"just north of box", domain.Coordinates{Lat: 10.01, Lon: 80.0}, RegionForeign},
		{"london", domain.Coordinates{Lat: 51.5074, Lon: -0.1278}, RegionForeign},
		{"zero value", domain.Coordinates{}, RegionForeign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geo.Classify(tt.loc))
		})
	}
}

func TestGeoClassifier_Distance(t *testing.T) {
	geo := NewGeoClassifier(testGeoConfig())

	a := domain.Coordinates{Lat: 6.9, Lon: 79.8}
	assert.Equal(t, 0.0, geo.Distance(a, a))

	b := domain.Coordinates{Lat: 6.9, Lon: 79.9}
	assert.InDelta(t, 0.1, geo.Distance(a, b), 1e-9)
	assert.Equal(t, geo.Distance(a, b), geo.Distance(b, a))

	c := domain.Coordinates{Lat: 9.9, Lon: 83.8}
	assert.InDelta(t, 5.0, geo.Distance(a, c), 1e-9)
}

func TestGeoClassifier_Centroid(t *testing.T) {
	geo := NewGeoClassifier(testGeoConfig())
	centroid := geo.Centroid()
	assert.Equal(t, RegionHome, geo.Classify(centroid))
	assert.InDelta(t, 6.9271, centroid.Lat, 1e-9)
	assert.InDelta(t, 79.8612, centroid.Lon, 1e-9)
}
