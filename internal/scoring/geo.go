package scoring

import (
	"math"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
)

// Region classifies a coordinate relative to the configured home region
type Region string

const (
	RegionHome    Region = "HOME"
	RegionForeign Region = "FOREIGN"
)

// GeoClassifier performs the coarse home-region membership test and the
// degree-distance metric both scorers were trained against. The membership
// test is an outer bounding box: any point inside the box counts as home,
// coastline and border precision included. The models were tuned against
// this definition, so it is preserved as-is.
type GeoClassifier struct {
	minLat, maxLat float64
	minLon, maxLon float64
	centroid       domain.Coordinates
}

// NewGeoClassifier builds a classifier from the configured bounding region.
func NewGeoClassifier(cfg config.GeoConfig) *GeoClassifier {
	return &GeoClassifier{
		minLat:   cfg.HomeMinLat,
		maxLat:   cfg.HomeMaxLat,
		minLon:   cfg.HomeMinLon,
		maxLon:   cfg.HomeMaxLon,
		centroid: domain.Coordinates{Lat: cfg.CentroidLat, Lon: cfg.CentroidLon},
	}
}

// Classify reports whether loc falls inside the home bounding region.
func (g *GeoClassifier) Classify(loc domain.Coordinates) Region {
	if loc.Lat >= g.minLat && loc.Lat <= g.maxLat &&
		loc.Lon >= g.minLon && loc.Lon <= g.maxLon {
		return RegionHome
	}
	return RegionForeign
}

// Distance returns the Euclidean distance between two points in degrees.
// Intentionally not geodesic - the training data used this approximation.
func (g *GeoClassifier) Distance(a, b domain.Coordinates) float64 {
	return math.Sqrt((a.Lat-b.Lat)*(a.Lat-b.Lat) + (a.Lon-b.Lon)*(a.Lon-b.Lon))
}

// Centroid returns the configured home-region centroid, the default
// location for accounts and merchants with no known coordinates.
func (g *GeoClassifier) Centroid() domain.Coordinates {
	return g.centroid
}
