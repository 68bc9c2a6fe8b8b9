package models

// GeoPoint is a GeoJSON Point geometry. Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint builds a Point geometry from a lat/lng pair.
func NewGeoPoint(c Coordinates) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{c.Lng, c.Lat}}
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   GeoPoint               `json:"geometry"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features into a collection, never nil.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
