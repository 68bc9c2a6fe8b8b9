package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Coordinates is a lat/lng point persisted as JSONB.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value marshals coordinates to JSON for persistence.
func (c Coordinates) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal coordinates: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the coordinates.
func (c *Coordinates) Scan(value interface{}) error {
	if value == nil {
		*c = Coordinates{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Coordinates", value)
	}
	if len(data) == 0 {
		*c = Coordinates{}
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal coordinates: %w", err)
	}
	return nil
}

// Village is a static geographic record referenced by claims and documents.
type Village struct {
	ID              string      `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	State           string      `db:"state" json:"state"`
	District        string      `db:"district" json:"district"`
	Tehsil          string      `db:"tehsil" json:"tehsil"`
	Coordinates     Coordinates `db:"coordinates" json:"coordinates"`
	TotalForestArea float64     `db:"total_forest_area" json:"total_forest_area"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// VillageFilter encapsulates allowed search parameters for listing villages.
type VillageFilter struct {
	State    string
	District string
	Limit    int
}
