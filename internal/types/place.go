package types

// PlaceSource names the provider that produced a PlaceRecord.
type PlaceSource string

const (
	PlaceSourcePOI      PlaceSource = "poi"
	PlaceSourceGeocoder PlaceSource = "geocoder"
	MinPlaceRating                  = 0.0
	MaxPlaceRating                  = 5.0
)

// PlaceRecord is the provider-agnostic result of resolving a location.
// Empty strings mean the provider did not supply the field.
type PlaceRecord struct {
	Name      string      `json:"name,omitempty"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Rating    *float64    `json:"rating,omitempty"`
	URL       string      `json:"url,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	Source    PlaceSource `json:"source"`
}

// Verified reports whether the record comes from a listing with an external URL.
func (p *PlaceRecord) Verified() bool {
	return p != nil && p.URL != ""
}
