package types

// CityCenter matches a row of the cities table used for coordinate fallback.
type CityCenter struct {
	ID         int64   `json:"id"`
	City       string  `json:"city"`
	CityASCII  string  `json:"city_ascii"`
	Country    string  `json:"country"`
	ISO2       string  `json:"iso2"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lng"`
	Population *int64  `json:"population,omitempty"`
}
