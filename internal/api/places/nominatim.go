package places

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const providerNominatim = "nominatim"

// Coordinates is a bare geocoding hit.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Geocoder resolves free text to the first matching coordinate, nil when nothing matches.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Coordinates, error)
}

var _ Geocoder = (*NominatimClient)(nil)

// NominatimClient queries an OpenStreetMap Nominatim instance.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewNominatimClient(baseURL, userAgent string, httpClient *http.Client) *NominatimClient {
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
	}
}

func (c *NominatimClient) Geocode(ctx context.Context, query string) (*Coordinates, error) {
	var body []struct {
		Lat flexFloat `json:"lat"`
		Lon flexFloat `json:"lon"`
	}
	params := url.Values{"q": {query}, "format": {"json"}, "limit": {"1"}}
	headers := map[string]string{"User-Agent": c.userAgent}
	if err := getJSON(ctx, c.http, providerNominatim, c.baseURL+"/search?"+params.Encode(), headers, &body); err != nil {
		return nil, err
	}
	if len(body) == 0 || !body[0].Lat.Valid || !body[0].Lon.Valid {
		return nil, nil
	}
	return &Coordinates{Latitude: body[0].Lat.Value, Longitude: body[0].Lon.Value}, nil
}
