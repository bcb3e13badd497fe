package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const providerTripAdvisor = "tripadvisor"

// POICandidate is one search hit from the POI provider.
type POICandidate struct {
	ID   string
	Name string
}

// POIDetails is the detail record of one listing.
type POIDetails struct {
	Name      string
	Latitude  *float64
	Longitude *float64
	Rating    *float64
	URL       string
}

// POIProvider is the ratings/points-of-interest backend.
type POIProvider interface {
	Search(ctx context.Context, query string) ([]POICandidate, error)
	Details(ctx context.Context, id string) (*POIDetails, error)
	Photo(ctx context.Context, id string) (string, error)
}

var _ POIProvider = (*TripAdvisorClient)(nil)

// TripAdvisorClient calls the TripAdvisor Content API.
type TripAdvisorClient struct {
	baseURL  string
	apiKey   string
	language string
	currency string
	http     *http.Client
}

func NewTripAdvisorClient(baseURL, apiKey, language, currency string, httpClient *http.Client) *TripAdvisorClient {
	if language == "" {
		language = "en"
	}
	if currency == "" {
		currency = "USD"
	}
	return &TripAdvisorClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: language,
		currency: currency,
		http:     httpClient,
	}
}

func (c *TripAdvisorClient) endpoint(path string, params url.Values) string {
	params.Set("key", c.apiKey)
	params.Set("language", c.language)
	return c.baseURL + path + "?" + params.Encode()
}

func (c *TripAdvisorClient) Search(ctx context.Context, query string) ([]POICandidate, error) {
	var body struct {
		Data []struct {
			LocationID string `json:"location_id"`
			Name       string `json:"name"`
		} `json:"data"`
	}
	u := c.endpoint("/location/search", url.Values{"searchQuery": {query}})
	if err := getJSON(ctx, c.http, providerTripAdvisor, u, nil, &body); err != nil {
		return nil, err
	}
	out := make([]POICandidate, 0, len(body.Data))
	for _, d := range body.Data {
		if d.LocationID == "" {
			continue
		}
		out = append(out, POICandidate{ID: d.LocationID, Name: d.Name})
	}
	return out, nil
}

func (c *TripAdvisorClient) Details(ctx context.Context, id string) (*POIDetails, error) {
	var body struct {
		Name      string    `json:"name"`
		Latitude  flexFloat `json:"latitude"`
		Longitude flexFloat `json:"longitude"`
		Rating    flexFloat `json:"rating"`
		WebURL    string    `json:"web_url"`
	}
	u := c.endpoint(fmt.Sprintf("/location/%s/details", url.PathEscape(id)), url.Values{"currency": {c.currency}})
	if err := getJSON(ctx, c.http, providerTripAdvisor, u, nil, &body); err != nil {
		return nil, err
	}
	return &POIDetails{
		Name:      body.Name,
		Latitude:  body.Latitude.Ptr(),
		Longitude: body.Longitude.Ptr(),
		Rating:    body.Rating.Ptr(),
		URL:       body.WebURL,
	}, nil
}

// Photo returns the large (or original) URL of the first photo, "" when there is none.
func (c *TripAdvisorClient) Photo(ctx context.Context, id string) (string, error) {
	type image struct {
		URL string `json:"url"`
	}
	var body struct {
		Data []struct {
			Images struct {
				Large    *image `json:"large"`
				Original *image `json:"original"`
			} `json:"images"`
		} `json:"data"`
	}
	u := c.endpoint(fmt.Sprintf("/location/%s/photos", url.PathEscape(id)), url.Values{"limit": {"1"}})
	if err := getJSON(ctx, c.http, providerTripAdvisor, u, nil, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", nil
	}
	img := body.Data[0].Images
	switch {
	case img.Large != nil && img.Large.URL != "":
		return img.Large.URL, nil
	case img.Original != nil:
		return img.Original.URL, nil
	}
	return "", nil
}
