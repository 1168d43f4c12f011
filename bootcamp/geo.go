package bootcamp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// EarthRadiusMiles is the radius used for distance math.
const EarthRadiusMiles = 3963.0

// Geocoder resolves a free-form location (address, zipcode) to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (lat, lng float64, err error)
}

// Haversine returns the great-circle distance between two points in miles.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NominatimGeocoder resolves locations against the OpenStreetMap Nominatim
// API.
type NominatimGeocoder struct {
	BaseURL string
	Client  *http.Client
}

// NewNominatimGeocoder returns a geocoder against the public Nominatim
// endpoint.
func NewNominatimGeocoder() *NominatimGeocoder {
	return &NominatimGeocoder{
		BaseURL: "https://nominatim.openstreetmap.org",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves the location, returning the first match.
func (g *NominatimGeocoder) Geocode(ctx context.Context, location string) (float64, float64, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.BaseURL, url.QueryEscape(location))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "devcamper/1.0")

	resp, err := g.Client.Do(req)
	if err != nil {
		return 0, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "geocoding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, goerrors.New("geocoding request failed", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode geocoding response")
	}

	if len(results) == 0 {
		return 0, 0, goerrors.New("location could not be geocoded", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"location": location})
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}

	return lat, lng, nil
}
