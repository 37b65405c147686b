// Package enrichment looks up places, movies and weather to seed event options.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/planmyoutings/backend/config"
)

// Default upstream endpoints.
const (
	PlacesURL       = "https://maps.googleapis.com/maps/api/place/textsearch/json"
	MoviesURL       = "https://api.themoviedb.org/3/search/movie"
	WeatherURL      = "https://api.openweathermap.org/data/2.5/forecast"
	PosterURLPrefix = "https://image.tmdb.org/t/p/w500"

	placesRadiusMeters = 5000
	maxMovies          = 10
	maxForecasts       = 8
)

// Place is one Google Places text search hit.
type Place struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Rating     *float64 `json:"rating"`
	PriceLevel *int     `json:"price_level"`
	Types      []string `json:"types"`
	Location   LatLng   `json:"location"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Movie is one TMDB search hit.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Rating      float64 `json:"rating"`
	PosterPath  *string `json:"poster_path"`
}

// Forecast is one three-hour OpenWeather forecast slot.
type Forecast struct {
	DateTime    string  `json:"datetime"`
	Temp        float64 `json:"temp"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Client calls the upstream APIs. Lookups never fail: upstream errors are logged and yield an
// empty list.
type Client struct {
	http   *http.Client
	cfg    config.EnrichmentConfig
	logger *zap.Logger

	placesURL  string
	moviesURL  string
	weatherURL string
}

// Option overrides a Client default.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithEndpoints points the client at other upstreams (tests, proxies).
func WithEndpoints(places, movies, weather string) Option {
	return func(c *Client) {
		c.placesURL, c.moviesURL, c.weatherURL = places, movies, weather
	}
}

// NewClient creates an enrichment client.
func NewClient(cfg config.EnrichmentConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		http:       &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logger,
		placesURL:  PlacesURL,
		moviesURL:  MoviesURL,
		weatherURL: WeatherURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// SearchPlaces runs a text search, biased to location ("lat,lng") when given.
func (c *Client) SearchPlaces(ctx context.Context, query, location string) []Place {
	params := url.Values{"query": {query}, "key": {c.cfg.GooglePlacesKey}}
	if location != "" {
		params.Set("location", location)
		params.Set("radius", fmt.Sprint(placesRadiusMeters))
	}
	var body struct {
		Status  string `json:"status"`
		Results []struct {
			PlaceID          string   `json:"place_id"`
			Name             string   `json:"name"`
			FormattedAddress string   `json:"formatted_address"`
			Rating           *float64 `json:"rating"`
			PriceLevel       *int     `json:"price_level"`
			Types            []string `json:"types"`
			Geometry         struct {
				Location LatLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	places := []Place{}
	if err := c.getJSON(ctx, c.placesURL, params, &body); err != nil {
		c.logger.Warn("places search failed", zap.String("query", query), zap.Error(err))
		return places
	}
	if body.Status != "OK" {
		c.logger.Debug("places search returned no results", zap.String("status", body.Status))
		return places
	}
	for _, r := range body.Results {
		types := r.Types
		if types == nil {
			types = []string{}
		}
		places = append(places, Place{
			ID:         r.PlaceID,
			Name:       r.Name,
			Address:    r.FormattedAddress,
			Rating:     r.Rating,
			PriceLevel: r.PriceLevel,
			Types:      types,
			Location:   r.Geometry.Location,
		})
	}
	return places
}

// SearchMovies returns the first ten TMDB matches.
func (c *Client) SearchMovies(ctx context.Context, query string) []Movie {
	params := url.Values{"api_key": {c.cfg.TMDBKey}, "query": {query}}
	var body struct {
		Results []struct {
			ID          int64   `json:"id"`
			Title       string  `json:"title"`
			Overview    string  `json:"overview"`
			ReleaseDate string  `json:"release_date"`
			VoteAverage float64 `json:"vote_average"`
			PosterPath  string  `json:"poster_path"`
		} `json:"results"`
	}
	movies := []Movie{}
	if err := c.getJSON(ctx, c.moviesURL, params, &body); err != nil {
		c.logger.Warn("movie search failed", zap.String("query", query), zap.Error(err))
		return movies
	}
	for i, r := range body.Results {
		if i == maxMovies {
			break
		}
		m := Movie{ID: r.ID, Title: r.Title, Overview: r.Overview, ReleaseDate: r.ReleaseDate, Rating: r.VoteAverage}
		if r.PosterPath != "" {
			poster := PosterURLPrefix + r.PosterPath
			m.PosterPath = &poster
		}
		movies = append(movies, m)
	}
	return movies
}

// Forecast returns the next eight three-hour slots in metric units.
func (c *Client) Forecast(ctx context.Context, lat, lon string) []Forecast {
	params := url.Values{"lat": {lat}, "lon": {lon}, "appid": {c.cfg.OpenWeatherKey}, "units": {"metric"}}
	var body struct {
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
		} `json:"list"`
	}
	forecast := []Forecast{}
	if err := c.getJSON(ctx, c.weatherURL, params, &body); err != nil {
		c.logger.Warn("weather forecast failed", zap.String("lat", lat), zap.String("lon", lon), zap.Error(err))
		return forecast
	}
	for i, item := range body.List {
		if i == maxForecasts {
			break
		}
		f := Forecast{DateTime: item.DtTxt, Temp: item.Main.Temp}
		if len(item.Weather) > 0 {
			f.Description = item.Weather[0].Description
			f.Icon = item.Weather[0].Icon
		}
		forecast = append(forecast, f)
	}
	return forecast
}
