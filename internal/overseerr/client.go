package overseerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/config"
)

const (
	apiBasePath  = "/api/v1"
	posterPrefix = "https://image.tmdb.org/t/p/w300_and_h450_face"

	// producerUnknown is rendered when the backend supplies no production company.
	producerUnknown = "Unknown"
)

// ErrNoService is returned when the backend has no movie- or series-management
// sub-service configured for the requested media type.
var ErrNoService = errors.New("no managed sub-service configured for media type")

// BackendError is a non-2xx or malformed response from the backend.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("overseerr API error: status %d: %s", e.Status, e.Body)
}

// Client is a typed facade over the Overseerr REST API.
//
// It is stateless: the session cookie used for request submission is obtained
// fresh for every submission and never cached, so a submission always appears
// to originate from a newly authenticated user session. Administrative calls
// use the long-lived API key instead.
type Client struct {
	httpClient *http.Client
	cfg        config.OverseerrConfig
	logger     zerolog.Logger
}

// NewClient creates a new Overseerr client.
func NewClient(cfg config.OverseerrConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		cfg:    cfg,
		logger: logger.With().Str("component", "overseerr").Logger(),
	}
}

// Search queries the backend catalog for titles matching query.
//
// Entries without a usable title or release date are dropped, and the release
// year is derived from the date's four-digit prefix. A backend error payload
// yields an empty result set, not an error: the autocomplete path treats
// "nothing found" and "backend refused the query" identically.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s%s/search?query=%s", c.cfg.BaseURL, apiBasePath, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setServiceAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil || resp.StatusCode != http.StatusOK {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("query", query).
			Msg("Search returned no usable payload")
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, entry := range response.Results {
		title := entry.Title
		if title == "" {
			title = entry.Name
		}
		releaseDate := entry.ReleaseDate
		if releaseDate == "" {
			releaseDate = entry.FirstAirDate
		}
		if title == "" || releaseDate == "" {
			continue
		}
		mediaType, err := ParseMediaType(entry.MediaType)
		if err != nil {
			continue
		}
		year := releaseDate
		if len(year) > 4 {
			year = year[:4]
		}
		results = append(results, SearchResult{
			ID:          entry.ID,
			MediaType:   mediaType,
			Title:       title,
			ReleaseDate: releaseDate,
			ReleaseYear: year,
		})
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Search completed")

	return results, nil
}

// ProfilesAndFolders returns the quality profiles and root folders of the
// sub-service managing the given media type. The backend is assumed to have
// exactly one instance per kind; none configured is ErrNoService.
func (c *Client) ProfilesAndFolders(ctx context.Context, mediaType MediaType) (*ServiceOptions, error) {
	service := mediaType.ServiceName()

	var entries []serviceEntry
	if err := c.doGet(ctx, fmt.Sprintf("/service/%s", service), &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoService, mediaType)
	}

	var options ServiceOptions
	if err := c.doGet(ctx, fmt.Sprintf("/service/%s/%d", service, entries[0].ID), &options); err != nil {
		return nil, err
	}
	return &options, nil
}

// Movie fetches and normalizes movie metadata by catalog id.
func (c *Client) Movie(ctx context.Context, id int) (*MediaDetails, error) {
	var details movieDetailsResponse
	if err := c.doGet(ctx, fmt.Sprintf("/movie/%d", id), &details); err != nil {
		return nil, err
	}
	return &MediaDetails{
		ID:          details.ID,
		Title:       details.Title,
		Overview:    details.Overview,
		ReleaseDate: details.ReleaseDate,
		PosterURL:   posterURL(details.PosterPath),
		Producer:    producerName(details.ProductionCompanies),
	}, nil
}

// Series fetches and normalizes series metadata by catalog id.
// The backend names series fields differently from movie fields
// (name/firstAirDate vs title/releaseDate); both map to the same shape here.
func (c *Client) Series(ctx context.Context, id int) (*SeriesDetails, error) {
	var details seriesDetailsResponse
	if err := c.doGet(ctx, fmt.Sprintf("/tv/%d", id), &details); err != nil {
		return nil, err
	}

	seasons := make([]Season, len(details.Seasons))
	for i, s := range details.Seasons {
		year := s.AirDate
		if len(year) > 4 {
			year = year[:4]
		}
		seasons[i] = Season{
			Index:        i,
			EpisodeCount: s.EpisodeCount,
			ReleaseYear:  year,
		}
	}

	return &SeriesDetails{
		MediaDetails: MediaDetails{
			ID:          details.ID,
			Title:       details.Name,
			Overview:    details.Overview,
			ReleaseDate: details.FirstAirDate,
			PosterURL:   posterURL(details.PosterPath),
			Producer:    producerName(details.ProductionCompanies),
		},
		Seasons: seasons,
	}, nil
}

// RequestMovie submits a movie request under a fresh session cookie.
func (c *Client) RequestMovie(ctx context.Context, mediaID int, rootFolder string, profileID int) error {
	body := requestBody{
		MediaType:  string(MediaTypeMovie),
		MediaID:    mediaID,
		TvdbID:     mediaID,
		RootFolder: rootFolder,
		ProfileID:  profileID,
	}
	return c.submitRequest(ctx, body)
}

// RequestSeries submits a series request under a fresh session cookie.
// The season selector expands to one-based season numbers: a single season,
// or 1..totalSeasons for the entire run.
func (c *Client) RequestSeries(ctx context.Context, mediaID int, rootFolder string, profileID int, selector SeasonSelector, totalSeasons int) error {
	body := requestBody{
		MediaType:  string(MediaTypeSeries),
		MediaID:    mediaID,
		TvdbID:     mediaID,
		RootFolder: rootFolder,
		ProfileID:  profileID,
		Seasons:    selector.Expand(totalSeasons),
	}
	return c.submitRequest(ctx, body)
}

// Approve approves a pending request using the administrative API key.
func (c *Client) Approve(ctx context.Context, requestID int) error {
	endpoint := fmt.Sprintf("%s%s/request/%d/approve", c.cfg.BaseURL, apiBasePath, requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setServiceAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backendError(resp)
	}

	c.logger.Info().Int("requestId", requestID).Msg("Request approved")
	return nil
}

// submitRequest authenticates a fresh local session and posts the request
// under its cookie, so the request is attributed to the configured user
// account rather than to the API key.
func (c *Client) submitRequest(ctx context.Context, body requestBody) error {
	cookie, err := c.login(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s%s/request", c.cfg.BaseURL, apiBasePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backendError(resp)
	}

	c.logger.Info().
		Str("mediaType", body.MediaType).
		Int("mediaId", body.MediaID).
		Str("rootFolder", body.RootFolder).
		Int("profileId", body.ProfileID).
		Ints("seasons", body.Seasons).
		Msg("Request submitted")

	return nil
}

// login opens a local session and returns its cookie header value.
func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login body: %w", err)
	}

	endpoint := fmt.Sprintf("%s%s/auth/local", c.cfg.BaseURL, apiBasePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", backendError(resp)
	}

	cookie := resp.Header.Get("Set-Cookie")
	if cookie == "" {
		return "", &BackendError{Status: resp.StatusCode, Body: "login response carried no session cookie"}
	}
	return cookie, nil
}

// doGet performs an API-key-authenticated GET against the versioned base path.
func (c *Client) doGet(ctx context.Context, path string, result interface{}) error {
	endpoint := c.cfg.BaseURL + apiBasePath + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setServiceAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return backendError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &BackendError{Status: resp.StatusCode, Body: "malformed JSON payload"}
	}
	return nil
}

func (c *Client) setServiceAuth(req *http.Request) {
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
}

func backendError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &BackendError{Status: resp.StatusCode, Body: string(body)}
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterPrefix + path
}

func producerName(companies []productionCompany) string {
	if len(companies) == 0 || companies[0].Name == "" {
		return producerUnknown
	}
	return companies[0].Name
}
