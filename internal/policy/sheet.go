package policy

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SheetSource fetches policy rows from a spreadsheet published as CSV
// (e.g. a Google Sheets export URL ending in /export?format=csv).
type SheetSource struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewSheetSource creates a source reading from the given CSV URL.
func NewSheetSource(url string, logger zerolog.Logger) *SheetSource {
	return &SheetSource{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "policy-sheet").Logger(),
	}
}

// Rows downloads and parses the sheet. Rows may have ragged lengths; the
// caller decides which rows are usable.
func (s *SheetSource) Rows(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sheet fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet CSV: %w", err)
	}

	s.logger.Debug().Int("rows", len(rows)).Msg("Fetched policy sheet")
	return rows, nil
}
