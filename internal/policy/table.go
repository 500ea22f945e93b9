package policy

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/overseerr"
)

// ErrNotFound is returned by Lookup when no rule matches the media type and
// folder pair. Callers must handle it explicitly; the table never invents a
// default.
var ErrNotFound = errors.New("no quality rule for media type and folder")

// Rule maps a (media type, storage folder) pair to a preferred quality
// profile name. One rule corresponds to one row of the policy sheet.
type Rule struct {
	MediaType  overseerr.MediaType
	RootFolder string
	Profile    string
}

// Source produces raw policy rows, header row included.
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Table is the process-wide quality-matching table.
//
// The rule set is replaced wholesale by Refresh via an atomic pointer swap;
// concurrent readers always observe either the previous or the new complete
// snapshot, never a partial one. Consumers only get Lookup.
type Table struct {
	source   Source
	logger   zerolog.Logger
	snapshot atomic.Pointer[[]Rule]
}

// NewTable creates an empty table backed by the given row source.
func NewTable(source Source, logger zerolog.Logger) *Table {
	t := &Table{
		source: source,
		logger: logger.With().Str("component", "policy").Logger(),
	}
	empty := []Rule{}
	t.snapshot.Store(&empty)
	return t
}

// Refresh fetches the policy rows and swaps in a new snapshot.
// Row 0 is the sheet header and is skipped; rows with an empty media-type
// cell are blank separators and are skipped too. The sheet may grow or
// shrink freely between refreshes.
func (t *Table) Refresh(ctx context.Context) error {
	rows, err := t.source.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch policy rows: %w", err)
	}

	rules := make([]Rule, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 3 || row[0] == "" {
			continue
		}
		mediaType, err := overseerr.ParseMediaType(row[0])
		if err != nil {
			t.logger.Warn().Int("row", i).Str("value", row[0]).Msg("Skipping rule with unknown media type")
			continue
		}
		rules = append(rules, Rule{
			MediaType:  mediaType,
			RootFolder: row[1],
			Profile:    row[2],
		})
	}

	t.snapshot.Store(&rules)

	t.logger.Info().Int("rules", len(rules)).Msg("Quality-matching table refreshed")
	return nil
}

// Lookup returns the rule matching exactly the given media type and folder
// path, or ErrNotFound.
func (t *Table) Lookup(mediaType overseerr.MediaType, folderPath string) (Rule, error) {
	for _, rule := range *t.snapshot.Load() {
		if rule.MediaType == mediaType && rule.RootFolder == folderPath {
			return rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: (%s, %s)", ErrNotFound, mediaType, folderPath)
}

// Len returns the number of rules in the current snapshot.
func (t *Table) Len() int {
	return len(*t.snapshot.Load())
}
