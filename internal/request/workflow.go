package request

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/overseerr"
	"github.com/cinequest/cinequest/internal/policy"
)

const (
	// Discord renders at most 25 autocomplete choices.
	searchOptionLimit = 25

	// Season lists are filtered by the typed input only once a series grows
	// past this threshold; shorter lists are always shown in full.
	seasonFilterThreshold = 20
	seasonOptionLimit     = 20

	// Autocomplete values pack the media id and kind into one string.
	selectionDelimiter = "_"
)

var (
	// ErrPermissionDenied is returned when a non-privileged user activates an
	// approval control.
	ErrPermissionDenied = errors.New("user is not allowed to approve requests")

	// ErrStaleSelection is returned when a previously offered choice (folder,
	// profile) no longer exists on the backend by the time it is acted on.
	ErrStaleSelection = errors.New("selection is no longer valid")
)

// Catalog is the slice of the backend client the workflow depends on.
type Catalog interface {
	Search(ctx context.Context, query string) ([]overseerr.SearchResult, error)
	ProfilesAndFolders(ctx context.Context, mediaType overseerr.MediaType) (*overseerr.ServiceOptions, error)
	Movie(ctx context.Context, id int) (*overseerr.MediaDetails, error)
	Series(ctx context.Context, id int) (*overseerr.SeriesDetails, error)
	RequestMovie(ctx context.Context, mediaID int, rootFolder string, profileID int) error
	RequestSeries(ctx context.Context, mediaID int, rootFolder string, profileID int, selector overseerr.SeasonSelector, totalSeasons int) error
	Approve(ctx context.Context, requestID int) error
}

// Policy is the quality-rule lookup consulted at submission time.
type Policy interface {
	Lookup(mediaType overseerr.MediaType, folderPath string) (policy.Rule, error)
}

// Recorder persists terminal workflow outcomes. Implementations must be safe
// to skip entirely (the history subsystem is optional).
type Recorder interface {
	Record(ctx context.Context, outcome Outcome, subject string)
}

// Option is one autocomplete choice shown to the user.
type Option struct {
	Label string
	Value string
}

// Confirmation is everything needed to render the confirm/cancel prompt.
type Confirmation struct {
	MediaType   overseerr.MediaType
	Media       overseerr.MediaDetails
	FolderPath  string
	SeasonLabel string // set only when a single season was selected
	Token       string
}

// Submission is the result of a successfully submitted request.
type Submission struct {
	MediaType overseerr.MediaType
	Title     string
}

// Workflow orchestrates the user-facing request steps. It holds no per-user
// state: everything a later step needs either lives in the token or is
// re-resolved from the backend, so concurrent workflows are fully isolated.
type Workflow struct {
	catalog        Catalog
	policy         Policy
	recorder       Recorder
	defaultProfile string
	managerUserID  string
	logger         zerolog.Logger
}

// NewWorkflow creates a request workflow. policy and recorder may be nil when
// the corresponding subsystems are disabled.
func NewWorkflow(catalog Catalog, pol Policy, recorder Recorder, defaultProfile, managerUserID string, logger zerolog.Logger) *Workflow {
	return &Workflow{
		catalog:        catalog,
		policy:         pol,
		recorder:       recorder,
		defaultProfile: defaultProfile,
		managerUserID:  managerUserID,
		logger:         logger.With().Str("component", "workflow").Logger(),
	}
}

// SearchOptions builds title autocomplete choices for the typed input,
// labeled "[kind] title (year)" and valued "<id>_<kind>".
func (w *Workflow) SearchOptions(ctx context.Context, input string) ([]Option, error) {
	results, err := w.catalog.Search(ctx, input)
	if err != nil {
		return nil, err
	}

	options := make([]Option, 0, len(results))
	for _, r := range results {
		if len(options) == searchOptionLimit {
			break
		}
		options = append(options, Option{
			Label: fmt.Sprintf("[%s] %s (%s)", r.MediaType, r.Title, r.ReleaseYear),
			Value: strconv.Itoa(r.ID) + selectionDelimiter + string(r.MediaType),
		})
	}
	return options, nil
}

// FolderOptions builds storage-folder choices for the selected title. With no
// title selected yet there is nothing to offer.
func (w *Workflow) FolderOptions(ctx context.Context, titleValue string) ([]Option, error) {
	if titleValue == "" {
		return []Option{}, nil
	}
	_, mediaType, err := parseSelection(titleValue)
	if err != nil {
		return []Option{}, nil
	}

	options, err := w.catalog.ProfilesAndFolders(ctx, mediaType)
	if err != nil {
		return nil, err
	}

	choices := make([]Option, 0, len(options.RootFolders))
	for _, folder := range options.RootFolders {
		choices = append(choices, Option{
			Label: folder.Path,
			Value: strconv.Itoa(folder.ID),
		})
	}
	return choices, nil
}

// SeasonOptions builds season choices for the selected title.
//
// Movies get a single whole-movie choice. Series get one "Season N" choice
// per season (one-based display over zero-based values) plus a trailing
// entire-series choice. Once a series reaches 20 seasons the list is
// filtered to labels containing the typed input and capped at 20 entries;
// below the threshold the full list is always shown.
func (w *Workflow) SeasonOptions(ctx context.Context, titleValue, input string) ([]Option, error) {
	if titleValue == "" {
		return []Option{}, nil
	}
	id, mediaType, err := parseSelection(titleValue)
	if err != nil {
		return []Option{}, nil
	}

	if mediaType == overseerr.MediaTypeMovie {
		return []Option{{Label: "The whole movie", Value: seasonAllField}}, nil
	}

	series, err := w.catalog.Series(ctx, id)
	if err != nil {
		return nil, err
	}

	options := make([]Option, 0, len(series.Seasons)+1)
	for i := range series.Seasons {
		options = append(options, Option{
			Label: fmt.Sprintf("Season %d", i+1),
			Value: strconv.Itoa(i),
		})
	}
	if len(series.Seasons) >= seasonFilterThreshold {
		filtered := make([]Option, 0, seasonOptionLimit)
		for _, option := range options {
			if len(filtered) == seasonOptionLimit {
				break
			}
			if strings.Contains(option.Label, input) {
				filtered = append(filtered, option)
			}
		}
		options = filtered
	}
	options = append(options, Option{Label: "The entire series", Value: seasonAllField})
	return options, nil
}

// Confirmation re-resolves the authoritative metadata for the submitted
// command arguments and packs them into a token for the confirm control.
// Client-supplied labels are never trusted; only ids survive into the token.
func (w *Workflow) Confirmation(ctx context.Context, titleValue, folderValue, seasonValue string) (*Confirmation, error) {
	id, mediaType, err := parseSelection(titleValue)
	if err != nil {
		return nil, err
	}
	folderID, err := strconv.Atoi(folderValue)
	if err != nil {
		return nil, fmt.Errorf("invalid folder selection %q", folderValue)
	}

	options, err := w.catalog.ProfilesAndFolders(ctx, mediaType)
	if err != nil {
		return nil, err
	}
	folderPath, ok := folderByID(options, folderID)
	if !ok {
		return nil, fmt.Errorf("%w: folder %d", ErrStaleSelection, folderID)
	}

	confirmation := &Confirmation{
		MediaType:  mediaType,
		FolderPath: folderPath,
	}

	season := SeasonNone()
	if mediaType == overseerr.MediaTypeSeries {
		series, err := w.catalog.Series(ctx, id)
		if err != nil {
			return nil, err
		}
		confirmation.Media = series.MediaDetails

		season = parseSeasonValue(seasonValue)
		if season.IsFinite() {
			if season.Index() >= len(series.Seasons) {
				return nil, fmt.Errorf("%w: season %d", ErrStaleSelection, season.Index()+1)
			}
			confirmation.SeasonLabel = fmt.Sprintf("Season %d", season.Index()+1)
		}
	} else {
		movie, err := w.catalog.Movie(ctx, id)
		if err != nil {
			return nil, err
		}
		confirmation.Media = *movie
	}

	confirmation.Token = Token{
		MediaID:   id,
		MediaType: mediaType,
		FolderID:  folderID,
		Season:    season,
	}.Encode()

	return confirmation, nil
}

// Submit consumes a confirm token: decode, re-resolve the authoritative
// folder and quality profile, re-resolve metadata, and submit the request to
// the backend. Every lookup is fresh; nothing from the confirmation step is
// trusted except the ids in the token.
func (w *Workflow) Submit(ctx context.Context, rawToken string) (*Submission, error) {
	token, err := DecodeToken(rawToken)
	if err != nil {
		return nil, err
	}

	trace := uuid.NewString()
	logger := w.logger.With().Str("trace", trace).Int("mediaId", token.MediaID).Logger()

	options, err := w.catalog.ProfilesAndFolders(ctx, token.MediaType)
	if err != nil {
		return nil, err
	}
	folderPath, ok := folderByID(options, token.FolderID)
	if !ok {
		return nil, fmt.Errorf("%w: folder %d", ErrStaleSelection, token.FolderID)
	}

	profileID, err := w.resolveProfileID(options, token.MediaType, folderPath)
	if err != nil {
		return nil, err
	}

	var submission *Submission
	if token.MediaType == overseerr.MediaTypeSeries {
		series, err := w.catalog.Series(ctx, token.MediaID)
		if err != nil {
			return nil, err
		}
		err = w.catalog.RequestSeries(ctx, token.MediaID, folderPath, profileID, token.Season.Selector(), len(series.Seasons))
		if err != nil {
			return nil, err
		}
		submission = &Submission{MediaType: token.MediaType, Title: series.Title}
	} else {
		movie, err := w.catalog.Movie(ctx, token.MediaID)
		if err != nil {
			return nil, err
		}
		if err := w.catalog.RequestMovie(ctx, token.MediaID, folderPath, profileID); err != nil {
			return nil, err
		}
		submission = &Submission{MediaType: token.MediaType, Title: movie.Title}
	}

	logger.Info().
		Str("mediaType", string(submission.MediaType)).
		Str("title", submission.Title).
		Str("rootFolder", folderPath).
		Int("profileId", profileID).
		Msg("Request submitted")

	if w.recorder != nil {
		w.recorder.Record(ctx, OutcomeSubmitted, submission.Title)
	}
	return submission, nil
}

// Approve greenlights a pending backend request. Only the configured manager
// may approve; anyone else is denied before the backend is contacted.
func (w *Workflow) Approve(ctx context.Context, actorUserID string, requestID int) error {
	if w.managerUserID == "" || actorUserID != w.managerUserID {
		w.logger.Warn().
			Str("user", actorUserID).
			Int("requestId", requestID).
			Msg("Approval attempt denied")
		if w.recorder != nil {
			w.recorder.Record(ctx, OutcomeDenied, fmt.Sprintf("request #%d", requestID))
		}
		return ErrPermissionDenied
	}

	if err := w.catalog.Approve(ctx, requestID); err != nil {
		return err
	}

	if w.recorder != nil {
		w.recorder.Record(ctx, OutcomeApproved, fmt.Sprintf("request #%d", requestID))
	}
	return nil
}

// RecordCancelled notes a cancelled workflow in the history, if enabled.
func (w *Workflow) RecordCancelled(ctx context.Context, subject string) {
	if w.recorder != nil {
		w.recorder.Record(ctx, OutcomeCancelled, subject)
	}
}

// resolveProfileID maps the matched quality rule (or the configured default)
// to a profile id offered by the sub-service. A missing rule without a
// configured default fails the request: an undefined profile id is never
// submitted.
func (w *Workflow) resolveProfileID(options *overseerr.ServiceOptions, mediaType overseerr.MediaType, folderPath string) (int, error) {
	profileName := w.defaultProfile
	if w.policy != nil {
		rule, err := w.policy.Lookup(mediaType, folderPath)
		switch {
		case err == nil:
			profileName = rule.Profile
		case errors.Is(err, policy.ErrNotFound) && w.defaultProfile != "":
			w.logger.Warn().
				Str("mediaType", string(mediaType)).
				Str("rootFolder", folderPath).
				Str("fallback", w.defaultProfile).
				Msg("No quality rule matched, using default profile")
		default:
			return 0, err
		}
	}
	if profileName == "" {
		return 0, fmt.Errorf("%w: (%s, %s)", policy.ErrNotFound, mediaType, folderPath)
	}

	for _, profile := range options.Profiles {
		if profile.Name == profileName {
			return profile.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: quality profile %q not offered by backend", ErrStaleSelection, profileName)
}

func parseSelection(value string) (int, overseerr.MediaType, error) {
	parts := strings.SplitN(value, selectionDelimiter, 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid title selection %q", value)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid title selection %q", value)
	}
	mediaType, err := overseerr.ParseMediaType(parts[1])
	if err != nil {
		return 0, "", err
	}
	return id, mediaType, nil
}

func parseSeasonValue(value string) SeasonField {
	if index, err := strconv.Atoi(value); err == nil && index >= 0 {
		return SeasonAt(index)
	}
	// Omitted or "all" both mean the entire run.
	return SeasonAll()
}

func folderByID(options *overseerr.ServiceOptions, id int) (string, bool) {
	for _, folder := range options.RootFolders {
		if folder.ID == id {
			return folder.Path, true
		}
	}
	return "", false
}
