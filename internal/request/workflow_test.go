package request

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinequest/cinequest/internal/overseerr"
	"github.com/cinequest/cinequest/internal/policy"
)

// stubCatalog is a scripted backend for workflow tests. Zero-value fields
// make the corresponding call fail loudly.
type stubCatalog struct {
	searchResults []overseerr.SearchResult
	options       *overseerr.ServiceOptions
	movie         *overseerr.MediaDetails
	series        *overseerr.SeriesDetails

	requestMovieCalls  int
	requestSeriesCalls int
	approveCalls       int

	lastRootFolder string
	lastProfileID  int
	lastSelector   overseerr.SeasonSelector
	lastTotal      int
}

func (c *stubCatalog) Search(_ context.Context, _ string) ([]overseerr.SearchResult, error) {
	return c.searchResults, nil
}

func (c *stubCatalog) ProfilesAndFolders(_ context.Context, _ overseerr.MediaType) (*overseerr.ServiceOptions, error) {
	if c.options == nil {
		return nil, errors.New("no options scripted")
	}
	return c.options, nil
}

func (c *stubCatalog) Movie(_ context.Context, _ int) (*overseerr.MediaDetails, error) {
	if c.movie == nil {
		return nil, errors.New("no movie scripted")
	}
	return c.movie, nil
}

func (c *stubCatalog) Series(_ context.Context, _ int) (*overseerr.SeriesDetails, error) {
	if c.series == nil {
		return nil, errors.New("no series scripted")
	}
	return c.series, nil
}

func (c *stubCatalog) RequestMovie(_ context.Context, _ int, rootFolder string, profileID int) error {
	c.requestMovieCalls++
	c.lastRootFolder = rootFolder
	c.lastProfileID = profileID
	return nil
}

func (c *stubCatalog) RequestSeries(_ context.Context, _ int, rootFolder string, profileID int, selector overseerr.SeasonSelector, totalSeasons int) error {
	c.requestSeriesCalls++
	c.lastRootFolder = rootFolder
	c.lastProfileID = profileID
	c.lastSelector = selector
	c.lastTotal = totalSeasons
	return nil
}

func (c *stubCatalog) Approve(_ context.Context, _ int) error {
	c.approveCalls++
	return nil
}

// stubPolicy resolves every lookup to one fixed rule, or misses entirely.
type stubPolicy struct {
	rule *policy.Rule
}

func (p *stubPolicy) Lookup(mediaType overseerr.MediaType, folderPath string) (policy.Rule, error) {
	if p.rule == nil {
		return policy.Rule{}, fmt.Errorf("%w: (%s, %s)", policy.ErrNotFound, mediaType, folderPath)
	}
	return *p.rule, nil
}

type recordedOutcome struct {
	outcome Outcome
	subject string
}

type stubRecorder struct {
	records []recordedOutcome
}

func (r *stubRecorder) Record(_ context.Context, outcome Outcome, subject string) {
	r.records = append(r.records, recordedOutcome{outcome, subject})
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func seriesWithSeasons(n int) *overseerr.SeriesDetails {
	seasons := make([]overseerr.Season, n)
	for i := range seasons {
		seasons[i] = overseerr.Season{Index: i, EpisodeCount: 10}
	}
	return &overseerr.SeriesDetails{
		MediaDetails: overseerr.MediaDetails{ID: 1399, Title: "Game of Thrones"},
		Seasons:      seasons,
	}
}

func defaultOptions() *overseerr.ServiceOptions {
	return &overseerr.ServiceOptions{
		Profiles: []overseerr.QualityProfile{
			{ID: 4, Name: "HD-1080p"},
			{ID: 9, Name: "Ultra-HD"},
		},
		RootFolders: []overseerr.RootFolder{
			{ID: 7, Path: "/media/movies"},
			{ID: 8, Path: "/media/anime"},
		},
	}
}

func TestWorkflow_SearchOptions(t *testing.T) {
	catalog := &stubCatalog{
		searchResults: []overseerr.SearchResult{
			{ID: 438631, MediaType: overseerr.MediaTypeMovie, Title: "Dune", ReleaseYear: "2021"},
			{ID: 1399, MediaType: overseerr.MediaTypeSeries, Title: "Game of Thrones", ReleaseYear: "2011"},
		},
	}
	w := NewWorkflow(catalog, nil, nil, "", "", testLogger())

	options, err := w.SearchOptions(context.Background(), "dune")
	if err != nil {
		t.Fatalf("SearchOptions() error = %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("SearchOptions() returned %d options, want 2", len(options))
	}
	if options[0].Label != "[movie] Dune (2021)" {
		t.Errorf("label = %q, want %q", options[0].Label, "[movie] Dune (2021)")
	}
	if options[0].Value != "438631_movie" {
		t.Errorf("value = %q, want %q", options[0].Value, "438631_movie")
	}
	if options[1].Value != "1399_tv" {
		t.Errorf("value = %q, want %q", options[1].Value, "1399_tv")
	}
}

func TestWorkflow_SearchOptions_CapsAtChoiceLimit(t *testing.T) {
	var results []overseerr.SearchResult
	for i := 0; i < 40; i++ {
		results = append(results, overseerr.SearchResult{
			ID: i, MediaType: overseerr.MediaTypeMovie, Title: "Movie", ReleaseYear: "2020",
		})
	}
	w := NewWorkflow(&stubCatalog{searchResults: results}, nil, nil, "", "", testLogger())

	options, err := w.SearchOptions(context.Background(), "movie")
	if err != nil {
		t.Fatalf("SearchOptions() error = %v", err)
	}
	if len(options) != 25 {
		t.Errorf("SearchOptions() returned %d options, want 25", len(options))
	}
}

func TestWorkflow_FolderOptions(t *testing.T) {
	w := NewWorkflow(&stubCatalog{options: defaultOptions()}, nil, nil, "", "", testLogger())

	options, err := w.FolderOptions(context.Background(), "438631_movie")
	if err != nil {
		t.Fatalf("FolderOptions() error = %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("FolderOptions() returned %d options, want 2", len(options))
	}
	if options[0].Label != "/media/movies" || options[0].Value != "7" {
		t.Errorf("option = %+v, want /media/movies valued 7", options[0])
	}
}

func TestWorkflow_FolderOptions_NoTitleSelected(t *testing.T) {
	w := NewWorkflow(&stubCatalog{}, nil, nil, "", "", testLogger())

	options, err := w.FolderOptions(context.Background(), "")
	if err != nil {
		t.Fatalf("FolderOptions() error = %v", err)
	}
	if len(options) != 0 {
		t.Errorf("FolderOptions() returned %d options, want 0", len(options))
	}
}

func TestWorkflow_SeasonOptions_Movie(t *testing.T) {
	w := NewWorkflow(&stubCatalog{}, nil, nil, "", "", testLogger())

	options, err := w.SeasonOptions(context.Background(), "438631_movie", "")
	if err != nil {
		t.Fatalf("SeasonOptions() error = %v", err)
	}
	if len(options) != 1 {
		t.Fatalf("SeasonOptions() returned %d options, want 1", len(options))
	}
	if options[0].Label != "The whole movie" || options[0].Value != "all" {
		t.Errorf("option = %+v, want whole-movie choice", options[0])
	}
}

func TestWorkflow_SeasonOptions_ShortSeriesUnfiltered(t *testing.T) {
	w := NewWorkflow(&stubCatalog{series: seriesWithSeasons(8)}, nil, nil, "", "", testLogger())

	// Typed input must not filter below the threshold.
	options, err := w.SeasonOptions(context.Background(), "1399_tv", "3")
	if err != nil {
		t.Fatalf("SeasonOptions() error = %v", err)
	}
	if len(options) != 9 {
		t.Fatalf("SeasonOptions() returned %d options, want 8 seasons + entire series", len(options))
	}
	if options[0].Label != "Season 1" || options[0].Value != "0" {
		t.Errorf("first option = %+v, want Season 1 valued 0", options[0])
	}
	if options[7].Label != "Season 8" || options[7].Value != "7" {
		t.Errorf("last season option = %+v, want Season 8 valued 7", options[7])
	}
	last := options[len(options)-1]
	if last.Label != "The entire series" || last.Value != "all" {
		t.Errorf("trailing option = %+v, want entire-series choice", last)
	}
}

func TestWorkflow_SeasonOptions_LongSeriesFiltered(t *testing.T) {
	w := NewWorkflow(&stubCatalog{series: seriesWithSeasons(35)}, nil, nil, "", "", testLogger())

	options, err := w.SeasonOptions(context.Background(), "1399_tv", "Season 3")
	if err != nil {
		t.Fatalf("SeasonOptions() error = %v", err)
	}
	// Season 3, Season 30..35, plus the entire-series choice.
	if len(options) != 8 {
		t.Fatalf("SeasonOptions() returned %d options, want 8", len(options))
	}
	for _, option := range options[:len(options)-1] {
		if option.Label != "Season 3" && len(option.Label) != len("Season 30") {
			t.Errorf("unexpected filtered option %+v", option)
		}
	}
}

func TestWorkflow_SeasonOptions_LongSeriesCapped(t *testing.T) {
	w := NewWorkflow(&stubCatalog{series: seriesWithSeasons(40)}, nil, nil, "", "", testLogger())

	// Empty input matches everything; the list must still be capped.
	options, err := w.SeasonOptions(context.Background(), "1399_tv", "")
	if err != nil {
		t.Fatalf("SeasonOptions() error = %v", err)
	}
	if len(options) != 21 {
		t.Fatalf("SeasonOptions() returned %d options, want 20 + entire series", len(options))
	}
}

func TestWorkflow_Confirmation_Movie(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		movie:   &overseerr.MediaDetails{ID: 438631, Title: "Dune", ReleaseDate: "2021-09-15"},
	}
	w := NewWorkflow(catalog, nil, nil, "", "", testLogger())

	confirmation, err := w.Confirmation(context.Background(), "438631_movie", "7", "all")
	if err != nil {
		t.Fatalf("Confirmation() error = %v", err)
	}
	if confirmation.MediaType != overseerr.MediaTypeMovie {
		t.Errorf("MediaType = %q, want movie", confirmation.MediaType)
	}
	if confirmation.Media.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", confirmation.Media.Title)
	}
	if confirmation.FolderPath != "/media/movies" {
		t.Errorf("FolderPath = %q, want /media/movies", confirmation.FolderPath)
	}
	if confirmation.SeasonLabel != "" {
		t.Errorf("SeasonLabel = %q, want empty for a movie", confirmation.SeasonLabel)
	}

	token, err := DecodeToken(confirmation.Token)
	if err != nil {
		t.Fatalf("DecodeToken(%q) error = %v", confirmation.Token, err)
	}
	if token.MediaID != 438631 || token.FolderID != 7 {
		t.Errorf("token = %+v, want media 438631 folder 7", token)
	}
}

func TestWorkflow_Confirmation_SeriesSingleSeason(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		series:  seriesWithSeasons(8),
	}
	w := NewWorkflow(catalog, nil, nil, "", "", testLogger())

	confirmation, err := w.Confirmation(context.Background(), "1399_tv", "8", "4")
	if err != nil {
		t.Fatalf("Confirmation() error = %v", err)
	}
	if confirmation.SeasonLabel != "Season 5" {
		t.Errorf("SeasonLabel = %q, want Season 5 for zero-based index 4", confirmation.SeasonLabel)
	}

	token, err := DecodeToken(confirmation.Token)
	if err != nil {
		t.Fatalf("DecodeToken() error = %v", err)
	}
	if !token.Season.IsFinite() || token.Season.Index() != 4 {
		t.Errorf("token season = %+v, want finite index 4", token.Season)
	}
}

func TestWorkflow_Confirmation_SeasonOutOfRange(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		series:  seriesWithSeasons(3),
	}
	w := NewWorkflow(catalog, nil, nil, "", "", testLogger())

	_, err := w.Confirmation(context.Background(), "1399_tv", "8", "5")
	if !errors.Is(err, ErrStaleSelection) {
		t.Errorf("Confirmation() error = %v, want ErrStaleSelection", err)
	}
}

func TestWorkflow_Confirmation_StaleFolder(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		movie:   &overseerr.MediaDetails{ID: 438631, Title: "Dune"},
	}
	w := NewWorkflow(catalog, nil, nil, "", "", testLogger())

	_, err := w.Confirmation(context.Background(), "438631_movie", "99", "all")
	if !errors.Is(err, ErrStaleSelection) {
		t.Errorf("Confirmation() error = %v, want ErrStaleSelection", err)
	}
}

func TestWorkflow_Submit_Movie(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		movie:   &overseerr.MediaDetails{ID: 438631, Title: "Dune"},
	}
	rule := &policy.Rule{MediaType: overseerr.MediaTypeMovie, RootFolder: "/media/movies", Profile: "Ultra-HD"}
	recorder := &stubRecorder{}
	w := NewWorkflow(catalog, &stubPolicy{rule: rule}, recorder, "", "", testLogger())

	token := Token{MediaID: 438631, MediaType: overseerr.MediaTypeMovie, FolderID: 7, Season: SeasonNone()}.Encode()
	submission, err := w.Submit(context.Background(), token)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submission.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", submission.Title)
	}
	if catalog.requestMovieCalls != 1 {
		t.Errorf("RequestMovie calls = %d, want 1", catalog.requestMovieCalls)
	}
	if catalog.lastRootFolder != "/media/movies" {
		t.Errorf("rootFolder = %q, want /media/movies", catalog.lastRootFolder)
	}
	if catalog.lastProfileID != 9 {
		t.Errorf("profileID = %d, want 9 (Ultra-HD)", catalog.lastProfileID)
	}
	if len(recorder.records) != 1 || recorder.records[0].outcome != OutcomeSubmitted {
		t.Errorf("records = %+v, want one submitted outcome", recorder.records)
	}
}

func TestWorkflow_Submit_SeriesEntireRun(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		series:  seriesWithSeasons(8),
	}
	w := NewWorkflow(catalog, nil, nil, "HD-1080p", "", testLogger())

	token := Token{MediaID: 1399, MediaType: overseerr.MediaTypeSeries, FolderID: 8, Season: SeasonAll()}.Encode()
	_, err := w.Submit(context.Background(), token)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if catalog.requestSeriesCalls != 1 {
		t.Fatalf("RequestSeries calls = %d, want 1", catalog.requestSeriesCalls)
	}
	if !catalog.lastSelector.IsEntireSeries() {
		t.Error("selector should cover the entire series")
	}
	if catalog.lastTotal != 8 {
		t.Errorf("totalSeasons = %d, want 8", catalog.lastTotal)
	}
	if catalog.lastProfileID != 4 {
		t.Errorf("profileID = %d, want 4 (default HD-1080p)", catalog.lastProfileID)
	}
}

func TestWorkflow_Submit_MalformedToken(t *testing.T) {
	catalog := &stubCatalog{}
	w := NewWorkflow(catalog, nil, nil, "", "", testLogger())

	_, err := w.Submit(context.Background(), "not:a:token")
	if !errors.Is(err, ErrMalformedToken) {
		t.Errorf("Submit() error = %v, want ErrMalformedToken", err)
	}
	if catalog.requestMovieCalls+catalog.requestSeriesCalls != 0 {
		t.Error("no request must reach the backend for a malformed token")
	}
}

func TestWorkflow_Submit_PolicyMissWithoutDefault(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		movie:   &overseerr.MediaDetails{ID: 438631, Title: "Dune"},
	}
	w := NewWorkflow(catalog, &stubPolicy{}, nil, "", "", testLogger())

	token := Token{MediaID: 438631, MediaType: overseerr.MediaTypeMovie, FolderID: 7, Season: SeasonNone()}.Encode()
	_, err := w.Submit(context.Background(), token)
	if !errors.Is(err, policy.ErrNotFound) {
		t.Errorf("Submit() error = %v, want policy.ErrNotFound", err)
	}
	if catalog.requestMovieCalls != 0 {
		t.Error("no request must be submitted with an unresolved profile")
	}
}

func TestWorkflow_Submit_PolicyMissFallsBackToDefault(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		movie:   &overseerr.MediaDetails{ID: 438631, Title: "Dune"},
	}
	w := NewWorkflow(catalog, &stubPolicy{}, nil, "HD-1080p", "", testLogger())

	token := Token{MediaID: 438631, MediaType: overseerr.MediaTypeMovie, FolderID: 7, Season: SeasonNone()}.Encode()
	_, err := w.Submit(context.Background(), token)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if catalog.lastProfileID != 4 {
		t.Errorf("profileID = %d, want 4 (HD-1080p)", catalog.lastProfileID)
	}
}

func TestWorkflow_Submit_ProfileNotOffered(t *testing.T) {
	catalog := &stubCatalog{
		options: defaultOptions(),
		movie:   &overseerr.MediaDetails{ID: 438631, Title: "Dune"},
	}
	w := NewWorkflow(catalog, nil, nil, "SD-480p", "", testLogger())

	token := Token{MediaID: 438631, MediaType: overseerr.MediaTypeMovie, FolderID: 7, Season: SeasonNone()}.Encode()
	_, err := w.Submit(context.Background(), token)
	if !errors.Is(err, ErrStaleSelection) {
		t.Errorf("Submit() error = %v, want ErrStaleSelection", err)
	}
}

func TestWorkflow_Approve_Gating(t *testing.T) {
	tests := []struct {
		name      string
		manager   string
		actor     string
		wantErr   error
		wantCalls int
	}{
		{"manager approves", "123", "123", nil, 1},
		{"other user denied", "123", "456", ErrPermissionDenied, 0},
		{"no manager configured denies everyone", "", "123", ErrPermissionDenied, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &stubCatalog{}
			w := NewWorkflow(catalog, nil, nil, "", tt.manager, testLogger())

			err := w.Approve(context.Background(), tt.actor, 42)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Approve() error = %v, want %v", err, tt.wantErr)
			}
			if catalog.approveCalls != tt.wantCalls {
				t.Errorf("Approve backend calls = %d, want %d", catalog.approveCalls, tt.wantCalls)
			}
		})
	}
}

func TestWorkflow_RecordCancelled(t *testing.T) {
	recorder := &stubRecorder{}
	w := NewWorkflow(&stubCatalog{}, nil, recorder, "", "", testLogger())

	w.RecordCancelled(context.Background(), "Dune")
	if len(recorder.records) != 1 {
		t.Fatalf("records = %d, want 1", len(recorder.records))
	}
	if recorder.records[0].outcome != OutcomeCancelled || recorder.records[0].subject != "Dune" {
		t.Errorf("record = %+v, want cancelled Dune", recorder.records[0])
	}

	// A nil recorder must be a no-op, not a panic.
	w = NewWorkflow(&stubCatalog{}, nil, nil, "", "", testLogger())
	w.RecordCancelled(context.Background(), "Dune")
}

func TestParseSeasonValue(t *testing.T) {
	if field := parseSeasonValue("3"); !field.IsFinite() || field.Index() != 3 {
		t.Errorf("parseSeasonValue(3) = %+v, want finite index 3", field)
	}
	for _, raw := range []string{"", "all", "-1", "x"} {
		field := parseSeasonValue(raw)
		if field.IsFinite() {
			t.Errorf("parseSeasonValue(%q) = %+v, want entire run", raw, field)
		}
	}
}

func TestParseSelection(t *testing.T) {
	id, mediaType, err := parseSelection("438631_movie")
	if err != nil || id != 438631 || mediaType != overseerr.MediaTypeMovie {
		t.Errorf("parseSelection() = (%d, %q, %v)", id, mediaType, err)
	}

	for _, raw := range []string{"", "438631", "x_movie", "438631_book", "_"} {
		if _, _, err := parseSelection(raw); err == nil {
			t.Errorf("parseSelection(%q) should fail", raw)
		}
	}

	// Round-trips through the value format SearchOptions produces.
	value := strconv.Itoa(1399) + "_" + string(overseerr.MediaTypeSeries)
	id, mediaType, err = parseSelection(value)
	if err != nil || id != 1399 || mediaType != overseerr.MediaTypeSeries {
		t.Errorf("parseSelection(%q) = (%d, %q, %v)", value, id, mediaType, err)
	}
}
