package overseerr

import "fmt"

// MediaType distinguishes the two kinds of requestable media.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "tv"
)

// ParseMediaType validates a media type string from an external source.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaTypeMovie, MediaTypeSeries:
		return MediaType(s), nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

// ServiceName returns the backend sub-service queried for this media type.
func (m MediaType) ServiceName() string {
	if m == MediaTypeSeries {
		return "sonarr"
	}
	return "radarr"
}

// SearchResult is a normalized entry from the backend search endpoint.
// Movie and series field-name differences are resolved at the client boundary.
type SearchResult struct {
	ID          int
	MediaType   MediaType
	Title       string
	ReleaseDate string
	ReleaseYear string
}

// QualityProfile is a quality profile offered by a backend sub-service.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a storage folder offered by a backend sub-service.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// ServiceOptions holds the profiles and folders of one sub-service.
type ServiceOptions struct {
	Profiles    []QualityProfile `json:"profiles"`
	RootFolders []RootFolder     `json:"rootFolders"`
}

// MediaDetails is normalized movie or series metadata.
type MediaDetails struct {
	ID          int
	Title       string
	Overview    string
	ReleaseDate string
	PosterURL   string
	Producer    string
}

// Season is one season of a series, in airing order.
// Index is zero-based; season numbers on the wire are one-based.
type Season struct {
	Index        int
	EpisodeCount int
	ReleaseYear  string
}

// SeriesDetails is normalized series metadata including its seasons.
type SeriesDetails struct {
	MediaDetails
	Seasons []Season
}

// SeasonSelector designates either one season of a series or the entire run.
type SeasonSelector struct {
	entire bool
	index  int
}

// EntireSeries returns a selector covering every season.
func EntireSeries() SeasonSelector {
	return SeasonSelector{entire: true}
}

// SeasonIndex returns a selector for a single zero-based season index.
func SeasonIndex(i int) SeasonSelector {
	return SeasonSelector{index: i}
}

// IsEntireSeries reports whether the selector covers the whole run.
func (s SeasonSelector) IsEntireSeries() bool {
	return s.entire
}

// Index returns the zero-based season index. Only meaningful when
// IsEntireSeries is false.
func (s SeasonSelector) Index() int {
	return s.index
}

// Expand converts the selector into the one-based season numbers the
// backend expects: a single [index+1], or 1..total for the entire run.
func (s SeasonSelector) Expand(total int) []int {
	if !s.entire {
		return []int{s.index + 1}
	}
	seasons := make([]int, total)
	for i := range seasons {
		seasons[i] = i + 1
	}
	return seasons
}

// searchResponse is the raw search payload. Movies carry title/releaseDate,
// series carry name/firstAirDate; both shapes land in the same struct.
type searchResponse struct {
	Results []searchEntry `json:"results"`
}

type searchEntry struct {
	ID           int    `json:"id"`
	MediaType    string `json:"mediaType"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"releaseDate"`
	FirstAirDate string `json:"firstAirDate"`
}

type serviceEntry struct {
	ID int `json:"id"`
}

type productionCompany struct {
	Name string `json:"name"`
}

type movieDetailsResponse struct {
	ID                  int                 `json:"id"`
	Title               string              `json:"title"`
	Overview            string              `json:"overview"`
	ReleaseDate         string              `json:"releaseDate"`
	PosterPath          string              `json:"posterPath"`
	ProductionCompanies []productionCompany `json:"productionCompanies"`
}

type seriesDetailsResponse struct {
	ID                  int                 `json:"id"`
	Name                string              `json:"name"`
	Overview            string              `json:"overview"`
	FirstAirDate        string              `json:"firstAirDate"`
	PosterPath          string              `json:"posterPath"`
	ProductionCompanies []productionCompany `json:"productionCompanies"`
	Seasons             []seasonEntry       `json:"seasons"`
}

type seasonEntry struct {
	SeasonNumber int    `json:"seasonNumber"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate"`
}

type requestBody struct {
	MediaType  string `json:"mediaType"`
	MediaID    int    `json:"mediaId"`
	TvdbID     int    `json:"tvdbId"`
	Is4K       bool   `json:"is4k"`
	ServerID   int    `json:"serverId"`
	RootFolder string `json:"rootFolder"`
	ProfileID  int    `json:"profileId"`
	UserID     int    `json:"userId"`
	Seasons    []int  `json:"seasons,omitempty"`
}
