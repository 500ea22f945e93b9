package request

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cinequest/cinequest/internal/overseerr"
)

// The token is the only state carried between interaction round-trips: it is
// embedded in the confirm button's custom id, so it must stay well under the
// platform's 100-character component id limit. Fields are joined with a
// delimiter that cannot occur in any field value: ids are decimal integers,
// the media type is a closed enum, and the season field is decimal or one of
// two fixed sentinels.
const (
	tokenVersion   = "1"
	tokenDelimiter = ":"
	tokenArity     = 5

	seasonNoneField = "none"
	seasonAllField  = "all"
)

// ErrMalformedToken is returned when a token cannot be decoded. It is a
// user-recoverable condition: the owning interaction is simply no longer
// valid.
var ErrMalformedToken = errors.New("malformed request token")

// SeasonField is the season selection carried in a token: absent (movies),
// the entire series, or a single zero-based season index.
type SeasonField struct {
	kind  int // 0 none, 1 all, 2 index
	index int
}

// SeasonNone marks a token without a season selection (movies).
func SeasonNone() SeasonField { return SeasonField{kind: 0} }

// SeasonAll marks a token covering the entire series.
func SeasonAll() SeasonField { return SeasonField{kind: 1} }

// SeasonAt marks a token for a single zero-based season index.
func SeasonAt(i int) SeasonField { return SeasonField{kind: 2, index: i} }

// IsFinite reports whether a single season was selected.
func (s SeasonField) IsFinite() bool { return s.kind == 2 }

// Index returns the zero-based season index; only meaningful when IsFinite.
func (s SeasonField) Index() int { return s.index }

// Selector converts the field into the backend season selector. The absent
// and entire-series cases both expand to the full run, matching the command's
// behavior when the optional season argument is omitted.
func (s SeasonField) Selector() overseerr.SeasonSelector {
	if s.kind == 2 {
		return overseerr.SeasonIndex(s.index)
	}
	return overseerr.EntireSeries()
}

func (s SeasonField) encode() string {
	switch s.kind {
	case 1:
		return seasonAllField
	case 2:
		return strconv.Itoa(s.index)
	default:
		return seasonNoneField
	}
}

func decodeSeasonField(raw string) (SeasonField, error) {
	switch raw {
	case seasonNoneField:
		return SeasonNone(), nil
	case seasonAllField:
		return SeasonAll(), nil
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return SeasonField{}, ErrMalformedToken
	}
	return SeasonAt(index), nil
}

// Token is the reversible encoding of in-progress workflow state.
type Token struct {
	MediaID   int
	MediaType overseerr.MediaType
	FolderID  int
	Season    SeasonField
}

// Encode renders the token's textual form.
func (t Token) Encode() string {
	return strings.Join([]string{
		tokenVersion,
		strconv.Itoa(t.MediaID),
		string(t.MediaType),
		strconv.Itoa(t.FolderID),
		t.Season.encode(),
	}, tokenDelimiter)
}

// DecodeToken parses a token string. Any arity mismatch, unknown version,
// non-numeric id, or out-of-domain field is ErrMalformedToken; decoding never
// panics on hostile input.
func DecodeToken(raw string) (Token, error) {
	parts := strings.Split(raw, tokenDelimiter)
	if len(parts) != tokenArity {
		return Token{}, ErrMalformedToken
	}
	if parts[0] != tokenVersion {
		return Token{}, ErrMalformedToken
	}

	mediaID, err := strconv.Atoi(parts[1])
	if err != nil || mediaID < 0 {
		return Token{}, ErrMalformedToken
	}

	mediaType, err := overseerr.ParseMediaType(parts[2])
	if err != nil {
		return Token{}, ErrMalformedToken
	}

	folderID, err := strconv.Atoi(parts[3])
	if err != nil || folderID < 0 {
		return Token{}, ErrMalformedToken
	}

	season, err := decodeSeasonField(parts[4])
	if err != nil {
		return Token{}, ErrMalformedToken
	}

	return Token{
		MediaID:   mediaID,
		MediaType: mediaType,
		FolderID:  folderID,
		Season:    season,
	}, nil
}
