package scoreboard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Envelope is the websocket frame: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SetGames is the pair of games-won counters for one set.
type SetGames struct {
	Team1 int `json:"team1_games"`
	Team2 int `json:"team2_games"`
}

// SetLine is one row of the scoreboard's set table.
type SetLine struct {
	Set   int `json:"set"`
	Team1 int `json:"team1_games"`
	Team2 int `json:"team2_games"`
}

// MatchSettings are the immutable-ish fields supplied when a match is
// created (or linked onto a TV session).
type MatchSettings struct {
	Team1Name    string   `json:"team1_name"`
	Team2Name    string   `json:"team2_name"`
	Team1Players []string `json:"team1_players"`
	Team2Players []string `json:"team2_players"`
	BestOfSets   int      `json:"best_of_sets"`
	CourtNumber  string   `json:"court_number"`
}

// MatchUpdate is a partial update from the producer. Every field is
// optional: nil means "leave the stored value alone". Empty string is an
// explicit value and overwrites.
type MatchUpdate struct {
	Team1Name    *string
	Team2Name    *string
	Team1Players *[]string
	Team2Players *[]string

	// Raw point counters for the current game. Kept as strings until
	// broadcast time; DisplayScore does the conversion.
	Team1GameScore *string
	Team2GameScore *string

	// Set index -> games-won pair. Both counters for an index land
	// together or not at all.
	Sets map[int]SetGames

	CurrentSet      *int
	IsMatchFinished *bool
	WinningTeam     *string
	CourtNumber     *string
}

// FieldError reports a single malformed field in an update. The rest of
// the update still applies.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// MatchPayload is the display-ready state sent to TVs, both as the
// websocket push and as the match-status snapshot. Game scores are already
// converted; raw counters never leave the engine.
type MatchPayload struct {
	MatchID         string    `json:"match_id"`
	Team1Name       string    `json:"team1_name"`
	Team2Name       string    `json:"team2_name"`
	Team1Players    []string  `json:"team1_players,omitempty"`
	Team2Players    []string  `json:"team2_players,omitempty"`
	Team1GameScore  string    `json:"team1_game_score"`
	Team2GameScore  string    `json:"team2_game_score"`
	BestOfSets      int       `json:"best_of_sets"`
	Sets            []SetLine `json:"sets"`
	CurrentSet      int       `json:"current_set"`
	IsMatchFinished bool      `json:"is_match_finished"`
	WinningTeam     string    `json:"winning_team,omitempty"`
	CourtNumber     string    `json:"court_number,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
}

// ParseUpdate decodes a producer's JSON body into a MatchUpdate. Fields
// are validated one by one: a malformed field is reported by name and
// skipped, everything that did parse is kept. Unknown keys are ignored so
// old app versions keep working.
func ParseUpdate(data []byte) (MatchUpdate, []FieldError, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return MatchUpdate{}, nil, fmt.Errorf("update body: %w", err)
	}

	var upd MatchUpdate
	var errs []FieldError

	bad := func(field, reason string) {
		errs = append(errs, FieldError{Field: field, Reason: reason})
	}

	for key, val := range raw {
		switch key {
		case "team1_name":
			parseString(val, &upd.Team1Name, key, bad)
		case "team2_name":
			parseString(val, &upd.Team2Name, key, bad)
		case "team1_players":
			parsePlayers(val, &upd.Team1Players, key, bad)
		case "team2_players":
			parsePlayers(val, &upd.Team2Players, key, bad)
		case "team1_game_score":
			parseScalar(val, &upd.Team1GameScore, key, bad)
		case "team2_game_score":
			parseScalar(val, &upd.Team2GameScore, key, bad)
		case "current_set":
			var n int
			if err := json.Unmarshal(val, &n); err != nil {
				bad(key, "expected an integer")
				continue
			}
			upd.CurrentSet = &n
		case "is_match_finished":
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				bad(key, "expected a boolean")
				continue
			}
			upd.IsMatchFinished = &b
		case "winning_team":
			parseScalar(val, &upd.WinningTeam, key, bad)
		case "court_number":
			parseScalar(val, &upd.CourtNumber, key, bad)
		default:
			if idx, ok := setGamesIndex(key); ok {
				var pair []int
				if err := json.Unmarshal(val, &pair); err != nil || len(pair) != 2 {
					bad(key, "expected a [team1, team2] pair")
					continue
				}
				if upd.Sets == nil {
					upd.Sets = make(map[int]SetGames)
				}
				upd.Sets[idx] = SetGames{Team1: pair[0], Team2: pair[1]}
			}
		}
	}

	return upd, errs, nil
}

// setGamesIndex matches keys of the form "set<N>_games" with N >= 1.
func setGamesIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "set")
	if !ok {
		return 0, false
	}
	num, ok := strings.CutSuffix(rest, "_games")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func parseString(val json.RawMessage, dst **string, key string, bad func(field, reason string)) {
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		bad(key, "expected a string")
		return
	}
	*dst = &s
}

// parseScalar accepts a JSON string or number and keeps its string form.
// Producers are untrusted and some app versions send counters as numbers,
// others as strings.
func parseScalar(val json.RawMessage, dst **string, key string, bad func(field, reason string)) {
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		*dst = &s
		return
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err == nil {
		s = n.String()
		*dst = &s
		return
	}
	bad(key, "expected a string or number")
}

func parsePlayers(val json.RawMessage, dst **[]string, key string, bad func(field, reason string)) {
	var names []string
	if err := json.Unmarshal(val, &names); err != nil {
		bad(key, "expected an array of names")
		return
	}
	if len(names) > 2 {
		bad(key, "at most two players per team")
		return
	}
	*dst = &names
}
