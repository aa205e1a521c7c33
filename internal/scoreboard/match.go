package scoreboard

import (
	"time"
)

// Match is one scoreboard's full state. Instances live inside the
// MatchStore; everything handed out of the store is a deep copy, so
// callers never race on a live match.
type Match struct {
	ID string

	Team1Name    string
	Team2Name    string
	Team1Players []string
	Team2Players []string

	// Raw point counters for the current game, converted only when a
	// payload is built.
	Team1GameScore string
	Team2GameScore string

	// BestOfSets is fixed at creation. Sets may still hold indices
	// beyond it when the producer reports more sets than configured;
	// the read window widens instead of truncating.
	BestOfSets int
	Sets       map[int]SetGames
	CurrentSet int

	IsMatchFinished bool
	WinningTeam     string

	CourtNumber string

	CreatedAt   time.Time
	LastUpdated time.Time
}

const defaultBestOfSets = 3

func newMatch(id string, settings MatchSettings, now time.Time) *Match {
	bestOf := settings.BestOfSets
	if bestOf < 1 {
		bestOf = defaultBestOfSets
	}
	return &Match{
		ID:             id,
		Team1Name:      settings.Team1Name,
		Team2Name:      settings.Team2Name,
		Team1Players:   append([]string(nil), settings.Team1Players...),
		Team2Players:   append([]string(nil), settings.Team2Players...),
		Team1GameScore: "0",
		Team2GameScore: "0",
		BestOfSets:     bestOf,
		Sets:           make(map[int]SetGames),
		CurrentSet:     1,
		CourtNumber:    settings.CourtNumber,
		CreatedAt:      now,
		LastUpdated:    now,
	}
}

// apply merges a partial update into the match. Absent fields stay
// untouched; present fields overwrite, including explicit empty strings.
func (m *Match) apply(upd MatchUpdate, now time.Time) {
	if upd.Team1Name != nil {
		m.Team1Name = *upd.Team1Name
	}
	if upd.Team2Name != nil {
		m.Team2Name = *upd.Team2Name
	}
	if upd.Team1Players != nil {
		m.Team1Players = append([]string(nil), (*upd.Team1Players)...)
	}
	if upd.Team2Players != nil {
		m.Team2Players = append([]string(nil), (*upd.Team2Players)...)
	}
	if upd.Team1GameScore != nil {
		m.Team1GameScore = *upd.Team1GameScore
	}
	if upd.Team2GameScore != nil {
		m.Team2GameScore = *upd.Team2GameScore
	}
	for idx, games := range upd.Sets {
		m.Sets[idx] = games
	}
	if upd.CurrentSet != nil {
		m.CurrentSet = *upd.CurrentSet
	}
	if upd.IsMatchFinished != nil {
		m.IsMatchFinished = *upd.IsMatchFinished
	}
	if upd.WinningTeam != nil {
		m.WinningTeam = *upd.WinningTeam
	}
	if upd.CourtNumber != nil {
		m.CourtNumber = *upd.CourtNumber
	}
	m.LastUpdated = now
}

func (m *Match) clone() Match {
	c := *m
	c.Team1Players = append([]string(nil), m.Team1Players...)
	c.Team2Players = append([]string(nil), m.Team2Players...)
	c.Sets = make(map[int]SetGames, len(m.Sets))
	for idx, games := range m.Sets {
		c.Sets[idx] = games
	}
	return c
}

// setWindow is how many set rows a payload carries: at least BestOfSets,
// more if the producer ever wrote a higher index.
func (m *Match) setWindow() int {
	window := m.BestOfSets
	for idx := range m.Sets {
		if idx > window {
			window = idx
		}
	}
	return window
}

// Payload builds the display-ready view of the match. Point counters go
// through DisplayScore here and nowhere else.
func (m *Match) Payload() MatchPayload {
	window := m.setWindow()
	sets := make([]SetLine, 0, window)
	for idx := 1; idx <= window; idx++ {
		games := m.Sets[idx]
		sets = append(sets, SetLine{Set: idx, Team1: games.Team1, Team2: games.Team2})
	}

	return MatchPayload{
		MatchID:         m.ID,
		Team1Name:       m.Team1Name,
		Team2Name:       m.Team2Name,
		Team1Players:    append([]string(nil), m.Team1Players...),
		Team2Players:    append([]string(nil), m.Team2Players...),
		Team1GameScore:  DisplayScore(m.Team1GameScore),
		Team2GameScore:  DisplayScore(m.Team2GameScore),
		BestOfSets:      m.BestOfSets,
		Sets:            sets,
		CurrentSet:      m.CurrentSet,
		IsMatchFinished: m.IsMatchFinished,
		WinningTeam:     m.WinningTeam,
		CourtNumber:     m.CourtNumber,
		LastUpdated:     m.LastUpdated,
	}
}
