package scoreboard

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
func boolp(b bool) *bool    { return &b }

func TestMatchStore_ApplyUpdate_Merges(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "absent fields stay untouched",
			run: func(t *testing.T) {
				s := NewMatchStore()
				m := s.Create(MatchSettings{Team1Name: "A", Team2Name: "B", BestOfSets: 3})

				got, err := s.ApplyUpdate(m.ID, MatchUpdate{Team1GameScore: strp("2")})
				require.NoError(t, err)

				assert.Equal(t, "A", got.Team1Name)
				assert.Equal(t, "B", got.Team2Name)
				assert.Equal(t, "2", got.Team1GameScore)
				assert.Equal(t, "0", got.Team2GameScore)
			},
		},
		{
			name: "explicit empty string overwrites a name",
			run: func(t *testing.T) {
				s := NewMatchStore()
				m := s.Create(MatchSettings{Team1Name: "A", Team2Name: "B"})

				got, err := s.ApplyUpdate(m.ID, MatchUpdate{Team2Name: strp("")})
				require.NoError(t, err)

				assert.Equal(t, "A", got.Team1Name)
				assert.Equal(t, "", got.Team2Name)
			},
		},
		{
			name: "set pair lands atomically and widens the window",
			run: func(t *testing.T) {
				s := NewMatchStore()
				m := s.Create(MatchSettings{BestOfSets: 3})

				got, err := s.ApplyUpdate(m.ID, MatchUpdate{
					Sets: map[int]SetGames{5: {Team1: 7, Team2: 6}},
				})
				require.NoError(t, err)

				p := got.Payload()
				require.Len(t, p.Sets, 5, "window widens to the highest written index")
				assert.Equal(t, SetLine{Set: 5, Team1: 7, Team2: 6}, p.Sets[4])
				assert.Equal(t, SetLine{Set: 2, Team1: 0, Team2: 0}, p.Sets[1])
			},
		},
		{
			name: "update of unknown id is NotFound, never an upsert",
			run: func(t *testing.T) {
				s := NewMatchStore()
				_, err := s.ApplyUpdate("nope", MatchUpdate{Team1Name: strp("A")})
				if !errors.Is(err, ErrMatchNotFound) {
					t.Fatalf("err=%v want ErrMatchNotFound", err)
				}
				if s.Len() != 0 {
					t.Fatalf("store gained a match from a failed update")
				}
			},
		},
		{
			name: "LastUpdated moves on update, not on get",
			run: func(t *testing.T) {
				s := NewMatchStore()
				m := s.Create(MatchSettings{})

				time.Sleep(2 * time.Millisecond)
				got, err := s.ApplyUpdate(m.ID, MatchUpdate{CurrentSet: intp(2)})
				require.NoError(t, err)
				require.True(t, got.LastUpdated.After(m.LastUpdated))

				again, err := s.Get(m.ID)
				require.NoError(t, err)
				assert.Equal(t, got.LastUpdated, again.LastUpdated)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

// Property check for merge semantics: whatever subset of fields an update
// carries, every omitted field is identical before and after.
func TestMatchStore_ApplyUpdate_RandomSubsets(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := NewMatchStore()
	m := s.Create(MatchSettings{Team1Name: "A", Team2Name: "B", BestOfSets: 5})

	before, err := s.Get(m.ID)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		var upd MatchUpdate
		if rng.Intn(2) == 0 {
			upd.Team1Name = strp("X")
		}
		if rng.Intn(2) == 0 {
			upd.Team2Name = strp("Y")
		}
		if rng.Intn(2) == 0 {
			upd.Team1GameScore = strp("3")
		}
		if rng.Intn(2) == 0 {
			upd.Team2GameScore = strp("1")
		}
		if rng.Intn(2) == 0 {
			upd.Sets = map[int]SetGames{1 + rng.Intn(5): {Team1: 6, Team2: 4}}
		}
		if rng.Intn(2) == 0 {
			upd.CurrentSet = intp(1 + rng.Intn(5))
		}
		if rng.Intn(2) == 0 {
			upd.IsMatchFinished = boolp(true)
		}
		if rng.Intn(2) == 0 {
			upd.WinningTeam = strp("1")
		}

		after, err := s.ApplyUpdate(m.ID, upd)
		require.NoError(t, err)

		if upd.Team1Name == nil {
			assert.Equal(t, before.Team1Name, after.Team1Name)
		}
		if upd.Team2Name == nil {
			assert.Equal(t, before.Team2Name, after.Team2Name)
		}
		if upd.Team1GameScore == nil {
			assert.Equal(t, before.Team1GameScore, after.Team1GameScore)
		}
		if upd.Team2GameScore == nil {
			assert.Equal(t, before.Team2GameScore, after.Team2GameScore)
		}
		if upd.CurrentSet == nil {
			assert.Equal(t, before.CurrentSet, after.CurrentSet)
		}
		if upd.IsMatchFinished == nil {
			assert.Equal(t, before.IsMatchFinished, after.IsMatchFinished)
		}
		if upd.WinningTeam == nil {
			assert.Equal(t, before.WinningTeam, after.WinningTeam)
		}
		for idx, games := range before.Sets {
			if _, touched := upd.Sets[idx]; !touched {
				assert.Equal(t, games, after.Sets[idx], "set %d", idx)
			}
		}

		before = after
	}
}

func TestMatchStore_Delete(t *testing.T) {
	s := NewMatchStore()
	m := s.Create(MatchSettings{})

	require.NoError(t, s.Delete(m.ID))
	_, err := s.Get(m.ID)
	require.ErrorIs(t, err, ErrMatchNotFound)
	require.ErrorIs(t, s.Delete(m.ID), ErrMatchNotFound)
}

func TestMatchStore_ExpiredBefore(t *testing.T) {
	s := NewMatchStore()
	m := s.Create(MatchSettings{})

	if ids := s.ExpiredBefore(m.CreatedAt); len(ids) != 0 {
		t.Fatalf("cutoff == createdAt should not expire, got %v", ids)
	}
	ids := s.ExpiredBefore(time.Now().Add(time.Minute))
	if len(ids) != 1 || ids[0] != m.ID {
		t.Fatalf("expected [%s], got %v", m.ID, ids)
	}
}

func TestMatch_CopiesAreIndependent(t *testing.T) {
	s := NewMatchStore()
	m := s.Create(MatchSettings{Team1Players: []string{"Ana", "Bea"}})

	m.Team1Players[0] = "mutated"
	m.Sets[1] = SetGames{Team1: 9, Team2: 9}

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Team1Players[0])
	assert.Empty(t, got.Sets)
}
