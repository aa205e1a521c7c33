package scoreboard

import "testing"

func TestDisplayScore_TennisLabels(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"0", "0"},
		{"1", "15"},
		{"2", "30"},
		{"3", "40"},
		{"4", "AD"},
		{"5", "5"},
		{"7", "7"},
		{"12", "12"},
	}
	for _, tc := range cases {
		if got := DisplayScore(tc.raw); got != tc.want {
			t.Fatalf("DisplayScore(%q)=%q want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDisplayScore_NonNumericPassesThrough(t *testing.T) {
	cases := []string{"x", "", "AD", "40-40", "deuce"}
	for _, raw := range cases {
		if got := DisplayScore(raw); got != raw {
			t.Fatalf("DisplayScore(%q)=%q want input unchanged", raw, got)
		}
	}
}
