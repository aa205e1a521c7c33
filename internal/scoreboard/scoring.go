package scoreboard

import "strconv"

// DisplayScore converts a raw point counter for the current game into the
// label a scoreboard shows: 0/15/30/40 and "AD" for advantage. Counters of
// 5 and above are shown as-is; the upstream apps only ever send 0..4, so
// anything bigger means the producer is keeping its own convention and we
// pass it through. Input that is not an integer at all is returned
// unchanged, so a producer typo degrades to showing the raw value instead
// of breaking the broadcast.
func DisplayScore(raw string) string {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return raw
	}
	switch n {
	case 0:
		return "0"
	case 1:
		return "15"
	case 2:
		return "30"
	case 3:
		return "40"
	case 4:
		return "AD"
	default:
		return strconv.Itoa(n)
	}
}
