package core

import "strconv"

// idSuffixSpace is the number of distinct random suffixes per day.
const idSuffixSpace = 10000

// RandomFunc returns a pseudo-random integer in [0, n).
type RandomFunc func(n int) int

// GenerateID builds an entry id as YYYYMMDD followed by four random
// decimal digits, e.g. 2024-01-01 -> 202401010042.
//
// Only 10,000 ids exist per day, so same-day collisions are likely well
// before that many entries (birthday bound). Callers must check for
// collisions; see ledger.Ledger.
func GenerateID(d Date, rnd RandomFunc) int64 {
	prefix, _ := strconv.ParseInt(d.Compact(), 10, 64)
	return prefix*idSuffixSpace + int64(rnd(idSuffixSpace))
}

// IDDate recovers the date prefix encoded in an id.
func IDDate(id int64) (Date, error) {
	return ParseDate(formatCompact(id / idSuffixSpace))
}

func formatCompact(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) != 8 {
		return s
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
}
