package router

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxOrdinalRank bounds ordinal detection to ranks 1-10.
const MaxOrdinalRank = 10

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var (
	ordinalWordPattern   = regexp.MustCompile(`(?i)\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\b`)
	ordinalSuffixPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	hashRankPattern      = regexp.MustCompile(`#(\d{1,2})\b`)
	numberRankPattern    = regexp.MustCompile(`(?i)\bnumber\s+(\d{1,2})\b`)
	rankNPattern         = regexp.MustCompile(`(?i)\brank\s+(\d{1,2})\b`)
	lastFavoritePattern  = regexp.MustCompile(`(?i)\blast\b`)
)

// DetectOrdinalRank recognizes first..tenth, 1st..10th, #N, "number N",
// and "rank N" within message text, bounded to [1, MaxOrdinalRank].
// Returns 0, false if nothing matches.
func DetectOrdinalRank(message string) (int, bool) {
	if m := ordinalWordPattern.FindStringSubmatch(message); m != nil {
		if rank, ok := ordinalWords[strings.ToLower(m[1])]; ok {
			return rank, true
		}
	}
	if m := ordinalSuffixPattern.FindStringSubmatch(message); m != nil {
		return parseBoundedRank(m[1])
	}
	if m := hashRankPattern.FindStringSubmatch(message); m != nil {
		return parseBoundedRank(m[1])
	}
	if m := numberRankPattern.FindStringSubmatch(message); m != nil {
		return parseBoundedRank(m[1])
	}
	if m := rankNPattern.FindStringSubmatch(message); m != nil {
		return parseBoundedRank(m[1])
	}
	return 0, false
}

func parseBoundedRank(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxOrdinalRank {
		return 0, false
	}
	return n, true
}

// IsLastFavoriteQuery reports whether the message asks for the "last"
// favorite.
func IsLastFavoriteQuery(message string) bool {
	return lastFavoritePattern.MatchString(message)
}
