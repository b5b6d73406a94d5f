package textutil

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Weights splits a composite score between title and artist similarity.
type Weights struct {
	Title  float64
	Artist float64
}

var (
	// KnownPairWeights score catalog candidates against a known (artist, title).
	KnownPairWeights = Weights{Title: 0.6, Artist: 0.4}
	// ConfidenceWeights score an accepted result against metadata extracted from noisy input.
	ConfidenceWeights = Weights{Title: 0.7, Artist: 0.3}
)

// Composite blends title and artist similarity.
func Composite(title, artist float64, w Weights) float64 {
	return clamp(w.Title*title + w.Artist*artist)
}

// CharacterSimilarity returns the longest-common-substring overlap ratio of
// a and b: twice the number of shared characters over their combined length.
func CharacterSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	shared := commonChars(ra, rb)
	return clamp(float64(2*shared) / float64(len(ra)+len(rb)))
}

func commonChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	best, posA, posB := 0, 0, 0
	for i := range a {
		for j := range b {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > best {
				best, posA, posB = k, i, j
			}
		}
	}
	if best == 0 {
		return 0
	}
	return best + commonChars(a[:posA], b[:posB]) + commonChars(a[posA+best:], b[posB+best:])
}

// WordSimilarity is the Jaccard index of the space-separated word sets.
func WordSimilarity(a, b string) float64 {
	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	setA := newWordSet(wa...)
	setB := newWordSet(wb...)
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Containment returns len(shorter)/len(longer) when the shorter string occurs
// inside the longer one, else 0.
func Containment(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := a, b
	if len([]rune(shorter)) > len([]rune(longer)) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0
	}
	return float64(len([]rune(shorter))) / float64(len([]rune(longer)))
}

// EditSimilarity is 1 - levenshtein(a, b)/max(len(a), len(b)).
func EditSimilarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	longest := max(la, lb)
	return clamp(1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest))
}

// BestOf returns the highest score, or 0 when none are given.
func BestOf(scores ...float64) float64 {
	best := 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return best
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
