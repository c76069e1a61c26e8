package match

import (
	"github.com/xrash/smetrics"

	"github.com/plx30080-ctrl/LeadGen/internal/normalize"
)

// Similarity bonuses and blend weights. Token overlap carries most of the
// signal; Jaro-Winkler on best token pairs absorbs typos and word reordering.
const (
	tokenWeight = 0.7
	jaroWeight  = 0.3
	domainBonus = 0.10
	phoneBonus  = 0.05
)

// NameSimilarity scores two raw company names in [0,1].
func NameSimilarity(a, b string) float64 {
	na, nb := normalize.CompanyName(a), normalize.CompanyName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	s := tokenWeight*tokenSetOverlap(na, nb) + jaroWeight*bestPairJaro(na, nb)
	return clamp01(s)
}

// CompanyScore blends name similarity with partial domain and phone matches.
func CompanyScore(candName, candWebsite, candPhone, storedName, storedDomain, storedPhone string) float64 {
	s := NameSimilarity(candName, storedName)
	if d := normalize.Domain(candWebsite); d != "" && d == storedDomain {
		s += domainBonus
	}
	if p := normalize.Phone(candPhone); len(p) >= 7 && p == normalize.Phone(storedPhone) {
		s += phoneBonus
	}
	return clamp01(s)
}

// ContactScore scores a contact candidate against a stored contact.
func ContactScore(candFirst, candLast, candPhone, storedFull, storedPhone string) float64 {
	na := normalize.PersonName(candFirst, candLast)
	nb := normalize.FullName(storedFull)
	if na == "" || nb == "" {
		return 0
	}
	var s float64
	if na == nb {
		s = 1
	} else {
		s = tokenWeight*tokenSetOverlap(na, nb) + jaroWeight*bestPairJaro(na, nb)
	}
	if p := normalize.Phone(candPhone); len(p) >= 7 && p == normalize.Phone(storedPhone) {
		s += phoneBonus
	}
	return clamp01(s)
}

// tokenSetOverlap is Jaccard similarity over the word sets of two
// normalized strings.
func tokenSetOverlap(a, b string) float64 {
	ta, tb := normalize.Tokens(a), normalize.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	inter := 0
	for _, t := range tb {
		if set[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// bestPairJaro averages, for each token of the shorter string, the best
// Jaro-Winkler score against any token of the other. Order-insensitive.
func bestPairJaro(a, b string) float64 {
	ta, tb := normalize.Tokens(a), normalize.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	var sum float64
	for _, x := range ta {
		best := 0.0
		for _, y := range tb {
			if s := smetrics.JaroWinkler(x, y, 0.7, 4); s > best {
				best = s
			}
		}
		sum += best
	}
	return sum / float64(len(ta))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
