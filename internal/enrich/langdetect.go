package enrich

import "unicode"

// Script-presence heuristics decide whether a translation call can be
// skipped.

// hangulRatio returns the share of Hangul among the letters of s.
func hangulRatio(s string) float64 {
	letters, hangul := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(hangul) / float64(letters)
}

// MatchesLanguage reports whether text already reads as the target
// language. For Korean it checks the Hangul presence ratio; other targets
// fall back to the article's declared language handled by the caller.
func MatchesLanguage(text, target string) bool {
	switch target {
	case "ko":
		return hangulRatio(text) > 0.3
	case "ja":
		return kanaRatio(text) > 0.2
	}
	return false
}

func kanaRatio(s string) float64 {
	letters, kana := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			kana++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(kana) / float64(letters)
}
