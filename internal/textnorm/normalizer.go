// Package textnorm cleans and tokenizes free-text shopping queries in Arabic
// and English. The pipeline is a pure function over static tables: letter-form
// normalization, symbol stripping, tokenization, stopword removal, and bigram
// phrase merging, in that order.
package textnorm

import (
	"regexp"
	"strings"
)

// Language tags returned by Normalize.
const (
	LangArabic  = "ar"
	LangEnglish = "en"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern  = regexp.MustCompile(`\S+@\S+`)
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spacePattern  = regexp.MustCompile(`\s+`)
	tokenPattern  = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	arabicDiacritics = regexp.MustCompile("[ؗ-ًؚ-ْ]")

	arabicLetterForms = strings.NewReplacer(
		"إ", "ا", "أ", "ا", "آ", "ا",
		"ى", "ي", "ئ", "ي", "ؤ", "و",
		"ة", "ه",
		"ـ", "", // tatweel
	)
)

// DetectLanguage tags text as Arabic when any code point falls in the Arabic
// block, English otherwise. No statistical model is involved.
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06ff {
			return LangArabic
		}
	}
	return LangEnglish
}

// Normalize runs the full preprocessing pipeline and returns the cleaned
// token sequence together with the detected language.
func Normalize(text string) ([]string, string) {
	lang := DetectLanguage(text)
	text = strings.TrimSpace(text)

	if lang == LangArabic {
		text = normalizeArabic(text)
	}
	// English segments inside Arabic text are folded too.
	text = strings.ToLower(text)

	text = cleanCommon(text)

	tokens := tokenPattern.FindAllString(text, -1)
	tokens = removeStopwords(tokens, lang)
	tokens = mergePhrases(tokens, lang)
	return tokens, lang
}

// normalizeArabic collapses letter variants, strips diacritics and tatweel,
// and maps Arabic-Indic digits to ASCII.
func normalizeArabic(text string) string {
	text = arabicLetterForms.Replace(text)
	text = arabicDiacritics.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 0x0660 && r <= 0x0669 {
			r = '0' + (r - 0x0660)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func cleanCommon(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = symbolPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func removeStopwords(tokens []string, lang string) []string {
	stop := englishStopwords
	if lang == LangArabic {
		stop = arabicStopwords
	}
	kept := tokens[:0]
	for _, t := range tokens {
		if _, drop := stop[t]; drop {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func mergePhrases(tokens []string, lang string) []string {
	phrases := englishPhrases
	if lang == LangArabic {
		phrases = arabicPhrases
	}

	merged := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if i+1 < len(tokens) {
			if compound, ok := phrases[[2]string{tokens[i], tokens[i+1]}]; ok {
				merged = append(merged, compound)
				i += 2
				continue
			}
		}
		merged = append(merged, tokens[i])
		i++
	}
	return merged
}
