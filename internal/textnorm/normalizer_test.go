package textnorm

import (
	"reflect"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"samsung phone under 5000", LangEnglish},
		{"موبايل سامسونج", LangArabic},
		{"موبايل samsung", LangArabic},
		{"", LangEnglish},
		{"12345 !!", LangEnglish},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.text); got != tc.want {
			t.Fatalf("DetectLanguage(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestNormalizeEnglish(t *testing.T) {
	tokens, lang := Normalize("The BEST Samsung phone, under 5000!!")
	if lang != LangEnglish {
		t.Fatalf("expected english, got %q", lang)
	}
	want := []string{"best", "samsung", "phone", "5000"}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
}

func TestNormalizeStripsURLsAndEmails(t *testing.T) {
	tokens, _ := Normalize("laptop https://example.com/deal buy support@example.com now")
	for _, tok := range tokens {
		if tok == "https" || tok == "example" || tok == "com" || tok == "support" {
			t.Fatalf("url/email residue in tokens: %v", tokens)
		}
	}
}

func TestNormalizeArabicLetterForms(t *testing.T) {
	// alef variants collapse, ta marbuta becomes ha, diacritics vanish.
	tokens, lang := Normalize("أحذية رياضيّة")
	if lang != LangArabic {
		t.Fatalf("expected arabic, got %q", lang)
	}
	want := []string{"احذيه", "رياضيه"}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
}

func TestNormalizeArabicIndicDigits(t *testing.T) {
	tokens, _ := Normalize("موبايل تحت ٥٠٠٠")
	found := false
	for _, tok := range tokens {
		if tok == "5000" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mapped digits 5000 in tokens, got %v", tokens)
	}
}

func TestNormalizeMergesPricePhrases(t *testing.T) {
	// Phrase merging runs after stopword removal, so only pairs whose words
	// survive the stopword pass can merge.
	tokens, _ := Normalize("موبايل تحت حد 3000")
	found := false
	for _, tok := range tokens {
		if tok == "تحت_حد" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected merged phrase in tokens, got %v", tokens)
	}

	// "less than" is swallowed by the stopword list before merging.
	tokens, _ = Normalize("phone less than 3000")
	for _, tok := range tokens {
		if tok == "less_than" || tok == "less" || tok == "than" {
			t.Fatalf("stopworded phrase words should not survive: %v", tokens)
		}
	}
}

func TestNormalizeRemovesStopwords(t *testing.T) {
	tokens, _ := Normalize("I want a phone for my work")
	for _, tok := range tokens {
		switch tok {
		case "i", "a", "for", "my":
			t.Fatalf("stopword %q survived: %v", tok, tokens)
		}
	}
}

func TestNormalizeEmptyAfterCleaning(t *testing.T) {
	tokens, _ := Normalize("!!! ... ؟؟")
	if len(tokens) != 0 {
		t.Fatalf("expected no tokens, got %v", tokens)
	}
}

func TestNormalizeIsPure(t *testing.T) {
	first, _ := Normalize("samsung phone under 5000")
	second, _ := Normalize("samsung phone under 5000")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization not deterministic: %v vs %v", first, second)
	}
}
