package textnorm

// Stopword and phrase tables for the two supported languages. The Arabic set
// includes common Egyptian colloquial request words ("عايز", "محتاج") so that
// shopping queries reduce to their content terms.

var arabicStopwords = makeSet(
	"انا", "نحن", "انت", "انتي", "انتم", "انهما", "انهم", "انتن",
	"هو", "هي", "هم", "هن",
	"هذا", "هذه", "هؤلاء", "هذي", "ذلك", "تلك", "هناك", "هنا",
	"في", "على", "عن", "من", "الى", "إلي", "حتي", "حتى", "او", "ام", "أم",
	"ثم", "بل", "لكن", "لان", "لأن", "لو", "لم", "لما", "لن", "لا",
	"كل", "بعض", "اي", "أي", "اى", "ايه", "أيه",
	"لقد", "قد", "كان", "ليس", "لست", "كنا", "كانوا", "كنت", "كانت",
	"يكون", "تكون", "تكونوا", "يكونوا", "تكونين",
	"مع", "لدى", "عند", "اما", "أما", "اذا", "إذا", "إن", "ان", "أن",
	"الذي", "التي", "الذين", "اللاتي", "اللواتي", "اللذان", "اللتان",
	"كما", "حيث", "بينما", "حين", "عندما", "منذ",
	"بعد", "قبل", "خلال", "ضد", "دون", "غير", "سوى", "فقط",
	"سمحت", "سمحتم", "سمحتي",
	"عايز", "عايزه", "عايزها", "عايزهم", "عايزين", "عاوزه",
	"عاوز", "عاوزين",
	"محتاج", "محتاجه", "محتاجين",
	"وقد", "و",
)

var englishStopwords = makeSet(
	"i", "me", "my", "you", "your", "yours", "he", "him", "his", "she", "her", "hers",
	"we", "our", "ours", "they", "them", "their", "theirs",
	"this", "that", "these", "those", "here", "there",
	"is", "am", "are", "was", "were", "be", "been", "being",
	"a", "an", "the",
	"and", "or", "but", "if", "while", "for", "to", "from", "of", "in", "on", "at", "by", "with",
	"about", "above", "below", "under", "over", "into", "out", "up", "down",
	"as", "than", "then", "so", "such", "just", "very", "really",
	"can", "could", "may", "might", "should", "would", "will", "do", "did", "done",
	"have", "has", "had", "having",
	"want", "need", "like",
	"less", "more", "around", "between",
)

// Adjacent token pairs that collapse into a single compound token, so that
// multi-word operators like "less than" survive stopword-free matching.
var arabicPhrases = map[[2]string]string{
	{"اقل", "من"}: "اقل_من",
	{"اقل", "عن"}: "اقل_من",
	{"تحت", "حد"}: "تحت_حد",
}

var englishPhrases = map[[2]string]string{
	{"less", "than"}:  "less_than",
	{"under", "than"}: "under_than",
	{"up", "to"}:      "up_to",
}

func makeSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
