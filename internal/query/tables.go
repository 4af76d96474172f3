package query

import "regexp"

// keywordEntry maps a canonical name to the keywords (English plus
// transliterated Arabic variants) that select it. Tables are ordered; the
// first entry with a matching keyword wins.
type keywordEntry struct {
	name     string
	keywords []string
}

var brandTable = []keywordEntry{
	{"samsung", []string{"سامسونج", "samsung", "galaxy", "سامسونغ"}},
	{"apple", []string{"ابل", "apple", "iphone", "ايفون", "آيفون"}},
	{"xiaomi", []string{"شاومي", "xiaomi", "redmi", "poco", "شياومي"}},
	{"huawei", []string{"هواوي", "huawei", "هواواي"}},
	{"oppo", []string{"اوبو", "oppo", "أوبو"}},
	{"vivo", []string{"فيفو", "vivo", "ڤيفو"}},
	{"realme", []string{"ريلمي", "realme", "ريل مي"}},
	{"infinix", []string{"انفينكس", "infinix", "انفنكس"}},
	{"tecno", []string{"تكنو", "tecno", "تيكنو"}},
	{"nokia", []string{"نوكيا", "nokia", "نوكيه"}},
	{"oneplus", []string{"ون بلس", "oneplus", "وان بلس"}},
	{"sony", []string{"سوني", "sony", "سونى"}},
	{"lg", []string{"ال جي", "lg", "إل جي"}},
	{"motorola", []string{"موتورولا", "motorola", "موتو"}},
	{"lenovo", []string{"لينوفو", "lenovo", "لنوفو"}},
	{"asus", []string{"اسوس", "asus", "أسوس"}},
	{"hp", []string{"اتش بي", "hp", "إتش بي"}},
	{"dell", []string{"ديل", "dell"}},
	{"acer", []string{"ايسر", "acer", "أيسر"}},
	{"nike", []string{"نايك", "nike", "نايكي"}},
	{"adidas", []string{"اديداس", "adidas", "أديداس"}},
	{"puma", []string{"بوما", "puma"}},
}

var productTable = []keywordEntry{
	{"phone", []string{"موبايل", "جوال", "هاتف", "تليفون", "phone", "smartphone", "mobile"}},
	{"laptop", []string{"لابتوب", "حاسوب محمول", "كمبيوتر محمول", "laptop", "notebook"}},
	{"tablet", []string{"تابلت", "لوح", "tablet", "pad"}},
	{"shoes", []string{"كوتش", "حذاء", "جزمة", "shoes", "sneakers", "boots"}},
	{"watch", []string{"ساعة", "watch", "smartwatch"}},
	{"headphones", []string{"سماعة", "سماعات", "headphones", "earphones", "earbuds"}},
	{"camera", []string{"كاميرا", "camera"}},
	{"tv", []string{"تلفزيون", "تليفزيون", "tv", "television"}},
}

var colorTable = []keywordEntry{
	{"black", []string{"اسود", "أسود", "black"}},
	{"white", []string{"ابيض", "أبيض", "white"}},
	{"blue", []string{"ازرق", "أزرق", "blue", "navy"}},
	{"red", []string{"احمر", "أحمر", "red"}},
	{"green", []string{"اخضر", "أخضر", "green"}},
	{"yellow", []string{"اصفر", "أصفر", "yellow"}},
	{"gray", []string{"رمادي", "grey", "gray", "رصاصي"}},
	{"silver", []string{"فضي", "silver", "سيلفر"}},
	{"gold", []string{"ذهبي", "gold", "جولد"}},
	{"pink", []string{"وردي", "بينك", "pink", "rose"}},
	{"purple", []string{"بنفسجي", "purple", "موف"}},
}

var qualityTable = []keywordEntry{
	{"cheap", []string{"رخيص", "ارخص", "cheap", "budget", "affordable", "اقتصادي"}},
	{"premium", []string{"فخم", "غالي", "premium", "flagship", "high-end", "راقي", "ممتاز"}},
	{"good", []string{"جيد", "كويس", "good", "quality", "جودة"}},
}

// sizeWindow bounds the plausible numeric size per product category.
type sizeWindow struct {
	min, max int
}

var sizeWindows = map[string]sizeWindow{
	"shoes":  {35, 50},
	"phone":  {5, 100},
	"laptop": {5, 100},
	"tablet": {5, 100},
	"tv":     {5, 100},
}

// featurePattern extracts one technical feature into the feature map under
// its key. All patterns are independent; every match populates the map.
type featurePattern struct {
	pattern *regexp.Regexp
	key     string
}

var featurePatterns = []featurePattern{
	{regexp.MustCompile(`(\d+)\s*(?:gb|جيجا|جيجابايت|giga)`), "storage_gb"},
	{regexp.MustCompile(`(\d+)\s*(?:tb|تيرا|تيرابايت|tera)`), "storage_tb"},
	{regexp.MustCompile(`(\d+)\s*(?:gb|جيجا)\s*(?:ram|رام|ذاكرة)`), "ram_gb"},
	{regexp.MustCompile(`(\d+)\s*(?:mp|ميجا|ميجابكسل|mega)`), "camera_mp"},
	{regexp.MustCompile(`(\d+\.?\d*)\s*(?:inch|انش|بوصة|")`), "screen_inch"},
	{regexp.MustCompile(`(amoled|oled|lcd|ips|retina)`), "display_type"},
	{regexp.MustCompile(`(5g|4g|lte)`), "network_type"},
	{regexp.MustCompile(`(snapdragon|mediatek|helio|exynos|a\d+\s*bionic|intel|amd|ryzen|core\s*i\d)`), "processor"},
}

// Price phrase patterns, tried in fixed order. Only the first matching
// pattern populates the range.
type pricePattern struct {
	pattern *regexp.Regexp
	kind    string // "max", "min", "range", "target"
}

var pricePatterns = []pricePattern{
	{regexp.MustCompile(`(?:تحت|اقل من|under|below|less than)\s*(\d+)`), "max"},
	{regexp.MustCompile(`(?:فوق|اكثر من|above|over|more than)\s*(\d+)`), "min"},
	{regexp.MustCompile(`(?:من|between|from)\s*(\d+)\s*(?:الى|لـ|to|and|-)\s*(\d+)`), "range"},
	{regexp.MustCompile(`(?:حوالي|تقريبا|around|approximately|about)\s*(\d+)`), "target"},
}
