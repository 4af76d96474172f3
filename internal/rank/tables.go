package rank

import "regexp"

// accessoryKeywords flags listings that are add-ons (cases, chargers,
// straps) rather than the device the query asks for. Bilingual: marketplace
// titles freely mix Arabic and English.
var accessoryKeywords = []string{
	"case", "cover", "كفر", "جراب",
	"screen protector", "واقي شاشة", "حماية",
	"charger", "شاحن", "cable", "كابل",
	"adapter", "محول", "earphone", "سماعة",
	"holder", "حامل", "stand", "ستاند",
	"skin", "sticker", "ملصق",
	"tempered glass", "زجاج",
	"tpu", "silicone", "سيليكون",
	"pouch", "جيب", "bag", "حقيبة",
	"strap", "حزام", "band",
}

// deviceProducts lists product types whose searches attract accessory
// listings and therefore get the accessory filter.
var deviceProducts = map[string]struct{}{
	"phone":  {},
	"laptop": {},
	"tablet": {},
	"watch":  {},
}

// categoryPatterns confirm a listing really is the requested product type.
var categoryPatterns = map[string]*regexp.Regexp{
	"phone":  regexp.MustCompile(`(?i)(smartphone|mobile|galaxy|iphone|redmi|note|pro|plus|max|ultra)`),
	"laptop": regexp.MustCompile(`(?i)(laptop|notebook|macbook|thinkpad|ideapad|vivobook)`),
	"shoes":  regexp.MustCompile(`(?i)(shoe|sneaker|boot|nike|adidas|puma|running)`),
	"watch":  regexp.MustCompile(`(?i)(watch|smartwatch|fitbit|garmin)`),
}

// brandAliases widen brand matching to well-known sub-brands. A full brand
// name in the title earns the full score; an alias earns a partial one.
var brandAliases = map[string][]string{
	"samsung": {"galaxy", "samsung"},
	"apple":   {"iphone", "apple"},
	"xiaomi":  {"redmi", "poco", "xiaomi"},
}

// typeKeywords back the small product-type bonus during scoring.
var typeKeywords = map[string][]string{
	"phone":  {"phone", "smartphone", "mobile"},
	"laptop": {"laptop", "notebook"},
	"shoes":  {"shoe", "sneaker", "boot"},
	"watch":  {"watch"},
}
