package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

// primary returns the lowercased primary subtag of a locale ("en-US" -> "en").
func primary(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}

func lookup(code string) *entry {
	code = primary(code)
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

func parse(code string) (xlang.Tag, bool) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return xlang.Und, false
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return xlang.Und, false
	}
	return tag, true
}

// ToISO3 converts a language code or BCP-47 locale to ISO 639-2 (3-letter),
// the form container metadata expects. Returns "und" for unrecognized input.
func ToISO3(code string) string {
	if strings.TrimSpace(code) == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if tag, ok := parse(code); ok {
		if base, conf := tag.Base(); conf != xlang.No {
			if iso3 := base.ISO3(); iso3 != "" {
				return iso3
			}
		}
	}
	if p := primary(code); len(p) == 3 {
		return p
	}
	return "und"
}

// DisplayName returns a human-readable name for a locale. Regional variants
// are rendered with their region ("en-US" -> "American English").
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if tag, ok := parse(trimmed); ok {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	return strings.ToUpper(trimmed)
}

// Canonical returns the canonical BCP-47 form of a locale ("EN_us" -> "en-US").
// Unparsable input is returned trimmed.
func Canonical(code string) string {
	if tag, ok := parse(code); ok {
		return tag.String()
	}
	return strings.TrimSpace(code)
}

// Matches reports whether an available track locale satisfies a requested
// locale. A request without a region matches any region of the same language.
func Matches(requested, available string) bool {
	req, ok := parse(requested)
	if !ok {
		return false
	}
	avail, ok := parse(available)
	if !ok {
		return false
	}
	if req == avail {
		return true
	}
	reqBase, _ := req.Base()
	availBase, _ := avail.Base()
	if reqBase != availBase {
		return false
	}
	if _, conf := req.Region(); conf == xlang.Exact {
		reqRegion, _ := req.Region()
		availRegion, _ := avail.Region()
		return reqRegion == availRegion
	}
	return true
}

// NormalizeList deduplicates and canonicalizes a list of locales, preserving order.
func NormalizeList(locales []string) []string {
	if len(locales) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(locales))
	seen := make(map[string]struct{}, len(locales))
	for _, locale := range locales {
		if strings.TrimSpace(locale) == "" {
			continue
		}
		canonical := Canonical(locale)
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		normalized = append(normalized, canonical)
	}
	return normalized
}
