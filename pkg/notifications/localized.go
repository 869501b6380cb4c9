package notifications

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// LocalizedText maps BCP 47 language tags to pre-translated text.
type LocalizedText map[string]string

// Text returns a LocalizedText with a single entry.
func Text(lang, value string) LocalizedText {
	return LocalizedText{lang: value}
}

// Empty reports whether there is no non-blank translation.
func (t LocalizedText) Empty() bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// hasBlank reports whether any translation is blank.
func (t LocalizedText) hasBlank() bool {
	for _, v := range t {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// Resolve picks the translation that best matches preferred, falling back to
// the fallback language and then to any translation.
func (t LocalizedText) Resolve(preferred string, fallback language.Tag) string {
	if len(t) == 0 {
		return ""
	}
	if v, ok := t[preferred]; ok {
		return v
	}

	keys := make([]string, 0, len(t))
	tags := make([]language.Tag, 0, len(t))
	// The matcher answers with its first entry when nothing matches, so the
	// fallback goes first.
	for _, k := range t.orderedKeys(fallback) {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		keys = append(keys, k)
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return t[t.orderedKeys(fallback)[0]]
	}

	want, err := language.Parse(preferred)
	if err != nil {
		return t[keys[0]]
	}
	_, idx, _ := language.NewMatcher(tags).Match(want)
	return t[keys[idx]]
}

func (t LocalizedText) orderedKeys(fallback language.Tag) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fb := fallback.String()
	if i := slices.Index(keys, fb); i > 0 {
		keys = append([]string{fb}, slices.Delete(keys, i, i+1)...)
	}
	return keys
}
