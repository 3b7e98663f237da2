package tenant

import "strings"

// DefaultSlug is used when a page declares no tenant at all.
const DefaultSlug = "gastronomia-local1"

// slugAliases maps historically misspelled slugs to the canonical one.
var slugAliases = map[string]string{
	"gatrolocal1":   DefaultSlug,
	"gastro-local1": DefaultSlug,
	"gastro1":       DefaultSlug,
}

// ResolveSlug picks the first non-blank candidate, in priority order
// (query-string override, explicit business slug, vendor slug, page name).
// A page named "index" does not count as a slug.
func ResolveSlug(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		c = strings.TrimSuffix(c, ".html")
		if c != "" && c != "index" {
			return c
		}
	}
	return ""
}

// CanonicalSlug applies the alias table and the default.
func CanonicalSlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if alias, ok := slugAliases[slug]; ok {
		return alias
	}
	if slug == "" {
		return DefaultSlug
	}
	return slug
}
