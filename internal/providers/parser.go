package providers

import "strings"

// ProviderRef is one entry of READCAST_LLM_PROVIDERS: a provider name and an
// optional key alias, e.g. "openai:backup" reads READCAST_OPENAI_KEY_BACKUP.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList reads a failover order separated by "|" or ",".
// Names are case-insensitive; repeated entries keep their first position.
func ParseProviderList(raw string) []ProviderRef {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		name, alias, _ := strings.Cut(f, ":")
		ref := ProviderRef{
			Name:     strings.ToLower(strings.TrimSpace(name)),
			KeyAlias: strings.TrimSpace(alias),
		}
		if ref.Name == "" {
			continue
		}
		ref.Raw = ref.Name
		if ref.KeyAlias != "" {
			ref.Raw += ":" + ref.KeyAlias
		}
		if seen[ref.Raw] {
			continue
		}
		seen[ref.Raw] = true
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, ProviderRef{Raw: "mock", Name: "mock"})
	}
	return out
}
