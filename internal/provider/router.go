package provider

import "github.com/adrianmusante/subtitle-tools/internal/srt"

// Route picks the adapter to serve a request for target, honoring hint
// when it is registered and capable, subject to one override: a Hebrew
// target must always go to a Hebrew-capable adapter regardless of hint,
// since Bulk (adapter A) is structurally incapable of producing Hebrew.
// Preferred order for Hebrew is LLM, then Cloud.
//
// Absent a usable hint, the default preference order is Bulk, then
// Cloud, then LLM — cheapest/highest-throughput first.
func Route(reg Registry, target srt.Language, hint ID) (Capability, error) {
	if target == srt.LanguageHebrew {
		for _, id := range []ID{LLM, Cloud} {
			if c, ok := reg.Get(id); ok && c.SupportsLanguage(target) {
				return c, nil
			}
		}
		return nil, ErrNoCapableProvider
	}

	if hint != "" {
		if c, ok := reg.Get(hint); ok && c.SupportsLanguage(target) {
			return c, nil
		}
	}

	for _, id := range []ID{Bulk, Cloud, LLM} {
		if c, ok := reg.Get(id); ok && c.SupportsLanguage(target) {
			return c, nil
		}
	}
	return nil, ErrNoCapableProvider
}
