package corpus

import "github.com/c360studio/rulebook/rule"

// Merge combines the shared corpus with a variant corpus. Rules are
// concatenated, shared first; no rule is dropped or deduplicated. Variant
// section metadata and document metadata win over shared entries with the
// same key. Either argument may be nil.
func Merge(shared, variant *Corpus) *Corpus {
	if shared == nil {
		shared = &Corpus{Name: SharedName}
	}
	if variant == nil {
		variant = &Corpus{Name: shared.Name}
	}

	merged := &Corpus{
		Name:     variant.Name,
		Entries:  make([]Entry, 0, len(shared.Entries)+len(variant.Entries)),
		Sections: MergeSections(shared.Sections, variant.Sections),
		Metadata: shared.Metadata.Overlay(variant.Metadata),
		Files:    shared.Files + variant.Files,
	}

	merged.Entries = append(merged.Entries, shared.Entries...)
	merged.Entries = append(merged.Entries, variant.Entries...)
	merged.Errors = append(merged.Errors, shared.Errors...)
	merged.Errors = append(merged.Errors, variant.Errors...)

	return merged
}

// MergeSections overlays variant section metadata onto shared metadata.
// Neither input is modified.
func MergeSections(shared, variant rule.SectionIndex) rule.SectionIndex {
	out := make(rule.SectionIndex, len(shared)+len(variant))
	for n, meta := range shared {
		out[n] = meta
	}
	for n, meta := range variant {
		out[n] = meta
	}
	return out
}
