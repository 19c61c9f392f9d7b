package articulation

import "subtyper/internal/types"

// ScanJSONCandidates scans free-form text for top-level JSON object
// candidates, handling nested braces and string escaping to identify
// boundaries. It backs the triage path only: degraded records keep their
// raw text verbatim, and this scanner helps a reviewer spot a salvageable
// object the backend buried in prose or a markdown fence.
//
// Iterating bytes is safe for the ASCII delimiters ({, }, ", \) because
// UTF-8 never embeds ASCII bytes inside a multi-byte sequence.
func ScanJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		if b == '"' {
			inString = true
			continue
		}

		if b == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}

// Salvage attempts to recover a valid record from a degraded response by
// resolving each embedded JSON candidate strictly. Returns the first
// candidate that resolves successfully, or false when none does.
func Salvage(raw, clusterID string, genes []string) (*types.HypothesisRecord, bool) {
	for _, candidate := range ScanJSONCandidates(raw) {
		if rec := Resolve(candidate, clusterID, genes); !rec.Degraded() {
			return rec, true
		}
	}
	return nil, false
}
