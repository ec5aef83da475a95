package recon

import "strings"

// matchRules returns the stored rule whose fragment occurs in the normalized
// key, preferring the longest fragment (the most specific rule). If two
// fragments of the winning length point at different members the match is
// ambiguous and no rule is returned.
func matchRules(rules []Rule, key string) (Rule, bool) {
	var (
		best      Rule
		found     bool
		ambiguous bool
	)
	for _, r := range rules {
		if r.Fragment == "" || !strings.Contains(key, r.Fragment) {
			continue
		}
		switch {
		case !found || len(r.Fragment) > len(best.Fragment):
			best = r
			found = true
			ambiguous = false
		case len(r.Fragment) == len(best.Fragment) && r.MemberID != best.MemberID:
			ambiguous = true
		}
	}
	if !found || ambiguous {
		return Rule{}, false
	}
	return best, true
}

// nameIndex precomputes normalized name tokens per member for the bare
// name-substring heuristic. Short tokens (initials, "VON", "DE") are left
// out to keep the heuristic conservative.
type nameIndex struct {
	memberIDs []string
	tokens    map[string][]string // member id -> normalized name tokens
}

const minNameTokenLen = 3

func buildNameIndex(memberIDs []string, names map[string]string) *nameIndex {
	idx := &nameIndex{memberIDs: memberIDs, tokens: make(map[string][]string, len(memberIDs))}
	for _, id := range idx.memberIDs {
		for _, tok := range tokens(Normalize(names[id])) {
			if len(tok) >= minNameTokenLen {
				idx.tokens[id] = append(idx.tokens[id], tok)
			}
		}
	}
	return idx
}

// match returns the single member whose name token appears in the key.
// A key naming tokens of two different members is ambiguous: ok is false
// and ambiguous is true, and the caller must surface the row for review.
func (idx *nameIndex) match(key string) (memberID string, ok, ambiguous bool) {
	keyToks := make(map[string]bool)
	for _, tok := range tokens(key) {
		keyToks[tok] = true
	}
	for _, id := range idx.memberIDs {
		for _, tok := range idx.tokens[id] {
			if !keyToks[tok] {
				continue
			}
			if ok && memberID != id {
				return "", false, true
			}
			memberID = id
			ok = true
			break
		}
	}
	return memberID, ok, false
}
