package suppress

import "strings"

// IsAdRelated reports whether a batch of mutations could have changed ad
// state: an element target whose class mentions "ad" or "promo", whose id
// mentions "ad", or which gained child nodes.
func IsAdRelated(muts []Mutation) bool {
	for _, m := range muts {
		if !m.TargetIsElement {
			continue
		}
		if strings.Contains(m.TargetClass, "ad") ||
			strings.Contains(m.TargetClass, "promo") ||
			strings.Contains(m.TargetID, "ad") ||
			m.AddedNodes > 0 {
			return true
		}
	}
	return false
}
