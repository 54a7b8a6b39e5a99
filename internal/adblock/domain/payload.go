package domain

// Payload is the one-shot configuration handed to a page's suppression
// controller when the page begins loading. The controller never talks to the
// network-side components again for the lifetime of that page.
type Payload struct {
	Version              string   `json:"version"`
	DomSelectors         []string `json:"domSelectors"`
	VideoAdIndicators    []string `json:"videoAdIndicators"`
	SkipButtonSelectors  []string `json:"skipButtonSelectors"`
	AdContainerSelectors []string `json:"adContainerSelectors"`
}

// HideSelectors returns the DOM and ad-container selectors merged in order
// with duplicates removed.
func (p Payload) HideSelectors() []string {
	seen := make(map[string]struct{}, len(p.DomSelectors)+len(p.AdContainerSelectors))
	out := make([]string, 0, len(p.DomSelectors)+len(p.AdContainerSelectors))
	for _, list := range [][]string{p.DomSelectors, p.AdContainerSelectors} {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
