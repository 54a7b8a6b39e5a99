package domain

// Decision is the outcome of classifying a single request URL. It is a value
// type and is never mutated after being returned.
type Decision struct {
	Block    bool     `json:"block"`
	Category Category `json:"category"`
}

// Allow returns the default allow decision.
func Allow() Decision { return Decision{Block: false, Category: CategoryNone} }

// BlockAs returns a blocking decision tagged with the given category.
func BlockAs(c Category) Decision { return Decision{Block: true, Category: c} }
