package classifier

import (
	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/repos/decisioncache"
)

// Cache is the decision cache the classifier reads and fills.
type Cache interface {
	Get(url string) (domain.Decision, bool)
	Put(url string, d domain.Decision)
	Purge()
	Stats() decisioncache.Stats
}
