package aggregator

import (
	"errors"
	"fmt"
	"regexp"
)

// KeyPolicy decides which council file identifiers share a history.
type KeyPolicy string

// Key policies.
const (
	// KeyExact keeps suffix variants such as 25-1209 and 25-1209-S1 apart.
	KeyExact KeyPolicy = "exact"
	// KeyBase merges suffix variants into the base identifier's history.
	KeyBase KeyPolicy = "base"
)

// ErrUnknownKeyPolicy is returned by ParseKeyPolicy for unrecognized names.
var ErrUnknownKeyPolicy = errors.New("unknown aggregation key policy")

var suffixPattern = regexp.MustCompile(`-S\d+$`)

// ParseKeyPolicy maps a configured name to a policy. Empty means KeyExact.
func ParseKeyPolicy(name string) (KeyPolicy, error) {
	switch KeyPolicy(name) {
	case "", KeyExact:
		return KeyExact, nil
	case KeyBase:
		return KeyBase, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKeyPolicy, name)
	}
}

// Key returns the grouping key for a council file identifier.
func (k KeyPolicy) Key(councilFile string) string {
	if k == KeyBase {
		return suffixPattern.ReplaceAllString(councilFile, "")
	}

	return councilFile
}
