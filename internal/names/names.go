// Package names normalizes player identity at the boundary. The canonical
// key (trimmed, case-folded) is the only identity the engines compare or
// store maps under; display formatting is a separate non-key attribute.
package names

import (
	"strings"

	"github.com/tclemens/cardtable/internal/fault"
)

// MaxLen bounds how long a player name may be.
const MaxLen = 32

// Key canonicalizes a raw player name. Blank or oversized names are rejected
// before any transaction runs.
func Key(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", fault.New(fault.InvalidName, "player name is required")
	}
	if len(key) > MaxLen {
		return "", fault.New(fault.InvalidName, "player name too long")
	}
	return key, nil
}

// Display picks the display name for a player: the explicit display string
// when present, otherwise the trimmed raw name.
func Display(raw, display string) string {
	if d := strings.TrimSpace(display); d != "" {
		return d
	}
	return strings.TrimSpace(raw)
}
