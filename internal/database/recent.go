package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// MaxRecentArtworkIDs caps how many recently shown artwork ids are remembered
const MaxRecentArtworkIDs = 100

// RecentIDs is the bounded window of recently shown provider artwork ids,
// oldest first. It persists as a comma-joined string.
type RecentIDs []int64

// ParseRecentIDs parses a comma-joined id string
func ParseRecentIDs(s string) (RecentIDs, error) {
	if s == "" {
		return RecentIDs{}, nil
	}

	parts := strings.Split(s, ",")
	ids := make(RecentIDs, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid recent artwork id %q: %w", part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Contains reports whether id is in the window
func (r RecentIDs) Contains(id int64) bool {
	for _, recent := range r {
		if recent == id {
			return true
		}
	}
	return false
}

// Append adds id at the tail, moving it there if already present
func (r RecentIDs) Append(id int64) RecentIDs {
	ids := make(RecentIDs, 0, len(r)+1)
	for _, recent := range r {
		if recent != id {
			ids = append(ids, recent)
		}
	}
	return append(ids, id)
}

// Trim evicts from the head until at most n ids remain
func (r RecentIDs) Trim(n int) RecentIDs {
	if n < 0 {
		n = 0
	}
	if len(r) <= n {
		return r
	}
	return r[len(r)-n:]
}

// String returns the comma-joined persisted form
func (r RecentIDs) String() string {
	parts := make([]string, len(r))
	for i, id := range r {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Value implements driver.Valuer
func (r RecentIDs) Value() (driver.Value, error) {
	return r.String(), nil
}

// Scan implements sql.Scanner
func (r *RecentIDs) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = RecentIDs{}
		return nil
	case string:
		ids, err := ParseRecentIDs(v)
		if err != nil {
			return err
		}
		*r = ids
		return nil
	case []byte:
		ids, err := ParseRecentIDs(string(v))
		if err != nil {
			return err
		}
		*r = ids
		return nil
	default:
		return fmt.Errorf("cannot scan %T into RecentIDs", src)
	}
}

// RecentBound returns how many recent ids to keep for a provider exposing
// total candidates: half the catalog, at least one, at most MaxRecentArtworkIDs
func RecentBound(total int) int {
	bound := total / 2
	if bound < 1 {
		bound = 1
	}
	if bound > MaxRecentArtworkIDs {
		bound = MaxRecentArtworkIDs
	}
	return bound
}
