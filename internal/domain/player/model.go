package player

import (
	"fmt"
	"strings"
	"time"
)

// Stats is a snapshot of named numeric statistics, replaced wholesale on refresh.
type Stats map[string]float64

// Clone returns an independent copy so cached snapshots are never shared mutably.
func (s Stats) Clone() Stats {
	if s == nil {
		return nil
	}
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Profile holds the descriptive attributes of a player. Writes are last-writer-wins.
type Profile struct {
	ID           int64
	FullName     string
	Team         string
	Position     string
	JerseyNumber string
}

func (p Profile) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id must be greater than zero")
	}
	if strings.TrimSpace(p.FullName) == "" {
		return fmt.Errorf("player full name is required")
	}

	return nil
}

// Player is a stored player record. ID is the stats.nba.com person id.
type Player struct {
	Profile
	LatestStats Stats
	// LastUpdated is zero until the first successful refresh and never moves backwards.
	LastUpdated time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Player) HasStats() bool {
	return !p.LastUpdated.IsZero()
}
