package domain

import "time"

// DailySet is the per-date record carrying the audit seed.
type DailySet struct {
	Date        time.Time
	Seed        int64
	SnapshotURL string
}

// DailySetItem assigns an item to a position of a mode's lineup for one date.
type DailySetItem struct {
	Date     time.Time
	ModeID   string
	ItemID   string
	Position int
}

// InsertResult distinguishes a fresh write from a conflict with existing rows.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	if r == AlreadyExists {
		return "already_exists"
	}
	return "inserted"
}

// ItemCount is a per-mode, per-status tally of the catalog.
type ItemCount struct {
	ModeID string
	Status ItemStatus
	Count  int
}
