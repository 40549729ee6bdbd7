package store

import "time"

// Item categories match the three columns of a retro board.
const (
	CategoryWentWell   = "went_well"
	CategoryToImprove  = "to_improve"
	CategoryActionItem = "action_item"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryWentWell, CategoryToImprove, CategoryActionItem:
		return true
	}
	return false
}

type Retro struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Item struct {
	ID        string
	RetroID   string
	Category  string
	Content   string
	Likes     int
	CreatedAt time.Time
}
