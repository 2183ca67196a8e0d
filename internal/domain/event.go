package domain

import "time"

// Event represents a ticketed event (category-based inventory).
type Event struct {
	ID       string
	Name     string
	StartsAt time.Time
}
