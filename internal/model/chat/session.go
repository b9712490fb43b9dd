package chat

import "time"

// Page names the screen a view instance renders.
type Page string

const (
	PageChat      Page = "chat"
	PageDashboard Page = "dashboard"
)

// ViewSession describes one mounted view instance.
type ViewSession struct {
	ID        string    `json:"id"`
	Page      Page      `json:"page"`
	Surfaces  []string  `json:"surfaces,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
