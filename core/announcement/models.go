package announcement

import (
	"time"

	"github.com/trezcool/classwork/core"
)

var Orderings = []string{"id", "title", "created_at"}

type Announcement struct {
	ID        int       `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedBy int       `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewAnnouncement struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

func (na *NewAnnouncement) clean() {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
}

// UpdateAnnouncement leaves empty fields unchanged.
type UpdateAnnouncement struct {
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"max=10000"`
}

func (ua *UpdateAnnouncement) clean(orig Announcement) {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	if content := core.CleanString(ua.Content); content != "" {
		ua.Content = content
	} else {
		ua.Content = orig.Content
	}
}
