package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/announcement"
	"github.com/trezcool/classwork/storage/database"
)

const announcementColumns = "id, title, content, created_by, created_at"

type announcementRepository struct {
	db queryer
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db queryer) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	err := repo.db.GetContext(ctx, &a.ID,
		"INSERT INTO announcements (title, content, created_by, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		a.Title, a.Content, a.CreatedBy, a.CreatedAt,
	)
	if err != nil {
		return announcement.Announcement{}, database.WriteError(err)
	}
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(ctx context.Context, id int) (announcement.Announcement, error) {
	var a announcement.Announcement
	if err := repo.db.GetContext(ctx, &a, "SELECT "+announcementColumns+" FROM announcements WHERE id = $1", id); err != nil {
		return announcement.Announcement{}, notFound(err)
	}
	return a, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, ordering []core.DBOrdering) ([]announcement.Announcement, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	rows := make([]announcement.Announcement, 0)
	q := "SELECT " + announcementColumns + " FROM announcements" + orderBy(ordering, announcement.Orderings, "")
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}
	return rows, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (int64, error) {
	return affected(repo.db.ExecContext(ctx,
		"UPDATE announcements SET title = $1, content = $2 WHERE id = $3 AND created_by = $4",
		a.Title, a.Content, a.ID, a.CreatedBy,
	))
}

func (repo *announcementRepository) DeleteAnnouncement(ctx context.Context, id, ownerID int) (int64, error) {
	return affected(repo.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1 AND created_by = $2", id, ownerID))
}
