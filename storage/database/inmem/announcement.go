package inmemdb

import (
	"context"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[a.CreatedBy]; !ok {
		return announcement.Announcement{}, core.NewReferentialError("created_by")
	}
	a.ID = repo.db.nextID("announcements")
	repo.db.announcements[a.ID] = &a
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id int) (announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.announcements[id]; ok {
		return *a, nil
	}
	return announcement.Announcement{}, core.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, ordering []core.DBOrdering) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]announcement.Announcement, 0, len(repo.db.announcements))
	for _, a := range repo.db.announcements {
		rows = append(rows, *a)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	orderBy(rows, ordering, func(field string, a, b announcement.Announcement) int {
		switch field {
		case "title":
			return cmpString(a.Title, b.Title)
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		default:
			return cmpInt(a.ID, b.ID)
		}
	}, func(a announcement.Announcement) int { return a.ID })
	return rows, nil
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.announcements[a.ID]
	if !ok || orig.CreatedBy != a.CreatedBy {
		return 0, nil
	}
	orig.Title = a.Title
	orig.Content = a.Content
	return 1, nil
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id, ownerID int) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.announcements[id]
	if !ok || a.CreatedBy != ownerID {
		return 0, nil
	}
	delete(repo.db.announcements, id)
	return 1, nil
}
