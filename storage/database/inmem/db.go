// Package inmemdb is an in-memory store enforcing the same uniqueness, referential and
// ownership-scoped semantics as the Postgres schema. All tables share one lock, which plays
// the part of the database's transaction isolation.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/announcement"
	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/core/submission"
	"github.com/trezcool/classwork/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex

		users         map[int]*user.User
		assignments   map[int]*assignment.Assignment
		submissions   map[int]*submission.Submission
		announcements map[int]*announcement.Announcement

		seq map[string]int
	}
)

func Open() *DB {
	return &DB{
		users:         make(map[int]*user.User),
		assignments:   make(map[int]*assignment.Assignment),
		submissions:   make(map[int]*submission.Submission),
		announcements: make(map[int]*announcement.Announcement),
		seq:           make(map[string]int),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// Truncate empties all tables; for tests.
func (db *DB) Truncate() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users = make(map[int]*user.User)
	db.assignments = make(map[int]*assignment.Assignment)
	db.submissions = make(map[int]*submission.Submission)
	db.announcements = make(map[int]*announcement.Announcement)
}

// less compares one ordering field of two rows: -1, 0 or 1.
type less[T any] func(field string, a, b T) int

// orderBy sorts rows by the given orderings, then by id.
func orderBy[T any](rows []T, ordering []core.DBOrdering, cmp less[T], id func(T) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(ord.Field, rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return id(rows[i]) < id(rows[j])
	})
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
