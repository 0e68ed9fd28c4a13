package inmemdb

import (
	"context"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if owner, ok := repo.db.users[a.CreatedBy]; !ok || owner.Role != core.RoleTeacher {
		return assignment.Assignment{}, core.NewReferentialError("created_by")
	}
	a.ID = repo.db.nextID("assignments")
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id int) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, core.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, filter assignment.QueryFilter, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]assignment.Assignment, 0, len(repo.db.assignments))
	for _, a := range repo.db.assignments {
		if filter.CreatedBy != 0 && a.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Subject != "" && a.Subject != filter.Subject {
			continue
		}
		rows = append(rows, *a)
	}
	orderBy(rows, ordering, compareAssignments, func(a assignment.Assignment) int { return a.ID })
	return rows, nil
}

func compareAssignments(field string, a, b assignment.Assignment) int {
	switch field {
	case "title":
		return cmpString(a.Title, b.Title)
	case "subject":
		return cmpString(a.Subject, b.Subject)
	case "due_date":
		return a.DueDate.Compare(b.DueDate)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return cmpInt(a.ID, b.ID)
	}
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, a assignment.Assignment) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.assignments[a.ID]
	if !ok || orig.CreatedBy != a.CreatedBy {
		return 0, nil
	}
	orig.Title = a.Title
	orig.Description = a.Description
	orig.Subject = a.Subject
	orig.DueDate = a.DueDate
	orig.Attachment = a.Attachment
	return 1, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id, ownerID int) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.assignments[id]
	if !ok || a.CreatedBy != ownerID {
		return 0, nil
	}
	for _, s := range repo.db.submissions {
		if s.AssignmentID == id {
			return 0, core.NewConflictError("id", "the assignment still has submissions")
		}
	}
	delete(repo.db.assignments, id)
	return 1, nil
}
