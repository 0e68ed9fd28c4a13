package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[s.AssignmentID]; !ok {
		return submission.Submission{}, core.NewReferentialError("assignment_id")
	}
	if student, ok := repo.db.users[s.StudentID]; !ok || student.Role != core.RoleStudent {
		return submission.Submission{}, core.NewReferentialError("student_id")
	}
	s.ID = repo.db.nextID("submissions")
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id int) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return submission.Submission{}, core.ErrNotFound
}

// latest must be called with the lock held.
func (repo *submissionRepository) latest(assignmentID int) map[int]submission.Submission {
	current := make(map[int]submission.Submission)
	for _, s := range repo.db.submissions {
		if s.AssignmentID != assignmentID {
			continue
		}
		if cur, ok := current[s.StudentID]; !ok || isMoreRecent(*s, cur) {
			current[s.StudentID] = *s
		}
	}
	return current
}

func isMoreRecent(a, b submission.Submission) bool {
	if a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.ID > b.ID
	}
	return a.SubmittedAt.After(b.SubmittedAt)
}

func (repo *submissionRepository) QuerySubmissions(_ context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var rows []submission.Submission
	if filter.LatestOnly {
		for _, s := range repo.latest(filter.AssignmentID) {
			if filter.StudentID == 0 || s.StudentID == filter.StudentID {
				rows = append(rows, s)
			}
		}
	} else {
		for _, s := range repo.db.submissions {
			if s.AssignmentID != filter.AssignmentID {
				continue
			}
			if filter.StudentID != 0 && s.StudentID != filter.StudentID {
				continue
			}
			rows = append(rows, *s)
		}
	}
	if rows == nil {
		rows = []submission.Submission{}
	}
	sort.Slice(rows, func(i, j int) bool { return isMoreRecent(rows[i], rows[j]) })
	return rows, nil
}

func (repo *submissionRepository) UpdateSubmissionFile(_ context.Context, id, studentID int, file string, at time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok || s.StudentID != studentID {
		return 0, nil
	}
	s.File = file
	s.SubmittedAt = at
	return 1, nil
}

func (repo *submissionRepository) GradeSubmission(_ context.Context, id, teacherID int, grade null.Int, feedback null.String) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return 0, nil
	}
	if a, ok := repo.db.assignments[s.AssignmentID]; !ok || a.CreatedBy != teacherID {
		return 0, nil
	}
	s.Grade = grade
	s.Feedback = feedback
	return 1, nil
}

func (repo *submissionRepository) DeleteSubmission(_ context.Context, id, studentID int) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok || s.StudentID != studentID {
		return 0, nil
	}
	delete(repo.db.submissions, id)
	return 1, nil
}

func (repo *submissionRepository) Gradebook(_ context.Context, assignmentID int) ([]submission.GradebookEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]submission.GradebookEntry, 0)
	for studentID, s := range repo.latest(assignmentID) {
		entry := submission.GradebookEntry{
			SubmissionID: s.ID,
			StudentID:    studentID,
			File:         s.File,
			SubmittedAt:  s.SubmittedAt,
			Grade:        s.Grade,
			Feedback:     s.Feedback,
		}
		if u, ok := repo.db.users[studentID]; ok {
			entry.Username = u.Username
			entry.Email = u.Email
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })
	return entries, nil
}
