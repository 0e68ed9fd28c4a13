// Package testutil wires the application on the in-memory database for tests.
package testutil

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/announcement"
	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/core/attachment"
	"github.com/trezcool/classwork/core/auth"
	"github.com/trezcool/classwork/core/submission"
	"github.com/trezcool/classwork/core/user"
	emailsvc "github.com/trezcool/classwork/services/email"
	logsvc "github.com/trezcool/classwork/services/logger"
	"github.com/trezcool/classwork/services/metrics"
	inmemdb "github.com/trezcool/classwork/storage/database/inmem"
	"github.com/trezcool/classwork/storage/files"
)

// Password is the password of every user made by CreateUser.
const Password = "correct-horse-42"

type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Store      *files.Local
	StoreRoot  string
	Logger     *logsvc.Logger
	Mail       *emailsvc.ConsoleService
	Metrics    *metrics.Metrics
	Hasher     *auth.BcryptHasher
	Issuer     *auth.Issuer
	Authorizer *auth.Authorizer
	Intake     *attachment.Intake
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo         user.Repository
	AssignmentRepo   assignment.Repository
	SubmissionRepo   submission.Repository
	AnnouncementRepo announcement.Repository

	UserSvc         *user.Service
	AssignmentSvc   *assignment.Service
	SubmissionSvc   *submission.Service
	AnnouncementSvc *announcement.Service
}

func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Classwork",
		Build:                     "test",
		SecretKey:                 "test-secret-key",
		SessionTTL:                time.Hour,
		PasswordResetTimeoutDelta: 24 * time.Hour,
		FrontendBaseURL:           "http://classwork.test",
		DefaultFromEmail:          "noreply@classwork.test",
		Storage:                   core.StorageConfig{Backend: "local"},
		Logger:                    core.LoggerConfig{Level: "error"},
	}
}

// NewValidator returns the validator with every custom validation of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.RegisterValidations(validate, translator)
	return validate, translator
}

// NewEnv wires a fresh in-memory database, a temporary file store and every service.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	env := &Env{
		Conf:    conf,
		DB:      inmemdb.Open(),
		Logger:  logsvc.NewLogger(zap.NewNop(), nil),
		Metrics: metrics.New(),
		Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
	}
	env.Mail = emailsvc.NewConsoleServiceMock(conf, env.Logger)
	env.Validate, env.Translator = NewValidator()

	var err error
	env.StoreRoot = t.TempDir()
	if env.Store, err = files.NewLocal(env.StoreRoot); err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}
	if env.Issuer, err = auth.NewIssuer([]byte(conf.SecretKey), conf.SessionTTL, conf.AppName); err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}
	env.Authorizer = auth.NewAuthorizer(inmemdb.NewOwnership(env.DB), env.Metrics.ObserveDecision)

	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.AssignmentRepo = inmemdb.NewAssignmentRepository(env.DB)
	env.SubmissionRepo = inmemdb.NewSubmissionRepository(env.DB)
	env.AnnouncementRepo = inmemdb.NewAnnouncementRepository(env.DB)

	env.UserSvc = user.NewService(user.Deps{
		Repo:       env.UserRepo,
		Hasher:     env.Hasher,
		Issuer:     env.Issuer,
		Authorizer: env.Authorizer,
		Mail:       env.Mail,
		Validate:   env.Validate,
		Translator: env.Translator,
		Logger:     env.Logger,
		Conf:       conf,
	})
	env.SetStore(env.Store)
	env.AnnouncementSvc = announcement.NewService(announcement.Deps{
		Repo:       env.AnnouncementRepo,
		Authorizer: env.Authorizer,
		Validate:   env.Validate,
		Translator: env.Translator,
	})
	return env
}

// SetStore rebuilds the attachment intake and the services using it on top of store.
// Env.Store and StoredFiles keep referring to the temporary local store.
func (env *Env) SetStore(store attachment.Store) {
	env.Intake = attachment.NewIntake(store, env.Metrics.ObserveRejection)
	env.AssignmentSvc = assignment.NewService(assignment.Deps{
		Repo:       env.AssignmentRepo,
		Authorizer: env.Authorizer,
		Intake:     env.Intake,
		Validate:   env.Validate,
		Translator: env.Translator,
		Logger:     env.Logger,
	})
	env.SubmissionSvc = submission.NewService(submission.Deps{
		Repo:       env.SubmissionRepo,
		Authorizer: env.Authorizer,
		Intake:     env.Intake,
		Validate:   env.Validate,
		Translator: env.Translator,
		Logger:     env.Logger,
	})
}

// CreateUser stores a user with Password, bypassing the service.
func (env *Env) CreateUser(t *testing.T, uname string, role core.Role) user.User {
	t.Helper()
	hash, err := env.Hasher.Hash(Password)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := env.UserRepo.CreateUser(context.Background(), user.User{
		Username:     uname,
		Email:        uname + "@classwork.test",
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (env *Env) Token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := env.Issuer.Issue(usr.ID, usr.Username, usr.Role)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}

func Caller(usr user.User) auth.Caller {
	return auth.Caller{ID: usr.ID, Username: usr.Username, Role: usr.Role}
}

// CreateAssignment stores an assignment of teacher, due in a week, bypassing the service.
func (env *Env) CreateAssignment(t *testing.T, teacher user.User, title string) assignment.Assignment {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	a, err := env.AssignmentRepo.CreateAssignment(context.Background(), assignment.Assignment{
		Title:       title,
		Description: null.StringFrom("Read chapter " + title),
		Subject:     "Math",
		DueDate:     now.Add(7 * 24 * time.Hour),
		CreatedBy:   teacher.ID,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

// CreateSubmission stores a submission of student, bypassing the service and the file store.
func (env *Env) CreateSubmission(t *testing.T, student user.User, a assignment.Assignment, at time.Time) submission.Submission {
	t.Helper()
	sub, err := env.SubmissionRepo.CreateSubmission(context.Background(), submission.Submission{
		AssignmentID: a.ID,
		StudentID:    student.ID,
		File:         "submissions/" + student.Username + ".pdf",
		SubmittedAt:  at.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}

func (env *Env) CreateAnnouncement(t *testing.T, author user.User, title string) announcement.Announcement {
	t.Helper()
	ann, err := env.AnnouncementRepo.CreateAnnouncement(context.Background(), announcement.Announcement{
		Title:     title,
		Content:   "Content of " + title,
		CreatedBy: author.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAnnouncement() failed: %v", err)
	}
	return ann
}

// Upload returns an upload of size bytes declaring name.
func Upload(name string, size int) attachment.Upload {
	return attachment.Upload{
		Name:    name,
		Size:    int64(size),
		Content: bytes.NewReader([]byte(strings.Repeat("x", size))),
	}
}

// StoredFiles lists the keys of the files present in the store.
func (env *Env) StoredFiles(t *testing.T) []string {
	t.Helper()
	var keys []string
	err := filepath.WalkDir(env.StoreRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(env.StoreRoot, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("StoredFiles() failed: %v", err)
	}
	return keys
}
