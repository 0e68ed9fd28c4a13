package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/trezcool/classwork/apps/api/echo"
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
	"github.com/trezcool/classwork/storage/database"
	sqlxrepos "github.com/trezcool/classwork/storage/database/sqlx"
	"github.com/trezcool/classwork/storage/files"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logsvc.New(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer logger.Sync()

	if err = run(conf, logger); err != nil {
		logger.Error("Application failed", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(conf *core.Config, logger *logsvc.Logger) error {
	ctx := context.Background()

	// =========================================================================
	// Set up Dependencies

	db, err := database.Open(ctx, conf.Database)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}()
	if err = database.Migrate(ctx, db, "up"); err != nil {
		return err
	}

	store, err := newStore(ctx, conf.Storage)
	if err != nil {
		return errors.Wrap(err, "setting up file storage")
	}

	issuer, err := auth.NewIssuer([]byte(conf.SecretKey), conf.SessionTTL, conf.AppName)
	if err != nil {
		return errors.Wrap(err, "setting up sessions")
	}

	mtr := metrics.New()
	authz := auth.NewAuthorizer(sqlxrepos.NewOwnership(db), mtr.ObserveDecision)
	intake := attachment.NewIntake(store, mtr.ObserveRejection)

	validate, translator := core.NewValidator()
	user.RegisterValidations(validate, translator)

	// no mail provider is wired: messages are written to the log
	mailSvc := emailsvc.NewConsoleService(conf, logger)

	usrSvc := user.NewService(user.Deps{
		Repo:       sqlxrepos.NewUserRepository(db),
		Hasher:     auth.NewBcryptHasher(bcrypt.DefaultCost),
		Issuer:     issuer,
		Authorizer: authz,
		Mail:       mailSvc,
		Validate:   validate,
		Translator: translator,
		Logger:     logger,
		Conf:       conf,
	})
	asgSvc := assignment.NewService(assignment.Deps{
		Repo:       sqlxrepos.NewAssignmentRepository(db),
		Authorizer: authz,
		Intake:     intake,
		Validate:   validate,
		Translator: translator,
		Logger:     logger,
	})
	subSvc := submission.NewService(submission.Deps{
		Repo:       sqlxrepos.NewSubmissionRepository(db),
		Authorizer: authz,
		Intake:     intake,
		Validate:   validate,
		Translator: translator,
		Logger:     logger,
	})
	annSvc := announcement.NewService(announcement.Deps{
		Repo:       sqlxrepos.NewAnnouncementRepository(db),
		Authorizer: authz,
		Validate:   validate,
		Translator: translator,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus collectors of the API.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", mtr.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:         conf.Server.Address,
			Debug:           conf.Debug,
			Logger:          logger,
			Issuer:          issuer,
			Metrics:         mtr,
			UserSvc:         usrSvc,
			AssignmentSvc:   asgSvc,
			SubmissionSvc:   subSvc,
			AnnouncementSvc: annSvc,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening on " + conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func newStore(ctx context.Context, conf core.StorageConfig) (attachment.Store, error) {
	if conf.Backend == "b2" {
		return files.NewB2(ctx, conf.B2AccountID, conf.B2AppKey, conf.B2Bucket)
	}
	return files.NewLocal(conf.Root)
}
