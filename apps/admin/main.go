package main

import (
	"context"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/auth"
	"github.com/trezcool/classwork/core/user"
	emailsvc "github.com/trezcool/classwork/services/email"
	logsvc "github.com/trezcool/classwork/services/logger"
	"github.com/trezcool/classwork/storage/database"
	sqlxrepos "github.com/trezcool/classwork/storage/database/sqlx"
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

	db, err := database.Open(context.Background(), conf.Database)
	if err != nil {
		logger.Fatal("setting up database", err)
	}

	issuer, err := auth.NewIssuer([]byte(conf.SecretKey), conf.SessionTTL, conf.AppName)
	if err != nil {
		logger.Fatal("setting up sessions", err)
	}
	validate, translator := core.NewValidator()
	user.RegisterValidations(validate, translator)

	cli := commandLine{
		db: db,
		usrSvc: user.NewService(user.Deps{
			Repo:       sqlxrepos.NewUserRepository(db),
			Hasher:     auth.NewBcryptHasher(bcrypt.DefaultCost),
			Issuer:     issuer,
			Authorizer: auth.NewAuthorizer(sqlxrepos.NewOwnership(db)),
			Mail:       emailsvc.NewConsoleService(conf, logger),
			Validate:   validate,
			Translator: translator,
			Logger:     logger,
			Conf:       conf,
		}),
	}

	err = cli.run(os.Args)
	_ = db.Close()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
			logger.Sync()
		}
		os.Exit(1)
	}
}
