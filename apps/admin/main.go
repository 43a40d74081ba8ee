package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/user"
	emailsvc "github.com/trezcool/mradi/services/email"
	logsvc "github.com/trezcool/mradi/services/logger"
	"github.com/trezcool/mradi/storage"
	"github.com/trezcool/mradi/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	os.Exit(run(conf, logger))
}

func run(conf *core.Config, logger core.Logger) int {
	cli := commandLine{}

	if conf.Database.Engine == core.EnginePostgres {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Error(fmt.Sprintf("creating database: %v", err), err)
			return 1
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Error(fmt.Sprintf("opening database: %v", err), err)
			return 1
		}
		defer db.Close()
		cli.db = db.DB
	}

	repos, err := storage.Open(context.Background(), conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening storage: %v", err), err)
		return 1
	}
	defer repos.Close()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli.usrSvc = user.NewService(repos.Users, emailsvc.NewConsoleService(conf, logger), validate, conf)

	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		return 1
	}
	return 0
}
