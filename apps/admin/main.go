package main

import (
	"log"
	"os"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/core/account"
	"github.com/edecs/elearn/core/course"
	emailsvc "github.com/edecs/elearn/services/email"
	sendgridmail "github.com/edecs/elearn/services/email/sendgrid"
	dummyauth "github.com/edecs/elearn/services/identity/dummy"
	firebaseauth "github.com/edecs/elearn/services/identity/firebase"
	logsvc "github.com/edecs/elearn/services/logger"
	"github.com/edecs/elearn/storage/tree"
	firebasetree "github.com/edecs/elearn/storage/tree/firebase"
	inmemtree "github.com/edecs/elearn/storage/tree/inmem"
)

var stdLogger *log.Logger

func main() {
	defer os.Exit(0)

	stdLogger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	var db tree.Store
	var provider core.IdentityProvider
	var mailSvc core.EmailService
	if conf.Debug {
		db = inmemtree.NewStore()
		provider = dummyauth.NewService()
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		db = firebasetree.NewStore(conf, logger)
		provider = firebaseauth.NewService(conf)
		mailSvc = sendgridmail.NewService(conf, logger)
	}

	roles := account.NewStore(db)

	// start CLI
	cli := commandLine{
		accountSvc: account.NewService(db, roles, provider, mailSvc, logger, conf),
		courseRepo: course.NewRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
