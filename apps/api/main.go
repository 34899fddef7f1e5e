package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/edecs/elearn/apps/api/echo"
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

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up storage & collaborators; DEV mode runs fully in-memory
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
	accountSvc := account.NewService(db, roles, provider, mailSvc, logger, conf)
	courseRepo := course.NewRepository(db)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// keep the role mirror warm for the whole process lifetime
	unsub, err := roles.WatchAll(func(map[string]account.Record) {})
	if err != nil {
		logger.Fatal(fmt.Sprintf("watching role records: %v", err), err)
	}
	defer unsub()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			AccountSvc: accountSvc,
			CourseRepo: courseRepo,
			Provider:   provider,
			Tree:       db,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
