package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	echoapi "github.com/trezcool/moodlegw/apps/api/echo"
	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/course"
	"github.com/trezcool/moodlegw/core/moodle"
	"github.com/trezcool/moodlegw/core/site"
	"github.com/trezcool/moodlegw/core/user"
	emailsvc "github.com/trezcool/moodlegw/services/email"
	logsvc "github.com/trezcool/moodlegw/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	moodleLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "MOODLE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	if conf.Moodle.Token == "" {
		logger.Fatal("moodle token is not configured (" + conf.Env + "_MOODLE_TOKEN)")
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.Mail.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validator := core.NewValidator()
	client := moodle.NewClient(
		moodle.NewHTTPTransport(conf.Moodle.URL, conf.Moodle.Timeout),
		conf.Moodle.Token,
		moodleLogger,
	)
	usrSvc := user.NewService(conf, client, validator, mailSvc, logger)
	courseSvc := course.NewService(conf, client, usrSvc, validator, logger)
	siteSvc := site.NewService(client)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	logger.Info("config: " + conf.String())
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("moodle").Set(conf.Moodle.URL)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:      conf,
			Logger:    logger,
			UserSvc:   usrSvc,
			CourseSvc: courseSvc,
			SiteSvc:   siteSvc,
			Validator: validator,
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
