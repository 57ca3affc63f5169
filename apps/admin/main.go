package main

import (
	"log"
	"os"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/course"
	"github.com/trezcool/moodlegw/core/moodle"
	"github.com/trezcool/moodlegw/core/site"
	"github.com/trezcool/moodlegw/core/user"
	logsvc "github.com/trezcool/moodlegw/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	if err := newRootCmd(newApp(conf, logger)).Execute(); err != nil {
		logger.Close()
		os.Exit(1)
	}
}

// app holds the orchestrators the commands run.
type app struct {
	users   *user.Service
	courses *course.Service
	site    *site.Service
}

func newApp(conf *core.Config, logger core.Logger) *app {
	validator := core.NewValidator()
	client := moodle.NewClient(
		moodle.NewHTTPTransport(conf.Moodle.URL, conf.Moodle.Timeout),
		conf.Moodle.Token,
		logger,
	)
	usrSvc := user.NewService(conf, client, validator, nil, logger)
	return &app{
		users:   usrSvc,
		courses: course.NewService(conf, client, usrSvc, validator, logger),
		site:    site.NewService(client),
	}
}
