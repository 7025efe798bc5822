package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/lms/apps/api/echo"
	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
	emailsvc "github.com/trezcool/lms/services/email"
	logsvc "github.com/trezcool/lms/services/logger"
	"github.com/trezcool/lms/storage/database"
	sqlxrepos "github.com/trezcool/lms/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := newLogger("API", conf)

	if err := run(conf, logger); err != nil {
		logger.Fatal(err.Error(), err)
	}
}

func newLogger(prefix string, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	return logger
}

// newMailService prints emails in debug mode and sends them with sendgrid otherwise.
func newMailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger, log.New(os.Stdout, "MAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func run(conf *core.Config, logger core.Logger) error {
	logger.Info(fmt.Sprintf("runtime api starting : version %q", conf.Build))
	defer logger.Info("runtime api stopped")

	db, err := setUpDB(context.Background(), conf)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if cErr := db.Close(); cErr != nil {
			newLogger("DB", conf).Error("closing database", cErr)
		}
	}()

	runtimeSvc := scorm.NewService(
		sqlxrepos.NewAttemptRepository(db),
		sqlxrepos.NewBufferRepository(db),
		newMailService(conf, logger),
		logger,
		conf,
	)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// /debug/pprof and /debug/vars are registered on the default mux by their imports
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	go func() {
		if dErr := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); dErr != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", dErr), dErr)
		}
	}()

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		RuntimeSvc: runtimeSvc,
		Validate:   validate,
		Translator: translator,
	})
	go server.Start()

	select {
	case err = <-server.Errors():
		return errors.Wrap(err, "server error")

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: shutting down", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
			if err = server.Close(); err != nil {
				return errors.Wrap(err, "forcing server close")
			}
		}
	}
	return nil
}

// setUpDB creates the database if needed, waits for it, then applies the migrations.
func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
