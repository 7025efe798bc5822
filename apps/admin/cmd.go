package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
	emailsvc "github.com/trezcool/lms/services/email"
	"github.com/trezcool/lms/storage/database"
	inmemdb "github.com/trezcool/lms/storage/database/inmem"
	sqlxrepos "github.com/trezcool/lms/storage/database/sqlx"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errNoDatabase    = errors.New("this command needs a database (drop --inmem)")
	errNotATerminal  = errors.New("cannot ask for confirmation: input is not a terminal (use --yes)")
	errAborted       = errors.New("aborted")
	errMissingFlag   = errors.New("missing required flag")
	errInvalidKeyVal = errors.New("values must be of form KEY=VALUE")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	inmem  bool

	db     *sqlx.DB // nil with --inmem
	repo   scorm.Repository
	buffer scorm.BufferWriter
	svc    scorm.ServiceInterface

	in  io.Reader
	out io.Writer
}

func (cli *commandLine) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Operator commands for the SCORM runtime service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "token" {
				return nil
			}
			return cli.connect(cmd.Context())
		},
	}
	cmd.SetIn(cli.in)
	cmd.SetOut(cli.out)
	cmd.SetErr(cli.out)
	cmd.PersistentFlags().BoolVar(&cli.inmem, "inmem", false, "use the in-memory storage instead of the database")

	cmd.AddCommand(cli.migrateCommand())
	cmd.AddCommand(cli.commitCommand())
	cmd.AddCommand(cli.attemptCommand())
	cmd.AddCommand(cli.bufferCommand())
	cmd.AddCommand(cli.tokenCommand())
	return cmd
}

// connect sets up storage and the runtime service, unless already done.
func (cli *commandLine) connect(ctx context.Context) error {
	if cli.svc != nil {
		return nil
	}

	if cli.inmem {
		db := inmemdb.Open()
		cli.repo = inmemdb.NewAttemptRepository(db)
		cli.buffer = inmemdb.NewBufferRepository(db)
	} else {
		db, err := database.Open(cli.conf)
		if err != nil {
			return errors.Wrap(err, "opening database")
		}
		if err = database.Ping(ctx, db); err != nil {
			return errors.Wrap(err, "pinging database")
		}
		cli.db = db
		cli.repo = sqlxrepos.NewAttemptRepository(db)
		cli.buffer = sqlxrepos.NewBufferRepository(db)
	}

	mailSvc := emailsvc.NewConsoleService(cli.conf, cli.logger, log.New(cli.out, "MAIL : ", log.LstdFlags))
	cli.svc = scorm.NewService(cli.repo, cli.buffer, mailSvc, cli.logger, cli.conf)
	return nil
}

func (cli *commandLine) close() {
	if cli.db != nil {
		_ = cli.db.Close()
	}
}

// owner returns the learner owning the attempt; the CLI acts on their behalf.
func (cli *commandLine) owner(ctx context.Context, attemptID string) (scorm.Learner, error) {
	attempt, err := cli.repo.GetAttempt(ctx, core.CleanString(attemptID))
	if err != nil {
		return scorm.Learner{}, err
	}
	return scorm.Learner{ID: attempt.UserID}, nil
}

func (cli *commandLine) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling output")
	}
	_, err = fmt.Fprintln(cli.out, string(data))
	return err
}

func (cli *commandLine) confirm(prompt string) (bool, error) {
	if fd, ok := readerFd(cli.in); !ok || !isTerminalFunc(fd) {
		return false, errNotATerminal
	}
	_, _ = fmt.Fprintf(cli.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "reading answer")
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// readerFd returns the file descriptor behind r, if r is a file.
func readerFd(r io.Reader) (int, bool) {
	f, ok := r.(interface{ Fd() uintptr })
	if !ok {
		return 0, false
	}
	return int(f.Fd()), true
}

func requireFlag(name, value string) error {
	if core.CleanString(value) == "" {
		return errors.Wrap(errMissingFlag, "--"+name)
	}
	return nil
}
