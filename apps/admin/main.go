package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/lms/core"
	logsvc "github.com/trezcool/lms/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	cli := &commandLine{
		conf:   conf,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	defer cli.close()

	if err := cli.rootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		cli.close()
		os.Exit(1)
	}
}
