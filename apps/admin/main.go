package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/gradebook/core"
	backendsvc "github.com/trezcool/gradebook/services/backend"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/kv"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up zap logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(false)

	// set up durable storage
	durable, closeDurable, err := kv.Open(context.Background(), conf, kv.Durable)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up durable storage: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		out:     os.Stdout,
		backend: backendsvc.NewClient(conf),
		durable: durable,
		logger:  logger,
	}
	err = cli.run(os.Args)
	_ = closeDurable()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
