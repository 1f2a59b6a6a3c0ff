// Command sportsmeetctl seeds and inspects a sportsmeet store from the shell.
package main

import (
	"log"
	"os"

	"github.com/okian/sportsmeet/internal/config"
	"github.com/okian/sportsmeet/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}

	if err := newApp(os.Stdout, openStore).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
