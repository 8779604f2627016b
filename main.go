package main

import (
	"log"

	"marcovega/pgrecord/cmd/cli"
	"marcovega/pgrecord/internal/config"
	"marcovega/pgrecord/internal/logger"
)

func main() {
	cfg, err := config.Load("./config/config.toml")
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Setup(cfg.Logging); err != nil {
		log.Fatal(err)
	}

	cli.Run(cfg)
}
