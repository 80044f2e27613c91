package main

import (
	"github.com/collate-cloud/collate/cmd"
	"github.com/collate-cloud/collate/pkg/env"
	"github.com/collate-cloud/collate/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("collate failure", "error", err)
	}
}
