// Package main is the entry point for the fedscope transcript ingester.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/fedscope/fedscope/internal/ingest"
)

func main() {
	ingest.NewApp().Run()
}
