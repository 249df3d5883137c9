// Package main is the entry point for the fedscope analysis service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/fedscope/fedscope/internal/fedscope"
)

func main() {
	fedscope.NewApp().Run()
}
