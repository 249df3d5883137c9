// Package main is the entry point for the fedscope evaluation sweep.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/fedscope/fedscope/internal/eval"
)

func main() {
	eval.NewApp().Run()
}
