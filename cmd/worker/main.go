package main

import (
	"github.com/ilindan-dev/local-notifier/internal/app"
	"go.uber.org/fx"
)

// main is the entry point for the worker that fires due requests.
func main() {
	fx.New(app.WorkerModule).Run()
}
