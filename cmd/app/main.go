package main

import (
	"github.com/ilindan-dev/local-notifier/internal/app"
	"go.uber.org/fx"
)

// main is the entry point for the terminal client.
func main() {
	fx.New(app.ClientModule).Run()
}
