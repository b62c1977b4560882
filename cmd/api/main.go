package main

import (
	"github.com/ilindan-dev/local-notifier/internal/app"
	"go.uber.org/fx"
)

// main is the entry point for the notification center's API server.
func main() {
	// We create and run the Fx application specifically for the API.
	fx.New(app.APIModule).Run()
}
