package main

import (
	"context"

	"github.com/shandysiswandi/entryotp/internal/app"
)

// @title           EntryOTP API
// @version         1.0
// @description     EntryOTP registers entries and verifies their contact details with one-time passwords.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
func main() {
	application := app.New()
	<-application.Start()

	ctx, cancel := context.WithTimeout(context.Background(), application.ShutdownTimeout())
	defer cancel()
	application.Stop(ctx)
}
