package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/passgate/internal/app"
)

const shutdownTimeout = 10 * time.Second

// @title           Passgate API
// @version         1.0
// @description     Passgate provides OTP-gated registration and session APIs.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	svc := app.New()
	<-svc.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	svc.Stop(ctx)
}
