// Command admintoken mints an operator JWT for the /api/v1/admin routes,
// signed with the server's JWT_SECRET.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"chatrelay/internal/config"
	"chatrelay/internal/logging"
	"chatrelay/internal/middleware"
)

var cli struct {
	Subject string        `short:"s" default:"operator" help:"Token subject, logged on admin actions."`
	TTL     time.Duration `default:"24h" help:"Token lifetime."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("admintoken"),
		kong.Description("Mint an admin token for the chat relay."),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	logging.Init(os.Stderr, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		logging.Fatal("JWT_SECRET is not set")
	}
	if cli.TTL <= 0 {
		logging.Fatal("ttl must be positive", "ttl", cli.TTL)
	}

	token, err := middleware.NewJWTAuth(cfg.JWTSecret).GenerateAdminToken(cli.Subject, cli.TTL)
	if err != nil {
		logging.Fatal("failed to sign token", "err", err)
	}
	fmt.Println(token)
}
