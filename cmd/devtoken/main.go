// Command devtoken mints a session token for local development.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sahwira-ai/sahwira/internal/config"
	"github.com/sahwira-ai/sahwira/internal/middleware"
)

func main() {
	cfg := config.Load()

	fs := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	subject := fs.StringP("sub", "s", "dev-user", "user id placed in the sub claim")
	email := fs.StringP("email", "e", "dev@example.com", "session email")
	name := fs.StringP("name", "n", "Dev User", "display name")
	picture := fs.String("picture", "", "avatar URL")
	ttl := fs.Duration("ttl", cfg.JWTExpiration, "token lifetime")
	secret := fs.String("secret", cfg.JWTSecret, "HS256 signing secret (defaults to JWT_SECRET)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	token, err := middleware.IssueToken(*secret, *subject, *email, *name, *picture, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(token)
	if *ttl <= 0 {
		fmt.Fprintln(os.Stderr, "warning: token is already expired")
	}
}
