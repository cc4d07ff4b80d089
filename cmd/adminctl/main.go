// Command adminctl provisions accounts from the shell: plain clients,
// business owners with a password, and admins. It talks straight to
// the database, so it works before the first admin exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/service/authservice"
	"github.com/bonusclub/auth-api/internal/sms"
	"github.com/bonusclub/auth-api/internal/store"
)

var (
	phone    = flag.String("phone", "", "Phone number for the new account (required)")
	password = flag.String("password", "", "Password; makes the account a business owner")
	business = flag.String("business", "", "Business name; required together with -password")
	admin    = flag.Bool("admin", false, "Grant the admin flag")
)

func main() {
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if *phone == "" {
		fmt.Fprintln(os.Stderr, "-phone is required")
		flag.Usage()
		os.Exit(2)
	}

	pgURL := os.Getenv("DATABASE_URL")
	if pgURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.Open(ctx, pgURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// One-shot writes need no cache coherence; readers fault rows in
	// on demand.
	svc := authservice.New(authservice.Deps{
		Store: store.NewPostgres(pool),
		Cache: cache.NewNoop(),
		SMS:   sms.LogSender{},
	})

	params := authservice.CreateUserParams{Phone: *phone, IsAdmin: *admin}
	if *password != "" {
		params.Password = password
	}
	if *business != "" {
		params.BusinessName = business
	}

	user, biz, err := svc.CreateUser(ctx, params)
	if err != nil {
		log.Fatal().Err(err).Msg("create user failed")
	}

	fmt.Printf("user %s phone %s admin %t\n", user.ID, user.Phone, user.IsAdmin)
	if biz != nil {
		fmt.Printf("business %s code %s\n", biz.Name, biz.Code)
	}
}
