package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"charity/internal/infra"
	"charity/internal/infra/credentials"
)

func main() {
	var (
		keyFlag        string
		productionFlag bool
	)
	flag.StringVar(&keyFlag, "key", "", "Midtrans server key (falls back to MIDTRANS_SERVER_KEY)")
	flag.BoolVar(&productionFlag, "production", false, "the key belongs to the production environment")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("MIDTRANS_SERVER_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "Midtrans server key is required via -key or MIDTRANS_SERVER_KEY")
		os.Exit(1)
	}
	if productionFlag == strings.HasPrefix(key, "SB-") {
		fmt.Fprintln(os.Stderr, "warning: sandbox keys start with SB-; check -production")
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "gatewaykey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.SetMidtransServerKey(ctxExec, key, productionFlag); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist midtrans server key: %v\n", err)
		os.Exit(1)
	}

	env := "sandbox"
	if productionFlag {
		env = "production"
	}
	fmt.Printf("Midtrans %s server key stored successfully\n", env)
}
