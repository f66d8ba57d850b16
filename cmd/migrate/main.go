package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"charity/internal/adapter/repo"
	"charity/internal/bootstrap"
	"charity/internal/infra"
	"charity/migrations"
)

func main() {
	var (
		downFlag    int
		versionFlag bool
		seedFlag    bool
	)
	flag.IntVar(&downFlag, "down", 0, "roll back this many migrations instead of migrating up")
	flag.BoolVar(&versionFlag, "version", false, "print the applied schema version and exit")
	flag.BoolVar(&seedFlag, "seed-demo", false, "upsert the demo project after migrating")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(fmt.Errorf("DATABASE_URL is required"))
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	switch {
	case versionFlag:
		v, dirty, err := migrations.Version(db)
		if err != nil {
			exitWithError(err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return
	case downFlag > 0:
		if err := migrations.Down(db, downFlag); err != nil {
			exitWithError(err)
		}
		fmt.Printf("rolled back %d migration(s)\n", downFlag)
		return
	}

	if err := migrations.Up(db); err != nil {
		exitWithError(err)
	}
	fmt.Println("schema is up to date")

	if seedFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dbURL})
		if err != nil {
			exitWithError(err)
		}
		defer pool.Close()
		logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()
		project := bootstrap.DemoProject
		if err := repo.NewProjectRepository(infra.NewSQLRunner(pool, logger)).Upsert(ctx, &project); err != nil {
			exitWithError(fmt.Errorf("seed demo project: %w", err))
		}
		fmt.Printf("demo project %q seeded\n", project.ID)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
