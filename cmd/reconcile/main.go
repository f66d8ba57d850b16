package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"charity/internal/adapter/repo"
	"charity/internal/infra"
	"charity/internal/reconcile"
)

func main() {
	var (
		projectFlag string
		applyFlag   bool
		timeoutFlag time.Duration
	)
	flag.StringVar(&projectFlag, "project", "", "project ID to check (default: every project)")
	flag.BoolVar(&applyFlag, "apply", false, "overwrite drifted counters with the values derived from donations and registrations")
	flag.DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "overall time limit")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dbURL})
	if err != nil {
		exitWithError(err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "reconcile").Logger()
	svc := reconcile.NewService(repo.NewProjectRepository(infra.NewSQLRunner(pool, logger)), logger)

	var drifts []reconcile.Drift
	projectID := strings.TrimSpace(projectFlag)
	switch {
	case projectID != "" && applyFlag:
		d, err := svc.Repair(ctx, projectID)
		if err != nil {
			exitWithError(fmt.Errorf("repair %s: %w", projectID, err))
		}
		drifts = append(drifts, d)
	case projectID != "":
		d, err := svc.Check(ctx, projectID)
		if err != nil {
			exitWithError(fmt.Errorf("check %s: %w", projectID, err))
		}
		drifts = append(drifts, d)
	default:
		drifts, err = svc.CheckAll(ctx, applyFlag)
		if err != nil {
			exitWithError(err)
		}
	}

	drifted := 0
	for _, d := range drifts {
		if !d.Drifted() {
			continue
		}
		drifted++
		fmt.Printf("%s stored=%+v derived=%+v\n", d.ProjectID, d.Stored, d.Derived)
	}
	fmt.Printf("%d projects checked, %d drifted", len(drifts), drifted)
	if applyFlag && drifted > 0 {
		fmt.Print(", repaired")
	}
	fmt.Println()
	if drifted > 0 && !applyFlag {
		os.Exit(2)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
