package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/segyhp/loanbook/internal/app"
	"github.com/segyhp/loanbook/internal/config"
	"github.com/segyhp/loanbook/internal/logging"
	"github.com/segyhp/loanbook/internal/seed"
)

func main() {
	def := seed.DefaultConfig()
	var (
		customers    = flag.Int("customers", def.Customers, "number of customers to create")
		loans        = flag.Int("loans-per-customer", def.LoansPerCustomer, "loans issued to each customer")
		installments = flag.Int("max-installments", def.MaxInstallments, "upper bound of EMIs paid per loan")
		payOff       = flag.Float64("payoff-chance", def.PayOffChance, "probability a loan is settled in one lump sum")
		randSeed     = flag.Int64("seed", def.Seed, "random seed for deterministic generation")
		emailDomain  = flag.String("email-domain", def.EmailDomain, "domain for generated customer emails")
		timeout      = flag.Duration("timeout", 2*time.Minute, "abort seeding after this long")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.Logging).With("component", "seed")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if application.DB == nil {
		logger.Warn("seeding the in-memory store; the data disappears when this process exits")
	}

	summary, err := seed.New(seed.Config{
		Customers:        *customers,
		LoansPerCustomer: *loans,
		MaxInstallments:  *installments,
		PayOffChance:     clampProbability(*payOff),
		Seed:             *randSeed,
		EmailDomain:      *emailDomain,
	}, application.Service).Run(ctx)
	if err != nil {
		logger.Error("seeding failed", "error", err, "created", summary)
		application.Close()
		os.Exit(1)
	}

	if err := json.NewEncoder(os.Stdout).Encode(summary); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write summary: %v\n", err)
	}
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
