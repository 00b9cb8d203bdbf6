// crmctl работает с одним заказом через REST API так же, как панель: загрузить заказ,
// поправить сроки и сырьё, передать на склад.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"crm-orders/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg := config.MustConfig()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "crmctl:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: crmctl <command> [flags]

commands:
  token      -role ROLE [-subject NAME]            print a bearer token for ROLE
  show       -order ID                             show order, raw materials and deadlines
  deadline   -order ID -start DATE -end DATE       set the main deadline
  materials  -order ID -item NAME=QTY ...          replace the raw material list
  deadlines  -order ID -item NAME|START|END|STATUS[|REASON] ...
                                                   replace the internal deadlines
  handoff    -order ID -yes                        send the order to the warehouse

common flags: -token TOKEN (env CRM_TOKEN); without it a token is minted from auth.jwt_secret
`)
}
