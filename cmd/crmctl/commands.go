package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"crm-orders/internal/config"
	"crm-orders/internal/constants"
	"crm-orders/internal/gateway"
	"crm-orders/internal/metrics"
	"crm-orders/internal/middleware/auth"
	"crm-orders/internal/notify"
	"crm-orders/internal/service/loader"
	"crm-orders/internal/service/workflow"
	"crm-orders/internal/storage"
)

var errUsage = errors.New("invalid arguments")

// listFlag собирает повторяющийся флаг -item.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ", ") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer, args []string) error {
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)

	token := fs.String("token", os.Getenv("CRM_TOKEN"), "bearer token")
	orderID := fs.Int64("order", 0, "order id")

	switch cmd {
	case "token":
		role := fs.String("role", cfg.Gateway.Role, "role: admin, sales, warehouse, operation")
		subject := fs.String("subject", "crmctl", "token subject")
		if err := fs.Parse(args); err != nil {
			return err
		}

		signed, err := auth.NewToken(cfg.JWTSecret, *subject, *role, cfg.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, signed)
		return nil

	case "show":
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, q, err := openSession(ctx, cfg, log, out, *token, *orderID)
		if err != nil {
			return err
		}
		defer printNotifications(out, q)

		printSession(out, s)
		return nil

	case "deadline":
		start := fs.String("start", "", "main deadline start")
		end := fs.String("end", "", "main deadline end")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, q, err := openSession(ctx, cfg, log, out, *token, *orderID)
		if err != nil {
			return err
		}
		defer printNotifications(out, q)

		return s.UpdateMainDeadline(ctx, *start, *end)

	case "materials":
		var items listFlag
		fs.Var(&items, "item", "raw material as NAME=QTY, repeatable")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, q, err := openSession(ctx, cfg, log, out, *token, *orderID)
		if err != nil {
			return err
		}
		defer printNotifications(out, q)

		for _, row := range s.RawMaterials() {
			if err := s.RemoveRawMaterial(row.ID); err != nil {
				return err
			}
		}
		for _, item := range items {
			name, qty, err := parseMaterial(item)
			if err != nil {
				return err
			}
			if err := s.SetRawMaterial(s.AddRawMaterial(), name, qty); err != nil {
				return err
			}
		}
		return s.SaveRawMaterials(ctx)

	case "deadlines":
		var items listFlag
		fs.Var(&items, "item", "internal deadline as NAME|START|END|STATUS[|REASON], repeatable")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, q, err := openSession(ctx, cfg, log, out, *token, *orderID)
		if err != nil {
			return err
		}
		defer printNotifications(out, q)

		for _, d := range s.InternalDeadlines() {
			if err := s.RemoveInternalDeadline(d.ID); err != nil {
				return err
			}
		}
		for _, item := range items {
			d, err := parseDeadline(item)
			if err != nil {
				return err
			}
			d.ID = s.AddInternalDeadline()
			if err := s.SetInternalDeadline(d); err != nil {
				return err
			}
		}
		return s.SaveInternalDeadlines(ctx)

	case "handoff":
		yes := fs.Bool("yes", false, "confirm the hand-off")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, q, err := openSession(ctx, cfg, log, out, *token, *orderID)
		if err != nil {
			return err
		}
		defer printNotifications(out, q)

		if err := s.RequestWarehouseHandoff(); err != nil {
			return err
		}
		if !*yes {
			s.CancelWarehouseHandoff()
			fmt.Fprintln(out, "order can be sent to the warehouse; repeat with -yes to confirm")
			return nil
		}
		return s.ConfirmWarehouseHandoff(ctx)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// openSession при неудачной загрузке сразу печатает накопленные уведомления.
func openSession(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer, token string, orderID int64) (*workflow.Session, *notify.Queue, error) {
	if orderID <= 0 {
		return nil, nil, fmt.Errorf("%w: -order is required", errUsage)
	}

	if token == "" {
		minted, err := auth.NewToken(cfg.JWTSecret, "crmctl", cfg.Gateway.Role, cfg.TokenTTL)
		if err != nil {
			return nil, nil, err
		}
		token = minted
	}

	m := metrics.New()
	client := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Role, gateway.StaticToken(token), gateway.Options{
		Timeout:         cfg.Gateway.Timeout,
		LegacyEnvelopes: cfg.LegacyEnvelopes,
		Metrics:         m,
	})

	q := notify.NewQueue(cfg.NotificationTTL, cfg.VisibleLimit)
	engine := workflow.NewEngine(client, q, log, m)

	s := workflow.Open(ctx, engine, loader.New(client), orderID, workflow.Options{EmptyRetryDelay: cfg.EmptyRetryDelay})

	switch s.State() {
	case workflow.StateReady:
		return s, q, nil
	case workflow.StateEmpty:
		printNotifications(out, q)
		return nil, q, fmt.Errorf("order %d: no data", orderID)
	default:
		printNotifications(out, q)
		return nil, q, fmt.Errorf("order %d: failed to load", orderID)
	}
}

func parseMaterial(v string) (string, string, error) {
	name, qty, ok := strings.Cut(v, "=")
	if !ok {
		return "", "", fmt.Errorf("%w: raw material %q, want NAME=QTY", errUsage, v)
	}
	return strings.TrimSpace(name), strings.TrimSpace(qty), nil
}

func parseDeadline(v string) (storage.InternalDeadline, error) {
	parts := strings.Split(v, "|")
	if len(parts) < 4 || len(parts) > 5 {
		return storage.InternalDeadline{}, fmt.Errorf("%w: internal deadline %q, want NAME|START|END|STATUS[|REASON]", errUsage, v)
	}

	status, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return storage.InternalDeadline{}, fmt.Errorf("%w: internal deadline %q: status: %w", errUsage, v, err)
	}

	d := storage.InternalDeadline{
		Name:    strings.TrimSpace(parts[0]),
		StartAt: strings.TrimSpace(parts[1]),
		EndAt:   strings.TrimSpace(parts[2]),
		Status:  status,
	}
	if len(parts) == 5 {
		d.DelayReason = strings.TrimSpace(parts[4])
	}

	return d, nil
}

func printSession(out io.Writer, s *workflow.Session) {
	order := s.Order()
	deadline := s.MainDeadline()

	fmt.Fprintf(out, "order #%d  status: %s\n", order.ID, constants.OrderStatuses[s.OrderStatus()])
	if order.Estimation != nil && order.Estimation.CustomerName != "" {
		fmt.Fprintf(out, "customer: %s\n", order.Estimation.CustomerName)
	}
	fmt.Fprintf(out, "deadline: %s .. %s\n", deadline.Start, deadline.End)

	fmt.Fprintln(out, "raw materials:")
	for _, row := range s.RawMaterials() {
		fmt.Fprintf(out, "  - %s x %s (%s)\n", row.MaterialName, row.Quantity, row.Mode)
	}

	fmt.Fprintln(out, "internal deadlines:")
	for _, d := range s.InternalDeadlines() {
		fmt.Fprintf(out, "  - %s %s .. %s status=%d", d.Name, d.StartAt, d.EndAt, d.Status)
		if d.DelayReason != "" {
			fmt.Fprintf(out, " reason=%q", d.DelayReason)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "can send to warehouse: %t\n", s.CanSendToWarehouse())
}

func printNotifications(out io.Writer, q *notify.Queue) {
	for _, n := range q.Visible() {
		fmt.Fprintf(out, "[%s] %s\n", n.Kind, n.Message)
	}
}
