package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/bodega-erp/bodega/internal/jobs"
)

// LowStockScanJob walks the product catalog looking for items at or
// below their minimum stock level, records the count and optionally
// emails every owner a restock summary.
type LowStockScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Mailer  *Client
	clock   func() time.Time
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics, mailer *Client) *LowStockScanJob {
	return &LowStockScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		Mailer:  mailer,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type lowStockItem struct {
	Code     string
	Name     string
	Stock    int64
	MinStock int64
}

// Handle executes the low stock scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTypeLowStockScan)
	var resultErr error
	defer func() {
		_ = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting low stock scan")

	items, err := j.scan(ctx)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetLowStock(len(items))

	for _, item := range items {
		logger.Warn("product below minimum stock",
			slog.String("code", item.Code),
			slog.String("name", item.Name),
			slog.Int64("stock", item.Stock),
			slog.Int64("min_stock", item.MinStock),
		)
	}

	if payload.Notify && len(items) > 0 && j.Mailer != nil {
		if err := j.notifyOwners(ctx, items); err != nil {
			// Notification failure does not invalidate the scan itself.
			logger.Error("notify owners", slog.Any("error", err))
		}
	}

	logger.Info("completed low stock scan",
		slog.Int("low_stock", len(items)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *LowStockScanJob) scan(ctx context.Context) ([]lowStockItem, error) {
	if j.Pool == nil {
		return nil, errors.New("low stock scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT code, name, stock, min_stock
		FROM products
		WHERE min_stock > 0 AND stock <= min_stock
		ORDER BY stock - min_stock, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []lowStockItem
	for rows.Next() {
		var item lowStockItem
		if err := rows.Scan(&item.Code, &item.Name, &item.Stock, &item.MinStock); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// notifyOwners emails every account holding the owner role. Sends fan
// out concurrently but bounded so a long recipient list cannot stall
// the worker.
func (j *LowStockScanJob) notifyOwners(ctx context.Context, items []lowStockItem) error {
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT u.email
		FROM users u
		JOIN role_user ru ON ru.user_id = u.id
		JOIN roles r ON r.id = ru.role_id
		WHERE r.name = 'owner'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var recipients []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return err
		}
		recipients = append(recipients, email)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	body := fmt.Sprintf("%d product(s) are at or below their minimum stock level:\n\n", len(items))
	for _, item := range items {
		body += fmt.Sprintf("- %s (%s): %d on hand, minimum %d\n", item.Name, item.Code, item.Stock, item.MinStock)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, to := range recipients {
		g.Go(func() error {
			_, err := j.Mailer.EnqueueSendEmail(ctx, SendEmailPayload{
				To:      to,
				Subject: "Low stock alert",
				Body:    body,
			})
			return err
		})
	}
	return g.Wait()
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskTypeLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *LowStockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
