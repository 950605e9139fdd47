// Command order-ingest imports historical orders from gzip-compressed JSONL
// exports. Files are parsed concurrently; a bloom filter over known order
// ids keeps reimports and cross-file duplicates out of the database.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ozanyurt/order-discounts/internal/domain/order"
	"github.com/ozanyurt/order-discounts/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// orderLine is one JSONL record in an export file.
type orderLine struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Items      []struct {
		ProductID string          `json:"productId"`
		Quantity  int             `json:"quantity"`
		UnitPrice decimal.Decimal `json:"unitPrice"`
	} `json:"items"`
}

// fileResult holds the orders parsed from a single export file.
type fileResult struct {
	orders  []order.Order
	skipped uint64
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz order exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("order ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}
	sort.Strings(files)

	slog.Info("parsing export files", slog.Int("files", len(files)))

	results, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse export files")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seen, err := knownOrderIDs(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load known order ids")
	}

	return writeOrders(ctx, repository.NewOrderRepository(pool), results, seen)
}

// parseFiles parses every export file concurrently.
func parseFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFile(ctx, i, f, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func parseFile(ctx context.Context, idx int, path string, results []fileResult) func() error {
	return func() error {
		var res fileResult
		var count uint64

		if err := streamGzFile(ctx, path, func(line []byte) {
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.String("file", filepath.Base(path)), slog.Uint64("lines", count))
			}

			o, ok := parseOrder(line)
			if !ok {
				res.skipped++
				return
			}
			res.orders = append(res.orders, o)
		}); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}

		slog.Info("parse complete",
			slog.String("file", filepath.Base(path)),
			slog.Int("orders", len(res.orders)),
			slog.Uint64("skipped", res.skipped),
		)

		results[idx] = res
		return nil
	}
}

// parseOrder converts one JSONL record into a domain order, computing line
// and order totals. Records with missing ids or non-positive quantities are
// rejected.
func parseOrder(line []byte) (order.Order, bool) {
	var rec orderLine
	if err := json.Unmarshal(line, &rec); err != nil {
		return order.Order{}, false
	}
	if rec.ID == "" || len(rec.Items) == 0 {
		return order.Order{}, false
	}

	o := order.Order{
		ID:         rec.ID,
		CustomerID: rec.CustomerID,
		Items:      make([]order.Item, len(rec.Items)),
	}
	total := decimal.Zero
	for i, item := range rec.Items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return order.Order{}, false
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		o.Items[i] = order.Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     lineTotal,
		}
		total = total.Add(lineTotal)
	}
	o.Total = total.Round(2)
	return o, true
}

// knownOrderIDs seeds a bloom filter with every order id already stored, so
// reruns of the importer are idempotent. False positives only cause an order
// to be skipped, never written twice.
func knownOrderIDs(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	rows, err := pool.Query(ctx, `SELECT id FROM orders`)
	if err != nil {
		return nil, errors.Wrap(err, "query order ids")
	}
	defer rows.Close()

	var count uint64
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan order id")
		}
		filter.AddString(id)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order ids")
	}

	slog.Info("seeded dedup filter", slog.Uint64("known_orders", count))
	return filter, nil
}

// writeOrders inserts parsed orders, skipping ids already present in the
// filter. Cross-file duplicates are caught by adding each written id to the
// same filter.
func writeOrders(ctx context.Context, repo *repository.OrderRepository, results []fileResult, seen *bloom.BloomFilter) error {
	var written, skipped int
	for _, res := range results {
		for i := range res.orders {
			o := &res.orders[i]
			if seen.TestString(o.ID) {
				skipped++
				continue
			}
			if err := repo.Create(ctx, o); err != nil {
				return errors.Wrapf(err, "write order %s", o.ID)
			}
			seen.AddString(o.ID)
			written++

			if written%1000 == 0 {
				slog.Info("write progress", slog.Int("written", written))
			}
		}
	}

	slog.Info("write complete", slog.Int("written", written), slog.Int("skipped", skipped))
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
