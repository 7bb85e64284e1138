// Command cart-sweeper deactivates expired carts. Run it on a schedule (cron)
// or with -interval to keep it running.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/deshikart/deshikart/internal/storage/mongocart"
)

func main() {
	var (
		mongoURL string
		database string
		interval time.Duration
	)

	flag.StringVar(&mongoURL, "mongo-url", "", "MongoDB connection URL (or MONGO_URL env)")
	flag.StringVar(&database, "mongo-database", "deshikart", "MongoDB database name")
	flag.DurationVar(&interval, "interval", 0, "sweep interval; 0 sweeps once and exits")
	flag.Parse()

	if mongoURL == "" {
		mongoURL = os.Getenv("MONGO_URL")
	}
	if mongoURL == "" {
		slog.Error("mongo URL is required: set --mongo-url or MONGO_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	db, err := mongocart.Connect(ctx, mongoURL, database)
	if err != nil {
		slog.Error("mongodb connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	store := mongocart.NewStore(db)

	sweep := func() {
		n, err := store.Deactivate(ctx, time.Now())
		if err != nil {
			slog.Error("sweep failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("sweep complete", slog.Int64("deactivated", n))
	}

	sweep()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
