// Command seed-db loads the product catalog, stock levels and an initial API
// key into PostgreSQL. It is idempotent: rerunning upserts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/deshikart/deshikart/internal/domain/auth"
	"github.com/deshikart/deshikart/internal/storage/postgres"
)

type productJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Price           decimal.Decimal `json:"price"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Image           string          `json:"image"`
	Stock           int             `json:"stock"`
	Variants        []struct {
		Size     string `json:"size"`
		Color    string `json:"color"`
		Quantity int    `json:"quantity"`
	} `json:"variants"`
}

const (
	upsertProductSQL = `INSERT INTO products (id, name, sku, price, original_price, discount_percent, image, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, sku = EXCLUDED.sku, price = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			discount_percent = EXCLUDED.discount_percent,
			image = EXCLUDED.image, active = TRUE`

	upsertStockSQL = `INSERT INTO stock (product_id, size, color, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, size, color) DO UPDATE SET
			quantity = EXCLUDED.quantity, updated_at = now()`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, user_id, role, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET
			user_id = EXCLUDED.user_id, role = EXCLUDED.role, active = TRUE`
)

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyUser   string
		apiKeyRole   string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or DESHIKART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "seed-user", "user ID the seeded key belongs to")
	flag.StringVar(&apiKeyRole, "api-key-role", "customer", "role of the seeded key (customer or admin)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or DESHIKART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("DESHIKART_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("DESHIKART_API_KEY_PEPPER")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyUser, apiKeyRole, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, apiKeyUser, apiKeyRole, apiKeyPepper string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrapf(err, "read %s", productsFile)
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrapf(err, "parse %s", productsFile)
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.SKU, p.Price, p.OriginalPrice, p.DiscountPercent, p.Image,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		if _, err := pool.Exec(ctx, upsertStockSQL, p.ID, "", "", p.Stock); err != nil {
			return errors.Wrapf(err, "upsert stock for %s", p.ID)
		}
		for _, v := range p.Variants {
			if _, err := pool.Exec(ctx, upsertStockSQL, p.ID, v.Size, v.Color, v.Quantity); err != nil {
				return errors.Wrapf(err, "upsert stock variant for %s", p.ID)
			}
		}
	}
	slog.Info("products seeded", slog.Int("count", len(products)))

	if apiKey != "" {
		if apiKeyPepper == "" {
			return errors.New("api key pepper is required to seed an api key")
		}
		hash := auth.HashKey(apiKey, []byte(apiKeyPepper))
		if _, err := pool.Exec(ctx, upsertAPIKeySQL, "seed-"+apiKeyUser, hash, apiKeyUser, apiKeyRole); err != nil {
			return errors.Wrap(err, "upsert api key")
		}
		slog.Info("api key seeded", slog.String("user", apiKeyUser), slog.String("role", apiKeyRole))
	}

	return nil
}
