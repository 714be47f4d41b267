// Command seed-db imports the two external catalog providers into the
// products table. Each provider has its own fixed schema; both are mapped
// explicitly onto the internal product shape with one unified discount model,
// so the API never needs to know provenance-specific discount formulas.
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
	"golang.org/x/sync/errgroup"

	"github.com/devnology/storefront/internal/domain/product"
	"github.com/devnology/storefront/internal/storage/postgres"
)

// domesticRecord is the Brazilian provider schema. Prices are decimal
// strings in major currency units ("129.90"); there is no discount concept.
type domesticRecord struct {
	ID           string `json:"id"`
	Nome         string `json:"nome"`
	Descricao    string `json:"descricao"`
	Categoria    string `json:"categoria"`
	Imagem       string `json:"imagem"`
	Preco        string `json:"preco"`
	Material     string `json:"material"`
	Departamento string `json:"departamento"`
}

// internationalRecord is the European provider schema. Discounts arrive as a
// boolean-ish string plus a fraction string ("0.2" = 20% off).
type internationalRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	HasDiscount   string   `json:"hasDiscount"`
	Gallery       []string `json:"gallery"`
	Price         string   `json:"price"`
	DiscountValue string   `json:"discountValue"`
	Details       struct {
		Adjective string `json:"adjective"`
		Material  string `json:"material"`
	} `json:"details"`
}

func main() {
	var (
		databaseURL       string
		domesticFile      string
		internationalFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&domesticFile, "domestic-file", "db/seed/brazilian_provider.json", "path to the Brazilian provider JSON file")
	flag.StringVar(&internationalFile, "international-file", "db/seed/european_provider.json", "path to the European provider JSON file")
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

	if err := run(ctx, databaseURL, domesticFile, internationalFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, domesticFile, internationalFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Load and map both providers concurrently; upsert once both parsed.
	var domestic, international []product.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		domestic, err = loadDomestic(gctx, domesticFile)
		return errors.Wrap(err, "load domestic provider")
	})
	g.Go(func() error {
		var err error
		international, err = loadInternational(gctx, internationalFile)
		return errors.Wrap(err, "load international provider")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	repo := postgres.NewProductRepository(pool)
	for _, p := range append(domestic, international...) {
		if err := repo.Upsert(ctx, &p); err != nil {
			return errors.Wrapf(err, "upsert product %s/%s", p.Supplier, p.SourceID)
		}
		slog.Info("upserted product",
			slog.String("supplier", string(p.Supplier)),
			slog.String("source_id", p.SourceID),
			slog.String("name", p.Name),
		)
	}

	slog.Info("catalog imported",
		slog.Int("domestic", len(domestic)),
		slog.Int("international", len(international)),
	)
	return nil
}

func loadDomestic(ctx context.Context, path string) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := readRecords[domesticRecord](path)
	if err != nil {
		return nil, err
	}

	products := make([]product.Product, 0, len(records))
	for _, rec := range records {
		cents, err := centsFromString(rec.Preco)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price for product %s", rec.ID)
		}

		products = append(products, product.Product{
			SourceID:                 rec.ID,
			Supplier:                 product.SupplierDomestic,
			Name:                     rec.Nome,
			Description:              rec.Descricao,
			PriceInCents:             cents,
			PriceWithDiscountInCents: cents,
			Category:                 rec.Categoria,
			Material:                 rec.Material,
			Images:                   []string{rec.Imagem},
		})
	}
	return products, nil
}

func loadInternational(ctx context.Context, path string) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := readRecords[internationalRecord](path)
	if err != nil {
		return nil, err
	}

	products := make([]product.Product, 0, len(records))
	for _, rec := range records {
		cents, err := centsFromString(rec.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse price for product %s", rec.ID)
		}

		p := product.Product{
			SourceID:                 rec.ID,
			Supplier:                 product.SupplierInternational,
			Name:                     rec.Name,
			Description:              rec.Description,
			PriceInCents:             cents,
			PriceWithDiscountInCents: cents,
			Category:                 rec.Details.Adjective,
			Material:                 rec.Details.Material,
			Images:                   rec.Gallery,
		}

		// Unified discount model: resolve the provider's fraction into a
		// percentage and a precomputed discounted price at import time.
		if rec.HasDiscount == "true" && rec.DiscountValue != "" {
			frac, err := decimal.NewFromString(rec.DiscountValue)
			if err != nil {
				return nil, errors.Wrapf(err, "parse discount for product %s", rec.ID)
			}
			p.HasDiscount = true
			p.DiscountInPercent = int(frac.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
			p.PriceWithDiscountInCents = decimal.NewFromInt(cents).
				Mul(decimal.NewFromInt(1).Sub(frac)).
				Round(0).IntPart()
		}

		products = append(products, p)
	}
	return products, nil
}

func readRecords[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "parse JSON")
	}
	return records, nil
}

// centsFromString converts a major-unit decimal string ("49.90") to integer
// cents without going through floating point.
func centsFromString(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
