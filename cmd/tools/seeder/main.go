package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/treeline-dev/backend-treeline/internal/auth"
	"github.com/treeline-dev/backend-treeline/internal/catalog"
	"github.com/treeline-dev/backend-treeline/internal/config"
	"github.com/treeline-dev/backend-treeline/internal/db"
	"github.com/treeline-dev/backend-treeline/internal/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, "treeline-seeder")
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	seedAdminAccount(ctx, auth.NewStore(pool))
	seedCatalogProducts(ctx, catalog.NewStore(pool))

	log.Println("seeding completed")
}

func floatPtr(v float64) *float64 { return &v }

func sampleProducts() []catalog.Product {
	return []catalog.Product{
		{
			Slug:        "oak-bookcase",
			Name:        "Oak Bookcase",
			Description: "A classic oak bookcase, sized to fit your wall.",
			Published:   true,
			Pricing: pricing.Config{
				BasePrice:    450,
				MinimumPrice: floatPtr(380),
				Dimensions: map[string]pricing.DimensionRule{
					"width":  {Min: 60, Max: 240, Default: 120, Step: 10, Multiplier: 2.5, Visible: true, Editable: true},
					"height": {Min: 90, Max: 240, Default: 180, Step: 10, Multiplier: 1.8, Visible: true, Editable: true},
					"depth":  {Min: 25, Max: 45, Default: 30, Step: 5, Multiplier: 1.2, Visible: true, Editable: true},
				},
				Options: map[string]pricing.OptionRule{
					"lacquer": {Available: true, Price: 90},
					"wax":     {Available: true, Price: 45},
				},
				Colors: pricing.ColorRule{
					Enabled:       true,
					PriceModifier: 0.35,
					Options: []pricing.ColorOption{
						{Name: "Natural", Value: pricing.ColorNatural, Available: true},
						{Name: "Walnut", Value: "walnut", PriceAdjustment: 60, Available: true},
						{Name: "Ebony", Value: "ebony", PriceAdjustment: 110, Available: true},
					},
				},
			},
		},
		{
			Slug:        "garden-planter",
			Name:        "Garden Planter",
			Description: "A cedar planter box for herbs and flowers.",
			Published:   true,
			Pricing: pricing.Config{
				BasePrice: 120,
				Dimensions: map[string]pricing.DimensionRule{
					"width": {Min: 40, Max: 160, Default: 80, Step: 10, Multiplier: 1.1, Visible: true, Editable: true},
					"depth": {Min: 20, Max: 60, Default: 35, Step: 5, Multiplier: 0.9, Visible: true, Editable: true},
				},
				Options: map[string]pricing.OptionRule{
					"wax": {Available: true, Price: 25},
				},
			},
		},
		{
			Slug:        "stair-handrail",
			Name:        "Stair Handrail",
			Description: "A solid beech handrail cut to length.",
			Published:   false,
			Pricing: pricing.Config{
				BasePrice: 210,
				Dimensions: map[string]pricing.DimensionRule{
					"width": {Min: 100, Max: 400, Default: 250, Step: 25, Multiplier: 0.8, Visible: true, Editable: true},
				},
				Options: map[string]pricing.OptionRule{
					"handrail": {Available: true, Price: 75},
					"lacquer":  {Available: true, Price: 55},
				},
			},
		},
	}
}

func seedAdminAccount(ctx context.Context, store *auth.Store) {
	email := strings.TrimSpace(strings.ToLower(envOrDefault("SEED_ADMIN_EMAIL", "admin@treeline.dev")))
	password := envOrDefault("SEED_ADMIN_PASSWORD", "change-me-now")

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	admin, err := store.Upsert(ctx, email, hash)
	if err != nil {
		log.Fatalf("seed admin %s: %v", email, err)
	}
	log.Printf("seeded admin %s (%s)", admin.Email, admin.ID)
}

func seedCatalogProducts(ctx context.Context, store *catalog.Store) {
	for _, product := range sampleProducts() {
		created, err := store.Insert(ctx, product)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				log.Printf("product %s already present, skipping", product.Slug)
				continue
			}
			log.Fatalf("seed product %s: %v", product.Slug, err)
		}
		log.Printf("seeded product %s (%s)", created.Slug, created.ID)
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return fallback
}
