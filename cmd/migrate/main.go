package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/example/moonjewelry/pkg/config"
	"github.com/example/moonjewelry/pkg/logging"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("MOON_CONFIG"), "path to the yaml config file")
	seed := flag.Bool("seed", false, "load a small demo catalog after migrating")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	db, err := repository.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated", zap.String("driver", cfg.Database.Driver))

	if !*seed {
		return
	}
	if err := seedCatalog(context.Background(), repository.NewStore(db)); err != nil {
		logger.Fatal("Failed to seed catalog", zap.Error(err))
	}
	logger.Info("Demo catalog loaded")
}

func seedCatalog(ctx context.Context, store *repository.Store) error {
	rings := models.Category{Name: "Rings", Slug: "rings", Description: "Hand-finished rings"}
	if err := store.CreateCategory(ctx, &rings); err != nil {
		return err
	}
	necklaces := models.Category{Name: "Necklaces", Slug: "necklaces"}
	if err := store.CreateCategory(ctx, &necklaces); err != nil {
		return err
	}

	metal := models.VariationType{Name: "Metal", DisplayName: "Metal"}
	if err := store.CreateVariationType(ctx, &metal); err != nil {
		return err
	}
	size := models.VariationType{Name: "Size", DisplayName: "Ring size"}
	if err := store.CreateVariationType(ctx, &size); err != nil {
		return err
	}

	options := map[string]*models.VariationOption{
		"silver": {VariationTypeID: metal.ID, Value: "Silver", ColorHex: "#C0C0C0"},
		"gold":   {VariationTypeID: metal.ID, Value: "Gold", ColorHex: "#FFD700"},
		"6":      {VariationTypeID: size.ID, Value: "6"},
		"7":      {VariationTypeID: size.ID, Value: "7"},
	}
	for _, o := range options {
		if err := store.CreateVariationOption(ctx, o); err != nil {
			return err
		}
	}

	ring := models.Jewelry{
		Name:          "Crescent Ring",
		Description:   "A thin band with a crescent moon setting.",
		Price:         decimal.RequireFromString("89.00"),
		StockQuantity: 25,
		IsActive:      true,
		CategoryID:    &rings.ID,
	}
	if err := store.CreateJewelry(ctx, &ring, []uint{metal.ID, size.ID}); err != nil {
		return err
	}
	for _, combo := range []struct {
		metal, size string
		adjust      string
	}{
		{"silver", "6", "0"},
		{"silver", "7", "0"},
		{"gold", "6", "45.00"},
		{"gold", "7", "45.00"},
	} {
		v := models.ProductVariation{
			JewelryID:       ring.ID,
			PriceAdjustment: decimal.RequireFromString(combo.adjust),
			StockQuantity:   5,
			IsAvailable:     true,
		}
		if _, err := store.CreateVariation(ctx, &v, []uint{options[combo.metal].ID, options[combo.size].ID}); err != nil {
			return err
		}
	}

	pendant := models.Jewelry{
		Name:          "Full Moon Pendant",
		Description:   "Moonstone cabochon on an 18 inch chain.",
		Price:         decimal.RequireFromString("120.00"),
		StockQuantity: 10,
		IsActive:      true,
		CategoryID:    &necklaces.ID,
	}
	if err := store.CreateJewelry(ctx, &pendant, nil); err != nil {
		return err
	}

	return store.CreateEvent(ctx, &models.Event{
		Title:       "Trunk Show",
		Description: "Meet the makers and see the new collection.",
		Date:        time.Now().AddDate(0, 0, 14).Truncate(time.Hour),
		Location:    "Studio, 12 Harbor St",
		IsActive:    true,
	})
}
