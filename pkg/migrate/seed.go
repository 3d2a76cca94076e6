package migrate

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type seedProduct struct {
	name        string
	price       int64
	category    enums.ProductCategory
	colors      []string
	sizes       []string
	stock       int
	rating      string
	reviews     int
	features    []string
	description string
	full        string
	image       string
}

var sampleCatalog = []seedProduct{
	{
		name: "Essential Minimalist", price: 799, category: enums.ProductCategoryEssential,
		colors: []string{"#1a1a1a", "#ffffff", "#e8ddf6"}, sizes: enums.DefaultProductSizes,
		stock: 45, rating: "4.9", reviews: 234,
		features:    []string{"100% Organic Cotton", "Ethically Produced", "Premium Stitching", "Preshrunk"},
		description: "Pure elegance in simplicity",
		full:        "The foundation of any wardrobe. Crafted from premium organic cotton with precision stitching.",
		image:       "/Tshirts/tshirt1.png",
	},
	{
		name: "Drift Series", price: 899, category: enums.ProductCategoryPremium,
		colors: []string{"#4a4a4a", "#8b8680", "#d4cdc5"}, sizes: enums.DefaultProductSizes,
		stock: 28, rating: "4.8", reviews: 189,
		features:    []string{"Premium Cotton Blend", "Reinforced Seams", "Fade Resistant", "Expert Crafted"},
		description: "Soft, refined tones",
		full:        "Elevated comfort meets sophisticated design in a premium cotton blend with enhanced durability.",
		image:       "/Tshirts/tshirt2.png",
	},
	{
		name: "Canvas Premium", price: 999, category: enums.ProductCategoryPremium,
		colors: []string{"#2c2c2c", "#666666", "#a8a29d"}, sizes: enums.DefaultProductSizes,
		stock: 12, rating: "4.95", reviews: 156,
		features:    []string{"Certified Organic", "Limited Production", "Museum Quality", "Lifetime Warranty"},
		description: "Luxury redefined",
		full:        "Constructed from the finest certified organic cotton with professional-grade finishing.",
		image:       "/Tshirts/tshirt3.png",
	},
	{
		name: "Neutral Standard", price: 699, category: enums.ProductCategoryEssential,
		colors: []string{"#f0ede8", "#999999", "#5a5a5a"}, sizes: enums.DefaultProductSizes,
		stock: 62, rating: "4.7", reviews: 312,
		features:    []string{"Comfortable Fit", "Easy Care", "Budget Friendly", "Versatile Style"},
		description: "Timeless versatility",
		full:        "The everyday essential, versatile in style and comfort and built to last through seasons of wear.",
		image:       "/Tshirts/tshirt4.png",
	},
	{
		name: "Limited Archive", price: 1199, category: enums.ProductCategoryLimited,
		colors: []string{"#1a1a1a", "#8b7355", "#d4af37"}, sizes: []string{"S", "M", "L", "XL"},
		stock: 8, rating: "5.0", reviews: 87,
		features:    []string{"Limited Edition", "Numbered Certificate", "Premium Materials", "Collector's Item"},
		description: "Collector's edition",
		full:        "Part of the exclusive limited collection, blending traditional craftsmanship with modern design.",
		image:       "/Tshirts/tshirt5.png",
	},
}

// SeedCatalog inserts the sample catalog, skipping products whose name already exists.
// It returns the number of rows inserted.
func SeedCatalog(ctx context.Context, conn *gorm.DB) (int64, error) {
	if conn == nil {
		return 0, fmt.Errorf("db is required")
	}

	rows := make([]models.Product, 0, len(sampleCatalog))
	for _, p := range sampleCatalog {
		description := p.description
		full := p.full
		image := p.image
		rows = append(rows, models.Product{
			Name:            p.name,
			Price:           decimal.NewFromInt(p.price),
			Category:        p.category,
			Colors:          pq.StringArray(p.colors),
			Sizes:           pq.StringArray(p.sizes),
			Stock:           p.stock,
			Rating:          decimal.RequireFromString(p.rating),
			ReviewCount:     p.reviews,
			Features:        pq.StringArray(p.features),
			Description:     &description,
			FullDescription: &full,
			Image:           &image,
		})
	}

	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("seed catalog: %w", res.Error)
	}
	return res.RowsAffected, nil
}
