package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func TestSeedCatalogIsRepeatable(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	inserted, err := migrate.SeedCatalog(ctx, conn)
	require.NoError(t, err)
	assert.EqualValues(t, 5, inserted)

	_, err = migrate.SeedCatalog(ctx, conn)
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)

	var product models.Product
	require.NoError(t, conn.Where("name = ?", "Essential Minimalist").First(&product).Error)
	assert.Equal(t, "799", product.Price.String())
	assert.Equal(t, 45, product.Stock)
	assert.Len(t, product.Sizes, 6)
}
