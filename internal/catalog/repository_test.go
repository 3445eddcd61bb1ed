package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *Repository {
	repo, err := NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestGetAllProducts_Seeded(t *testing.T) {
	repo := setupTestRepo(t)

	products, err := repo.GetAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 10)

	first := products[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "AquaClear 20 Power Filter", first.Name)
	assert.True(t, decimal.RequireFromString("29.99").Equal(first.Price))
	assert.Equal(t, "Filters", first.Category)
	assert.Equal(t, "100 GPH", first.Specifications["Flow Rate"])
	assert.Equal(t, 25, first.Stock)

	// insertion order, not lexical id order
	assert.Equal(t, "10", products[9].ID)
}

func TestGetProduct(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Food", p.Category)
	assert.Nil(t, p.Specifications)

	_, err = repo.GetProduct(ctx, "999")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.RunMigrations("./migrations"))
}

func TestLoad_FromRepository(t *testing.T) {
	repo := setupTestRepo(t)

	c, err := Load(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Len())

	p, ok := c.FindByID("8")
	require.True(t, ok)
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.InStock())
}
