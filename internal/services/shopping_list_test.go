package services

import (
	"context"
	"errors"
	"testing"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShoppingListEmptyCart(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice")

	svc := NewShoppingListService(db)
	_, err := svc.Build(context.Background(), user.ID)
	assert.True(t, errors.Is(err, ErrEmptyCart))

	_, _, err = svc.Download(context.Background(), &user)
	assert.True(t, errors.Is(err, ErrEmptyCart))
}

func TestShoppingListAggregatesByNameAndUnit(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	// a second "flour" row with the same unit merges into the same line
	flourAgain := seedIngredient(t, f.db, "flour", "g")

	bread := f.pancakes()
	bread.Name = "Bread"
	bread.Ingredients = []IngredientLine{{IngredientID: f.flour.ID, Amount: 200}}
	r1, err := f.svc.Create(ctx, f.actor(f.author), bread)
	require.NoError(t, err)

	cake := f.pancakes()
	cake.Name = "Cake"
	cake.Ingredients = []IngredientLine{{IngredientID: flourAgain.ID, Amount: 300}, {IngredientID: f.eggs.ID, Amount: 2}}
	r2, err := f.svc.Create(ctx, f.actor(f.author), cake)
	require.NoError(t, err)

	expected := []models.ShoppingListItem{
		{Name: "eggs", MeasurementUnit: "pcs", TotalAmount: 2},
		{Name: "flour", MeasurementUnit: "g", TotalAmount: 500},
	}

	cart := NewCartService(f.db)
	list := NewShoppingListService(f.db)

	// order of insertion into the cart must not matter
	for _, order := range [][2]uint{{r1.ID, r2.ID}, {r2.ID, r1.ID}} {
		for _, id := range order {
			_, err := cart.Add(ctx, f.other.ID, id)
			require.NoError(t, err)
		}

		items, err := list.Build(ctx, f.other.ID)
		require.NoError(t, err)
		assert.Equal(t, expected, items)

		for _, id := range order {
			require.NoError(t, cart.Remove(ctx, f.other.ID, id))
		}
	}
}

func TestShoppingListDownload(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, f.actor(f.author), f.pancakes())
	require.NoError(t, err)
	_, err = NewCartService(f.db).Add(ctx, f.author.ID, recipe.ID)
	require.NoError(t, err)

	filename, body, err := NewShoppingListService(f.db).Download(ctx, &f.author)
	require.NoError(t, err)
	assert.Equal(t, "alice_shopping_list.txt", filename)
	assert.Equal(t, "Shopping list:\n- flour (g) - 200\n- milk (ml) - 300", body)
}

func TestRenderShoppingList(t *testing.T) {
	assert.Equal(t, "Shopping list:\n", RenderShoppingList(nil))
	assert.Equal(t, "Shopping list:\n- salt (pinch) - 1", RenderShoppingList([]models.ShoppingListItem{
		{Name: "salt", MeasurementUnit: "pinch", TotalAmount: 1},
	}))
}
