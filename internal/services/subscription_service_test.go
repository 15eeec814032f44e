package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeRules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	svc := NewSubscriptionService(db)

	_, err := svc.Subscribe(ctx, alice.ID, alice.ID, 0)
	assert.True(t, errors.Is(err, &Error{Kind: KindValidation, Field: "author"}))

	view, err := svc.Subscribe(ctx, alice.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "bob", view.Username)
	assert.True(t, view.IsSubscribed)
	assert.Zero(t, view.RecipesCount)
	assert.Empty(t, view.Recipes)

	_, err = svc.Subscribe(ctx, alice.ID, bob.ID, 0)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Subscribe(ctx, alice.ID, 999, 0)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, svc.Unsubscribe(ctx, alice.ID, bob.ID))
	err = svc.Unsubscribe(ctx, alice.ID, bob.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListSubscriptionsWithRecipeLimit(t *testing.T) {
	f := newRecipeFixture(t)
	ctx := context.Background()
	carol := seedUser(t, f.db, "carol")

	for _, name := range []string{"First", "Second", "Third"} {
		in := f.pancakes()
		in.Name = name
		_, err := f.svc.Create(ctx, f.actor(f.author), in)
		require.NoError(t, err)
	}

	svc := NewSubscriptionService(f.db)
	_, err := svc.Subscribe(ctx, f.other.ID, f.author.ID, 0)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, f.other.ID, carol.ID, 0)
	require.NoError(t, err)

	views, err := svc.List(ctx, f.other.ID, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "alice", views[0].Username)
	assert.Equal(t, int64(3), views[0].RecipesCount)
	require.Len(t, views[0].Recipes, 2)
	assert.Equal(t, "Third", views[0].Recipes[0].Name)
	assert.Equal(t, "Second", views[0].Recipes[1].Name)

	assert.Equal(t, "carol", views[1].Username)
	assert.Zero(t, views[1].RecipesCount)
	assert.NotNil(t, views[1].Recipes)

	all, err := svc.List(ctx, f.other.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all[0].Recipes, 3)

	none, err := svc.List(ctx, f.author.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
