package core

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tabdiff/internal/schema"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

func TestService_CatalogFallsBackToDefault(t *testing.T) {
	svc, _ := newTestService(t)

	cat, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultCatalog().FieldTypes(), cat.FieldTypes())
}

func TestService_CatalogUsesActiveMappingsOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	inactive := false

	_, err := svc.CreateMapping(ctx, MappingInput{FieldType: "Amount", Variations: []string{"total"}})
	require.NoError(t, err)
	_, err = svc.CreateMapping(ctx, MappingInput{FieldType: "legacy", Variations: []string{"old"}, Active: &inactive})
	require.NoError(t, err)

	cat, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount"}, cat.FieldTypes())
	assert.Equal(t, []string{"total"}, cat.Variations("AMOUNT"))
}

func TestService_CreateMapping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	fm, err := svc.CreateMapping(ctx, MappingInput{
		FieldType:  "  account ",
		Variations: []string{"acct", " ACCT ", "", "account_no"},
	})
	require.NoError(t, err)
	assert.Equal(t, "account", fm.FieldType)
	assert.Equal(t, []string{"acct", "account_no"}, fm.Variations)
	assert.True(t, fm.Active)

	_, err = svc.CreateMapping(ctx, MappingInput{FieldType: "Account"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Equal(t, "DB001", MapError(err).Code)

	_, err = svc.CreateMapping(ctx, MappingInput{FieldType: " "})
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestService_UpdateAndDeleteMapping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	fm, err := svc.CreateMapping(ctx, MappingInput{FieldType: "date", Variations: []string{"posted"}})
	require.NoError(t, err)

	off := false
	updated, err := svc.UpdateMapping(ctx, fm.ID, MappingInput{
		FieldType:   "date",
		Variations:  []string{"value_date"},
		Description: "Booking date",
		Active:      &off,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"value_date"}, updated.Variations)
	assert.Equal(t, "Booking date", updated.Description)
	assert.False(t, updated.Active)

	_, err = svc.UpdateMapping(ctx, uuid.New(), MappingInput{FieldType: "x"})
	assert.ErrorIs(t, err, ErrMappingNotFound)

	require.NoError(t, svc.DeleteMapping(ctx, fm.ID))
	assert.ErrorIs(t, svc.DeleteMapping(ctx, fm.ID), ErrMappingNotFound)
}

func TestService_AddVariation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	fm, err := svc.CreateMapping(ctx, MappingInput{FieldType: "amount", Variations: []string{"total"}})
	require.NoError(t, err)

	fm, err = svc.AddVariation(ctx, fm.ID, "Net Amount")
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "Net Amount"}, fm.Variations)

	again, err := svc.AddVariation(ctx, fm.ID, "NET AMOUNT")
	require.NoError(t, err)
	assert.Equal(t, fm.Variations, again.Variations, "existing variation ignoring case is a no-op")

	_, err = svc.AddVariation(ctx, fm.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidMapping)

	_, err = svc.AddVariation(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, ErrMappingNotFound)
}

func TestService_SeedMappings(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateMapping(ctx, MappingInput{FieldType: "Amount", Variations: []string{"net"}})
	require.NoError(t, err)

	cat := schema.NewCatalog(map[string][]string{
		"amount": {"total", "net"},
		"date":   {"posted"},
	})

	res, err := svc.SeedMappings(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Created: 1, Updated: 1}, res)

	amount, err := st.GetMappingByType(ctx, "amount")
	require.NoError(t, err)
	assert.Equal(t, "Amount", amount.FieldType, "existing field type keeps its name")
	assert.Equal(t, []string{"net", "total"}, amount.Variations)

	res, err = svc.SeedMappings(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, res, "seeding twice changes nothing")
}

func TestService_SeedDefaultCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.SeedMappings(ctx, schema.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultCatalog().Len(), res.Created)

	mappings, err := svc.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, schema.DefaultCatalog().Len())
}
