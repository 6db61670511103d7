//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/docstore"
	"github.com/suparena/docstore/config"
	"github.com/suparena/docstore/datastore/testmodels"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/repository"
	"github.com/suparena/docstore/storagemodels"
)

// setupTemplate connects to the backend described by DOCSTORE_* variables
// (or a .env file). Tests are skipped when no backend is configured.
func setupTemplate(t *testing.T) *docstore.Template {
	t.Helper()
	if os.Getenv("DOCSTORE_BACKEND") == "" {
		t.Skip("DOCSTORE_BACKEND not set, skipping integration test")
	}

	cfg, err := config.Load(os.Getenv("DOCSTORE_CONFIG"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	cluster, err := config.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to open cluster: %v", err)
	}

	factory, err := docstore.NewScopedClientFactory(ctx, cluster, cfg.Bucket, cfg.Scope)
	if err != nil {
		t.Fatalf("Failed to create factory: %v", err)
	}
	t.Cleanup(func() { _ = factory.Close(context.Background()) })

	tpl, err := docstore.NewTemplate(ctx, factory,
		docstore.WithTypeKey(cfg.TypeKey),
		docstore.WithDefaultConsistency(storagemodels.ConsistencyRequestPlus),
	)
	if err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}
	return tpl
}

func TestIntegrationKeyValueOperations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	tpl := setupTemplate(t)
	repo, err := repository.NewKeyValueRepository[testmodels.User](ctx, repository.NewFactory(docstore.NewOperationsMapping(tpl), nil))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	now := strfmt.DateTime(time.Now())
	user := testmodels.User{
		ID:        fmt.Sprintf("it-%d", time.Now().UnixNano()),
		Name:      "Integration User",
		Email:     "it@example.com",
		CreatedAt: &now,
	}

	doc, err := repo.Insert(ctx, &user)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}

	if _, err := repo.Insert(ctx, &user); !errors.IsAlreadyExists(err) {
		t.Errorf("Expected already exists error, got: %v", err)
	}

	user.Name = "Renamed"
	if _, err := repo.Replace(ctx, &user, doc.Cas+1); !errors.IsConditionFailed(err) {
		t.Errorf("Expected condition failed error, got: %v", err)
	}
	if _, err := repo.Replace(ctx, &user, doc.Cas); err != nil {
		t.Fatalf("Failed to replace user: %v", err)
	}

	got, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("Retrieved user doesn't match: got %+v", got)
	}

	if _, err := repo.DeleteByID(ctx, user.ID); err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID); !errors.IsNotFound(err) {
		t.Errorf("Expected not found error, got: %v", err)
	}
}

func TestIntegrationRemoveByQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	tpl := setupTemplate(t)
	repo, err := repository.NewQueryRepository[testmodels.Place](ctx, repository.NewFactory(docstore.NewOperationsMapping(tpl), nil))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	city := fmt.Sprintf("City-%d", time.Now().UnixNano())
	for i := 0; i < 3; i++ {
		place := testmodels.Place{Name: fmt.Sprintf("place-%d", i), City: city, Rating: i}
		if _, err := repo.Save(ctx, &place); err != nil {
			t.Fatalf("Failed to save place: %v", err)
		}
	}

	q := storagemodels.NewQuery().Matching(storagemodels.And(
		storagemodels.Where("city").Eq(city),
		storagemodels.Where("rating").Gte(1),
	))

	removed, err := docstore.RemoveByQuery[testmodels.Place](tpl).Matching(q).All(ctx)
	if err != nil {
		t.Fatalf("Failed to remove places: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("Expected 2 removed places, got %d", len(removed))
	}

	rest, err := docstore.RemoveByQuery[testmodels.Place](tpl).
		Reactive().
		Matching(storagemodels.NewQuery().Matching(storagemodels.Where("city").Eq(city))).
		All().
		Collect(ctx)
	if err != nil {
		t.Fatalf("Failed to remove remaining places: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("Expected 1 remaining place, got %d", len(rest))
	}
}
