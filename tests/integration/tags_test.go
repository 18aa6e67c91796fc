package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/tags"
)

func TestTagAttachAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	sale, err := tags.CreateTag(ctx, db, "sale")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}
	featured, err := tags.CreateTag(ctx, db, "featured")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}

	if _, err := tags.Attach(ctx, db, store.KindProduct, product.ID, sale.ID); err != nil {
		t.Fatalf("Attach sale: %v", err)
	}
	if _, err := tags.Attach(ctx, db, store.KindProduct, product.ID, featured.ID); err != nil {
		t.Fatalf("Attach featured: %v", err)
	}

	items, err := tags.ListFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List tags: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 tagged items, got %d", len(items))
	}
	labels := map[string]bool{}
	for _, item := range items {
		if item.Tag.Label == "" {
			t.Error("Tag details should be joined into the listing")
		}
		labels[item.Tag.Label] = true
	}
	if !labels["sale"] || !labels["featured"] {
		t.Errorf("Expected sale and featured labels, got %v", labels)
	}
}

func TestTagAttachDuplicatesPermitted(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	tag, err := tags.CreateTag(ctx, db, "sale")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}

	first, err := tags.Attach(ctx, db, store.KindProduct, product.ID, tag.ID)
	if err != nil {
		t.Fatalf("First attach: %v", err)
	}
	second, err := tags.Attach(ctx, db, store.KindProduct, product.ID, tag.ID)
	if err != nil {
		t.Fatalf("Second attach: %v", err)
	}
	if first.ID == second.ID {
		t.Error("Duplicate attaches should create distinct rows")
	}

	items, err := tags.ListFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List tags: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected both duplicate associations, got %d", len(items))
	}
}

func TestTagListForEmptyAndMissingOwner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	items, err := tags.ListFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List tags for untagged product: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty slice, got %v", items)
	}

	items, err = tags.ListFor(ctx, db, store.KindProduct, 99999)
	if err != nil {
		t.Fatalf("List tags for missing owner: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty slice for missing owner, got %v", items)
	}
}

func TestTagAttachUnknownTag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	_, err := tags.Attach(context.Background(), db, store.KindProduct, product.ID, 99999)
	if !errors.Is(err, database.ErrTagNotFound) {
		t.Errorf("Expected tag not found, got: %v", err)
	}
}

func TestTagAttachUnregisteredKind(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	tag, err := tags.CreateTag(ctx, db, "sale")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}

	var configErr *database.ConfigurationError
	_, err = tags.Attach(ctx, db, tags.Kind("warehouse"), 1, tag.ID)
	if !errors.As(err, &configErr) {
		t.Errorf("Expected configuration error, got: %v", err)
	}

	_, err = tags.ListFor(ctx, db, tags.Kind("warehouse"), 1)
	if !errors.As(err, &configErr) {
		t.Errorf("Expected configuration error on list, got: %v", err)
	}
}

func TestTagDeleteCascadesAssociations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	tag, err := tags.CreateTag(ctx, db, "sale")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}
	if _, err := tags.Attach(ctx, db, store.KindProduct, product.ID, tag.ID); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := tags.DeleteTag(ctx, db, tag.ID); err != nil {
		t.Fatalf("Delete tag: %v", err)
	}

	items, err := tags.ListFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List tags: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Deleting a tag should remove its associations, got %d", len(items))
	}
}

func TestTagSurvivesOwnerDeletion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)

	tag, err := tags.CreateTag(ctx, db, "sale")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}
	if _, err := tags.Attach(ctx, db, store.KindProduct, product.ID, tag.ID); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if err := store.DeleteProduct(ctx, db, product.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}

	items, err := tags.ListFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List tags: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Association should survive owner deletion, got %d", len(items))
	}
}

func TestDetachAndUnlikeMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	if err := tags.Detach(ctx, db, 99999); !errors.Is(err, database.ErrTaggedItemNotFound) {
		t.Errorf("Expected tagged item not found, got: %v", err)
	}
	if err := tags.Unlike(ctx, db, 99999); !errors.Is(err, database.ErrLikedItemNotFound) {
		t.Errorf("Expected liked item not found, got: %v", err)
	}
}

func TestLikes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	collection := createTestCollection(t, db, "Gadgets")
	product := createTestProduct(t, db, collection.ID, "Product", 10, 50)
	user, _ := createTestAccount(t, db, "fan@example.com")

	like, err := tags.Like(ctx, db, store.KindProduct, product.ID, user.ID)
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if like.UserName == "" {
		t.Error("Like should carry the user name")
	}

	likes, err := tags.ListLikesFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List likes: %v", err)
	}
	if len(likes) != 1 || likes[0].UserID != user.ID {
		t.Errorf("Expected one like by user %d, got %v", user.ID, likes)
	}

	_, err = tags.Like(ctx, db, store.KindProduct, product.ID, 99999)
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected user not found, got: %v", err)
	}

	if err := tags.Unlike(ctx, db, like.ID); err != nil {
		t.Fatalf("Unlike: %v", err)
	}
	likes, err = tags.ListLikesFor(ctx, db, store.KindProduct, product.ID)
	if err != nil {
		t.Fatalf("List likes after unlike: %v", err)
	}
	if len(likes) != 0 {
		t.Errorf("Expected no likes, got %d", len(likes))
	}
}
