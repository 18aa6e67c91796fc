package tags

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

// TaggedItem links a tag to an owning entity identified by (kind, id). The
// tag is always loaded alongside.
type TaggedItem struct {
	ID        int64      `json:"id"`
	Tag       models.Tag `json:"tag"`
	OwnerKind Kind       `json:"owner_kind"`
	OwnerID   int64      `json:"owner_id"`
}

// LikedItem marks an entity as liked by a user.
type LikedItem struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	OwnerKind Kind   `json:"owner_kind"`
	OwnerID   int64  `json:"owner_id"`
}

func CreateTag(ctx context.Context, db *sql.DB, label string) (*models.Tag, error) {
	if label == "" {
		return nil, database.Validationf("label", "must not be empty")
	}

	tag := &models.Tag{}
	err := db.QueryRowContext(ctx,
		`INSERT INTO tags (label) VALUES ($1) RETURNING id, label`,
		label).Scan(&tag.ID, &tag.Label)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	return tag, nil
}

func GetTag(ctx context.Context, db *sql.DB, id int64) (*models.Tag, error) {
	tag := &models.Tag{}

	err := db.QueryRowContext(ctx,
		`SELECT id, label FROM tags WHERE id = $1`, id).Scan(&tag.ID, &tag.Label)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}

	return tag, nil
}

func ListTags(ctx context.Context, db *sql.DB) ([]models.Tag, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, label FROM tags ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Label); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tags, nil
}

// DeleteTag removes the tag; its associations cascade with it.
func DeleteTag(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrTagNotFound
	}

	return nil
}

// Attach links a tag to an owner. The owner's existence is not checked, and
// repeated calls create duplicate associations; both are deliberate.
func Attach(ctx context.Context, db *sql.DB, kind Kind, ownerID, tagID int64) (*TaggedItem, error) {
	if !Registered(kind) {
		return nil, database.Configurationf("owner kind %q is not registered", kind)
	}

	tag, err := GetTag(ctx, db, tagID)
	if err != nil {
		return nil, err
	}

	item := &TaggedItem{Tag: *tag, OwnerKind: kind, OwnerID: ownerID}
	err = db.QueryRowContext(ctx,
		`INSERT INTO tagged_items (tag_id, owner_kind, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		tagID, string(kind), ownerID).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("attach tag: %w", err)
	}

	return item, nil
}

// ListFor returns the owner's tags with tag details joined in. An owner with
// no associations, or one that does not exist, yields an empty slice.
func ListFor(ctx context.Context, db *sql.DB, kind Kind, ownerID int64) ([]TaggedItem, error) {
	if !Registered(kind) {
		return nil, database.Configurationf("owner kind %q is not registered", kind)
	}

	query := `
		SELECT ti.id, t.id, t.label, ti.owner_kind, ti.owner_id
		FROM tagged_items ti
		JOIN tags t ON t.id = ti.tag_id
		WHERE ti.owner_kind = $1 AND ti.owner_id = $2
		ORDER BY ti.id`

	rows, err := db.QueryContext(ctx, query, string(kind), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tagged items: %w", err)
	}
	defer rows.Close()

	items := []TaggedItem{}
	for rows.Next() {
		var item TaggedItem
		err := rows.Scan(&item.ID, &item.Tag.ID, &item.Tag.Label, &item.OwnerKind, &item.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("scan tagged item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// Detach removes one association by id.
func Detach(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tagged_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrTaggedItemNotFound
	}

	return nil
}

// Like marks an owner as liked by a user. Same lenient contract as Attach.
func Like(ctx context.Context, db *sql.DB, kind Kind, ownerID, userID int64) (*LikedItem, error) {
	if !Registered(kind) {
		return nil, database.Configurationf("owner kind %q is not registered", kind)
	}

	item := &LikedItem{UserID: userID, OwnerKind: kind, OwnerID: ownerID}
	err := db.QueryRowContext(ctx,
		`SELECT name FROM users WHERE id = $1`, userID).Scan(&item.UserName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get liking user: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`INSERT INTO liked_items (user_id, owner_kind, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		userID, string(kind), ownerID).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("like item: %w", err)
	}

	return item, nil
}

// ListLikesFor returns who liked the owner, with user names joined in.
func ListLikesFor(ctx context.Context, db *sql.DB, kind Kind, ownerID int64) ([]LikedItem, error) {
	if !Registered(kind) {
		return nil, database.Configurationf("owner kind %q is not registered", kind)
	}

	query := `
		SELECT li.id, li.user_id, u.name, li.owner_kind, li.owner_id
		FROM liked_items li
		JOIN users u ON u.id = li.user_id
		WHERE li.owner_kind = $1 AND li.owner_id = $2
		ORDER BY li.id`

	rows, err := db.QueryContext(ctx, query, string(kind), ownerID)
	if err != nil {
		return nil, fmt.Errorf("list liked items: %w", err)
	}
	defer rows.Close()

	items := []LikedItem{}
	for rows.Next() {
		var item LikedItem
		err := rows.Scan(&item.ID, &item.UserID, &item.UserName, &item.OwnerKind, &item.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("scan liked item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// Unlike removes one like by id.
func Unlike(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM liked_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("unlike item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrLikedItemNotFound
	}

	return nil
}
