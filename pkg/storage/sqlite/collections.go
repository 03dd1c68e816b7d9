package sqlite

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/oklog/ulid/v2"

	"github.com/galleria-app/galleria/pkg/query"
	"github.com/galleria-app/galleria/pkg/storage"
	"github.com/galleria-app/galleria/pkg/storage/sqlcommon"
)

var collectionColumns = []string{
	"collection.id", "collection.owner_id", "collection.name",
	"collection.description", "collection.visibility",
	"collection.created_at", "collection.updated_at",
	"COALESCE(ci.item_count, 0) AS item_count",
}

// ListCollections see [storage.CollectionStore].ListCollections.
func (s *Datastore) ListCollections(ctx context.Context, spec *query.Spec) ([]*storage.CollectionWithStats, int64, error) {
	ctx, span := startTrace(ctx, "ListCollections")
	defer span.End()

	pageQuery := spec.Apply(s.stbl.
		Select(collectionColumns...).
		From("collection").
		LeftJoin("(SELECT collection_id, COUNT(*) AS item_count FROM collection_item GROUP BY collection_id) ci ON ci.collection_id = collection.id")).
		OrderBy(spec.OrderBy()).
		Limit(uint64(spec.Limit)).
		Offset(uint64(spec.Offset))
	countQuery := spec.Apply(s.stbl.Select("COUNT(*)").From("collection"))

	var collections []*storage.CollectionWithStats
	total, err := sqlcommon.CountAndPage(ctx,
		func(ctx context.Context) (int64, error) {
			var n int64
			if err := countQuery.QueryRowContext(ctx).Scan(&n); err != nil {
				return 0, HandleSQLError(err)
			}
			return n, nil
		},
		func(ctx context.Context) error {
			rows, err := pageQuery.QueryContext(ctx)
			if err != nil {
				return HandleSQLError(err)
			}
			defer rows.Close()

			for rows.Next() {
				var c storage.CollectionWithStats
				err := rows.Scan(
					&c.ID, &c.OwnerID, &c.Name, &c.Description,
					&c.Visibility, &c.CreatedAt, &c.UpdatedAt, &c.ItemCount,
				)
				if err != nil {
					return HandleSQLError(err)
				}
				collections = append(collections, &c)
			}
			return rows.Err()
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return collections, total, nil
}

// GetCollection see [storage.CollectionStore].GetCollection.
func (s *Datastore) GetCollection(ctx context.Context, collectionID string) (*storage.Collection, error) {
	ctx, span := startTrace(ctx, "GetCollection")
	defer span.End()

	var c storage.Collection
	err := s.stbl.
		Select("id", "owner_id", "name", "description", "visibility", "created_at", "updated_at").
		From("collection").
		Where(sq.Eq{"id": collectionID}).
		QueryRowContext(ctx).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Visibility, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, HandleSQLError(err)
	}
	return &c, nil
}

// CreateCollection see [storage.CollectionStore].CreateCollection.
func (s *Datastore) CreateCollection(ctx context.Context, collection *storage.Collection) error {
	ctx, span := startTrace(ctx, "CreateCollection")
	defer span.End()

	now := time.Now().UTC()
	if collection.ID == "" {
		collection.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}
	collection.CreatedAt = now
	collection.UpdatedAt = now

	err := busyRetry(func() error {
		_, err := s.stbl.
			Insert("collection").
			Columns("id", "owner_id", "name", "description", "visibility", "created_at", "updated_at").
			Values(collection.ID, collection.OwnerID, collection.Name, collection.Description, collection.Visibility, collection.CreatedAt, collection.UpdatedAt).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// UpdateCollection see [storage.CollectionStore].UpdateCollection.
func (s *Datastore) UpdateCollection(ctx context.Context, collection *storage.Collection) error {
	ctx, span := startTrace(ctx, "UpdateCollection")
	defer span.End()

	collection.UpdatedAt = time.Now().UTC()

	var res sql.Result
	err := busyRetry(func() error {
		var err error
		res, err = s.stbl.
			Update("collection").
			Set("name", collection.Name).
			Set("description", collection.Description).
			Set("visibility", collection.Visibility).
			Set("updated_at", collection.UpdatedAt).
			Where(sq.Eq{"id": collection.ID}).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return HandleSQLError(err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteCollection removes the collection and its membership edges in
// one transaction.
func (s *Datastore) DeleteCollection(ctx context.Context, collectionID string) error {
	ctx, span := startTrace(ctx, "DeleteCollection")
	defer span.End()

	var txn *sql.Tx
	err := busyRetry(func() error {
		var err error
		txn, err = s.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	_, err = s.stbl.
		Delete("collection_item").
		Where(sq.Eq{"collection_id": collectionID}).
		RunWith(txn). // Part of a txn.
		ExecContext(ctx)
	if err != nil {
		return HandleSQLError(err)
	}

	res, err := s.stbl.
		Delete("collection").
		Where(sq.Eq{"id": collectionID}).
		RunWith(txn). // Part of a txn.
		ExecContext(ctx)
	if err != nil {
		return HandleSQLError(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return HandleSQLError(err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	err = busyRetry(func() error {
		return txn.Commit()
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// AddCollectionItem see [storage.CollectionStore].AddCollectionItem.
func (s *Datastore) AddCollectionItem(ctx context.Context, collectionID, itemID string) error {
	ctx, span := startTrace(ctx, "AddCollectionItem")
	defer span.End()

	err := busyRetry(func() error {
		_, err := s.stbl.
			Insert("collection_item").
			Columns("collection_id", "item_id", "added_at").
			Values(collectionID, itemID, time.Now().UTC()).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// RemoveCollectionItem see [storage.CollectionStore].RemoveCollectionItem.
func (s *Datastore) RemoveCollectionItem(ctx context.Context, collectionID, itemID string) error {
	ctx, span := startTrace(ctx, "RemoveCollectionItem")
	defer span.End()

	var res sql.Result
	err := busyRetry(func() error {
		var err error
		res, err = s.stbl.
			Delete("collection_item").
			Where(sq.Eq{"collection_id": collectionID, "item_id": itemID}).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return HandleSQLError(err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
