package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/query"
	"github.com/galleria-app/galleria/pkg/storage"
	"github.com/galleria-app/galleria/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("galleria/pkg/storage/sqlite")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlite."+name)
}

// Datastore provides a SQLite based implementation of
// [storage.GalleryDatastore].
type Datastore struct {
	stbl             sq.StatementBuilderType
	db               *sql.DB
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
	versionReady     bool
}

// Ensures that Datastore implements the GalleryDatastore interface.
var _ storage.GalleryDatastore = (*Datastore)(nil)

// PrepareDSN prepares a raw DSN from config for use with SQLite,
// specifying defaults for journal mode and busy timeout.
func PrepareDSN(uri string) (string, error) {
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	// Set transaction mode to immediate if not specified
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	uri += "?" + query.Encode()

	return uri, nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, "galleria")
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return &Datastore{
		stbl:             sq.StatementBuilder.RunWith(db),
		db:               db,
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.GalleryDatastore].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.db.Close()
}

// IsReady see [storage.GalleryDatastore].IsReady.
func (s *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	versionReady, err := sqlcommon.IsReady(ctx, s.versionReady, s.db)
	if err != nil {
		return versionReady, err
	}
	s.versionReady = versionReady.IsReady
	return versionReady, nil
}

// itemColumns is the column list shared by every item select,
// including the aggregation aliases the sort allow-list may reference.
var itemColumns = []string{
	"item.id", "item.owner_id", "item.title", "item.body", "item.tags",
	"item.category", "item.visibility", "item.usage_count",
	"item.created_at", "item.updated_at",
	"COALESCE(ra.avg_rating, 0) AS avg_rating",
	"COALESCE(fc.favorite_count, 0) AS favorite_count",
	"my_favorite.user_id AS caller_favorite",
}

// selectItems builds the item page query with the grouped joins that
// attach derived per-caller state in a single round trip.
func (s *Datastore) selectItems(principalID string) sq.SelectBuilder {
	return s.stbl.
		Select(itemColumns...).
		From("item").
		LeftJoin("(SELECT item_id, AVG(rating) AS avg_rating FROM rating GROUP BY item_id) ra ON ra.item_id = item.id").
		LeftJoin("(SELECT item_id, COUNT(*) AS favorite_count FROM favorite GROUP BY item_id) fc ON fc.item_id = item.id").
		LeftJoin("favorite my_favorite ON my_favorite.item_id = item.id AND my_favorite.user_id = ?", principalID)
}

func scanItem(row sq.RowScanner) (*storage.ItemWithStats, error) {
	var item storage.ItemWithStats
	var tags string
	var callerFavorite sql.NullString

	err := row.Scan(
		&item.ID, &item.OwnerID, &item.Title, &item.Body, &tags,
		&item.Category, &item.Visibility, &item.UsageCount,
		&item.CreatedAt, &item.UpdatedAt,
		&item.Rating, &item.FavoriteCount, &callerFavorite,
	)
	if err != nil {
		return nil, err
	}

	item.Tags = sqlcommon.SplitTags(tags)
	item.Favorite = callerFavorite.Valid
	return &item, nil
}

// ListItems see [storage.ItemStore].ListItems.
func (s *Datastore) ListItems(ctx context.Context, spec *query.Spec) ([]*storage.ItemWithStats, int64, error) {
	ctx, span := startTrace(ctx, "ListItems")
	defer span.End()

	return s.listItems(ctx, spec, s.selectItems(spec.Principal), s.stbl.Select("COUNT(*)").From("item"))
}

// ListCollectionItems see [storage.CollectionStore].ListCollectionItems.
func (s *Datastore) ListCollectionItems(ctx context.Context, collectionID string, spec *query.Spec) ([]*storage.ItemWithStats, int64, error) {
	ctx, span := startTrace(ctx, "ListCollectionItems")
	defer span.End()

	membership := "collection_item ON collection_item.item_id = item.id AND collection_item.collection_id = ?"
	pageQuery := s.selectItems(spec.Principal).Join(membership, collectionID)
	countQuery := s.stbl.Select("COUNT(*)").From("item").Join(membership, collectionID)

	return s.listItems(ctx, spec, pageQuery, countQuery)
}

// listItems applies the compiled predicate set to both queries and
// runs them concurrently; identical predicates keep total and page
// consistent.
func (s *Datastore) listItems(ctx context.Context, spec *query.Spec, pageQuery, countQuery sq.SelectBuilder) ([]*storage.ItemWithStats, int64, error) {
	pageQuery = spec.Apply(pageQuery).
		OrderBy(spec.OrderBy()).
		Limit(uint64(spec.Limit)).
		Offset(uint64(spec.Offset))
	countQuery = spec.Apply(countQuery)

	var items []*storage.ItemWithStats
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
				item, err := scanItem(rows)
				if err != nil {
					return HandleSQLError(err)
				}
				items = append(items, item)
			}
			return rows.Err()
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// GetItem see [storage.ItemStore].GetItem.
func (s *Datastore) GetItem(ctx context.Context, itemID, principalID string) (*storage.ItemWithStats, error) {
	ctx, span := startTrace(ctx, "GetItem")
	defer span.End()

	item, err := scanItem(s.selectItems(principalID).
		Where(sq.Eq{"item.id": itemID}).
		QueryRowContext(ctx))
	if err != nil {
		return nil, HandleSQLError(err)
	}
	return item, nil
}

// CreateItem see [storage.ItemStore].CreateItem.
func (s *Datastore) CreateItem(ctx context.Context, item *storage.ContentItem) error {
	ctx, span := startTrace(ctx, "CreateItem")
	defer span.End()

	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	err := busyRetry(func() error {
		_, err := s.stbl.
			Insert("item").
			Columns("id", "owner_id", "title", "body", "tags", "category", "visibility", "usage_count", "created_at", "updated_at").
			Values(item.ID, item.OwnerID, item.Title, item.Body, sqlcommon.JoinTags(item.Tags), item.Category, item.Visibility, item.UsageCount, item.CreatedAt, item.UpdatedAt).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// UpdateItem see [storage.ItemStore].UpdateItem.
func (s *Datastore) UpdateItem(ctx context.Context, item *storage.ContentItem) error {
	ctx, span := startTrace(ctx, "UpdateItem")
	defer span.End()

	item.UpdatedAt = time.Now().UTC()

	var res sql.Result
	err := busyRetry(func() error {
		var err error
		res, err = s.stbl.
			Update("item").
			Set("title", item.Title).
			Set("body", item.Body).
			Set("tags", sqlcommon.JoinTags(item.Tags)).
			Set("category", item.Category).
			Set("visibility", item.Visibility).
			Set("updated_at", item.UpdatedAt).
			Where(sq.Eq{"id": item.ID}).
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

// DeleteItem removes the item row and every edge referencing it in one
// transaction; a failure at any step rolls the whole deletion back.
func (s *Datastore) DeleteItem(ctx context.Context, itemID string) error {
	ctx, span := startTrace(ctx, "DeleteItem")
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

	for _, edgeTable := range []string{"favorite", "rating", "collection_item"} {
		_, err := s.stbl.
			Delete(edgeTable).
			Where(sq.Eq{"item_id": itemID}).
			RunWith(txn). // Part of a txn.
			ExecContext(ctx)
		if err != nil {
			return HandleSQLError(err)
		}
	}

	res, err := s.stbl.
		Delete("item").
		Where(sq.Eq{"id": itemID}).
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

// ToggleFavorite attempts the insert unconditionally; the composite
// primary key is the final arbiter. A constraint violation means the
// edge already existed, so the toggle removes it instead.
func (s *Datastore) ToggleFavorite(ctx context.Context, userID, itemID string) (bool, error) {
	ctx, span := startTrace(ctx, "ToggleFavorite")
	defer span.End()

	err := busyRetry(func() error {
		_, err := s.stbl.
			Insert("favorite").
			Columns("user_id", "item_id", "added_at").
			Values(userID, itemID, time.Now().UTC()).
			ExecContext(ctx)
		return err
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(HandleSQLError(err), storage.ErrCollision) {
		return false, HandleSQLError(err)
	}

	err = busyRetry(func() error {
		_, err := s.stbl.
			Delete("favorite").
			Where(sq.Eq{"user_id": userID, "item_id": itemID}).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return false, HandleSQLError(err)
	}
	return false, nil
}

// RateItem see [storage.ItemStore].RateItem.
func (s *Datastore) RateItem(ctx context.Context, userID, itemID string, rating int) error {
	ctx, span := startTrace(ctx, "RateItem")
	defer span.End()

	err := busyRetry(func() error {
		_, err := s.stbl.
			Insert("rating").
			Columns("user_id", "item_id", "rating", "rated_at").
			Values(userID, itemID, rating, time.Now().UTC()).
			Suffix("ON CONFLICT (user_id, item_id) DO UPDATE SET rating = excluded.rating, rated_at = excluded.rated_at").
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// IncrementItemUsage see [storage.ItemStore].IncrementItemUsage.
func (s *Datastore) IncrementItemUsage(ctx context.Context, itemID string) error {
	ctx, span := startTrace(ctx, "IncrementItemUsage")
	defer span.End()

	var res sql.Result
	err := busyRetry(func() error {
		var err error
		res, err = s.stbl.
			Update("item").
			Set("usage_count", sq.Expr("usage_count + 1")).
			Where(sq.Eq{"id": itemID}).
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

// HandleSQLError processes an SQL error and converts it into a more
// specific storage error when possible.
func HandleSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
			return storage.ErrCollision
		}
	}

	return fmt.Errorf("sql error: %w", err)
}

var busyErrors = map[int]struct{}{
	sqlite3.SQLITE_BUSY_RECOVERY:      {},
	sqlite3.SQLITE_BUSY_SNAPSHOT:      {},
	sqlite3.SQLITE_BUSY_TIMEOUT:       {},
	sqlite3.SQLITE_BUSY:               {},
	sqlite3.SQLITE_LOCKED_SHAREDCACHE: {},
	sqlite3.SQLITE_LOCKED:             {},
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	_, ok := busyErrors[sqliteErr.Code()]
	return ok
}

// SQLite can return busy errors when under write load. The upstream
// driver's busy_timeout handles the common path; this bounded retry
// covers the cases that surface anyway.
func busyRetry(fn func() error) error {
	const maxRetries = 10
	for retries := 0; ; retries++ {
		err := fn()
		if err == nil {
			return nil
		}

		if isBusyError(err) {
			if retries < maxRetries {
				continue
			}

			return fmt.Errorf("sqlite busy error after %d retries: %w", maxRetries, err)
		}

		return err
	}
}
