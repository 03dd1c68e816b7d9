// Package storage defines the datastore contract of the gallery
// engine together with the records it persists. Implementations live
// in the sqlite and postgres subpackages and share helpers from
// sqlcommon.
package storage

import (
	"context"
	"time"

	"github.com/galleria-app/galleria/pkg/query"
)

const (
	// DefaultMaxParticipants caps tournament registration when a
	// tournament does not specify its own limit.
	DefaultMaxParticipants = 100
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "registered"
	ParticipationSubmitted  ParticipationStatus = "submitted"
	ParticipationFinalist   ParticipationStatus = "finalist"
	ParticipationWinner     ParticipationStatus = "winner"
)

// ContentItem is an owned gallery entry (prompt, artwork, history
// record). Mutable only by its owner; usage_count is monotonic and fed
// by the surrounding application.
type ContentItem struct {
	ID         string
	OwnerID    string
	Title      string
	Body       string
	Tags       []string
	Category   string
	Visibility Visibility
	UsageCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ItemWithStats carries an item together with the per-caller derived
// state computed by the aggregation joins.
type ItemWithStats struct {
	ContentItem

	// Favorite reports whether the requesting caller has a favorite
	// edge for this item.
	Favorite bool

	// Rating is the average over all rating edges, 0 if none.
	Rating float64

	FavoriteCount int64
}

type Collection struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Visibility  Visibility
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CollectionWithStats struct {
	Collection

	ItemCount int64
}

type Tournament struct {
	ID                 string
	Title              string
	Description        string
	Status             TournamentStatus
	StartDate          time.Time
	EndDate            time.Time
	SubmissionDeadline time.Time
	MaxParticipants    int
	CreatedAt          time.Time
}

type TournamentWithStats struct {
	Tournament

	Participants int64

	// Registered reports whether the requesting caller holds a
	// participation edge for this tournament.
	Registered bool
}

type Participation struct {
	UserID        string
	TournamentID  string
	Status        ParticipationStatus
	SubmissionURL string
	Score         float64
	RegisteredAt  time.Time
}

// ReadinessStatus reports the readiness of the datastore.
type ReadinessStatus struct {
	Message string
	IsReady bool
}

// ItemStore manages content items and their favorite/rating edges.
type ItemStore interface {
	// ListItems executes the compiled spec twice with identical
	// predicates: once for the total count, once for the page.
	ListItems(ctx context.Context, spec *query.Spec) ([]*ItemWithStats, int64, error)

	// GetItem returns the item with stats computed for principalID.
	// Visibility is not enforced here; callers run the authorizer.
	GetItem(ctx context.Context, itemID, principalID string) (*ItemWithStats, error)

	CreateItem(ctx context.Context, item *ContentItem) error

	// UpdateItem overwrites the mutable fields and refreshes
	// updated_at. Returns ErrNotFound if the item does not exist.
	UpdateItem(ctx context.Context, item *ContentItem) error

	// DeleteItem removes the item and every favorite, rating and
	// collection-membership edge referencing it in one transaction.
	DeleteItem(ctx context.Context, itemID string) error

	// ToggleFavorite flips the caller's favorite edge and reports the
	// resulting state. The edge table's uniqueness constraint is the
	// final arbiter under concurrent calls.
	ToggleFavorite(ctx context.Context, userID, itemID string) (bool, error)

	// RateItem upserts the caller's rating edge; a repeat rating
	// overwrites the previous one.
	RateItem(ctx context.Context, userID, itemID string, rating int) error

	IncrementItemUsage(ctx context.Context, itemID string) error
}

// CollectionStore manages collections and their membership edges.
type CollectionStore interface {
	ListCollections(ctx context.Context, spec *query.Spec) ([]*CollectionWithStats, int64, error)
	GetCollection(ctx context.Context, collectionID string) (*Collection, error)
	CreateCollection(ctx context.Context, collection *Collection) error
	UpdateCollection(ctx context.Context, collection *Collection) error

	// DeleteCollection removes the collection and its membership edges
	// in one transaction.
	DeleteCollection(ctx context.Context, collectionID string) error

	// AddCollectionItem returns ErrCollision if the pair already exists.
	AddCollectionItem(ctx context.Context, collectionID, itemID string) error

	// RemoveCollectionItem returns ErrNotFound if the pair is absent.
	RemoveCollectionItem(ctx context.Context, collectionID, itemID string) error

	// ListCollectionItems pages through the items of one collection,
	// applying the spec's filters and the caller's stats joins.
	ListCollectionItems(ctx context.Context, collectionID string, spec *query.Spec) ([]*ItemWithStats, int64, error)
}

// TournamentStore manages tournaments and participation edges.
type TournamentStore interface {
	ListTournaments(ctx context.Context, spec *query.Spec) ([]*TournamentWithStats, int64, error)
	GetTournament(ctx context.Context, tournamentID, principalID string) (*TournamentWithStats, error)
	CreateTournament(ctx context.Context, tournament *Tournament) error

	// RegisterParticipant inserts the edge unconditionally and
	// re-counts inside the same transaction. A uniqueness violation
	// surfaces as ErrCollision; a post-insert count above
	// maxParticipants rolls the edge back and surfaces as
	// ErrCapacityExceeded.
	RegisterParticipant(ctx context.Context, userID, tournamentID string, maxParticipants int) (*Participation, error)

	// GetParticipation returns ErrNotFound when no edge exists.
	GetParticipation(ctx context.Context, userID, tournamentID string) (*Participation, error)

	// UpdateParticipationStatus moves the edge from one status to
	// another. It returns ErrNotFound if the edge is absent and
	// ErrInvalidTransition if its current status is not `from`.
	UpdateParticipationStatus(ctx context.Context, userID, tournamentID string, from, to ParticipationStatus, submissionURL string) error
}

// GalleryDatastore is the complete storage contract consumed by the
// command layer.
type GalleryDatastore interface {
	ItemStore
	CollectionStore
	TournamentStore

	// IsReady reports whether the datastore is ready to accept traffic.
	IsReady(ctx context.Context) (ReadinessStatus, error)

	// Close releases the underlying connection pool.
	Close()
}
