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

var tournamentColumns = []string{
	"tournament.id", "tournament.title", "tournament.description",
	"tournament.status", "tournament.start_date", "tournament.end_date",
	"tournament.submission_deadline", "tournament.max_participants",
	"tournament.created_at",
	"COALESCE(pc.participants, 0) AS participants",
	"my_participation.user_id AS caller_registered",
}

func (s *Datastore) selectTournaments(principalID string) sq.SelectBuilder {
	return s.stbl.
		Select(tournamentColumns...).
		From("tournament").
		LeftJoin("(SELECT tournament_id, COUNT(*) AS participants FROM participation GROUP BY tournament_id) pc ON pc.tournament_id = tournament.id").
		LeftJoin("participation my_participation ON my_participation.tournament_id = tournament.id AND my_participation.user_id = ?", principalID)
}

func scanTournament(row sq.RowScanner) (*storage.TournamentWithStats, error) {
	var t storage.TournamentWithStats
	var callerRegistered sql.NullString

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status,
		&t.StartDate, &t.EndDate, &t.SubmissionDeadline,
		&t.MaxParticipants, &t.CreatedAt,
		&t.Participants, &callerRegistered,
	)
	if err != nil {
		return nil, err
	}

	t.Registered = callerRegistered.Valid
	return &t, nil
}

// ListTournaments see [storage.TournamentStore].ListTournaments.
func (s *Datastore) ListTournaments(ctx context.Context, spec *query.Spec) ([]*storage.TournamentWithStats, int64, error) {
	ctx, span := startTrace(ctx, "ListTournaments")
	defer span.End()

	pageQuery := spec.Apply(s.selectTournaments(spec.Principal)).
		OrderBy(spec.OrderBy()).
		Limit(uint64(spec.Limit)).
		Offset(uint64(spec.Offset))
	countQuery := spec.Apply(s.stbl.Select("COUNT(*)").From("tournament"))

	var tournaments []*storage.TournamentWithStats
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
				t, err := scanTournament(rows)
				if err != nil {
					return HandleSQLError(err)
				}
				tournaments = append(tournaments, t)
			}
			return rows.Err()
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return tournaments, total, nil
}

// GetTournament see [storage.TournamentStore].GetTournament.
func (s *Datastore) GetTournament(ctx context.Context, tournamentID, principalID string) (*storage.TournamentWithStats, error) {
	ctx, span := startTrace(ctx, "GetTournament")
	defer span.End()

	t, err := scanTournament(s.selectTournaments(principalID).
		Where(sq.Eq{"tournament.id": tournamentID}).
		QueryRowContext(ctx))
	if err != nil {
		return nil, HandleSQLError(err)
	}
	return t, nil
}

// CreateTournament see [storage.TournamentStore].CreateTournament.
func (s *Datastore) CreateTournament(ctx context.Context, tournament *storage.Tournament) error {
	ctx, span := startTrace(ctx, "CreateTournament")
	defer span.End()

	now := time.Now().UTC()
	if tournament.ID == "" {
		tournament.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}
	tournament.CreatedAt = now
	if tournament.MaxParticipants <= 0 {
		tournament.MaxParticipants = storage.DefaultMaxParticipants
	}

	err := busyRetry(func() error {
		_, err := s.stbl.
			Insert("tournament").
			Columns("id", "title", "description", "status", "start_date", "end_date", "submission_deadline", "max_participants", "created_at").
			Values(tournament.ID, tournament.Title, tournament.Description, tournament.Status, tournament.StartDate, tournament.EndDate, tournament.SubmissionDeadline, tournament.MaxParticipants, tournament.CreatedAt).
			ExecContext(ctx)
		return err
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}

// RegisterParticipant inserts the edge and re-counts inside the same
// transaction. Any prior count check by the caller is advisory only;
// the post-insert re-count here is the authoritative capacity gate.
func (s *Datastore) RegisterParticipant(ctx context.Context, userID, tournamentID string, maxParticipants int) (*storage.Participation, error) {
	ctx, span := startTrace(ctx, "RegisterParticipant")
	defer span.End()

	var txn *sql.Tx
	err := busyRetry(func() error {
		var err error
		txn, err = s.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		return nil, HandleSQLError(err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	participation := &storage.Participation{
		UserID:       userID,
		TournamentID: tournamentID,
		Status:       storage.ParticipationRegistered,
		RegisteredAt: time.Now().UTC(),
	}

	_, err = s.stbl.
		Insert("participation").
		Columns("user_id", "tournament_id", "status", "registered_at").
		Values(participation.UserID, participation.TournamentID, participation.Status, participation.RegisteredAt).
		RunWith(txn). // Part of a txn.
		ExecContext(ctx)
	if err != nil {
		return nil, HandleSQLError(err)
	}

	var count int64
	err = s.stbl.
		Select("COUNT(*)").
		From("participation").
		Where(sq.Eq{"tournament_id": tournamentID}).
		RunWith(txn). // Part of a txn.
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return nil, HandleSQLError(err)
	}

	if count > int64(maxParticipants) {
		// The deferred rollback discards the just-inserted edge.
		return nil, storage.ErrCapacityExceeded
	}

	err = busyRetry(func() error {
		return txn.Commit()
	})
	if err != nil {
		return nil, HandleSQLError(err)
	}
	return participation, nil
}

// GetParticipation see [storage.TournamentStore].GetParticipation.
func (s *Datastore) GetParticipation(ctx context.Context, userID, tournamentID string) (*storage.Participation, error) {
	ctx, span := startTrace(ctx, "GetParticipation")
	defer span.End()

	var p storage.Participation
	err := s.stbl.
		Select("user_id", "tournament_id", "status", "submission_url", "score", "registered_at").
		From("participation").
		Where(sq.Eq{"user_id": userID, "tournament_id": tournamentID}).
		QueryRowContext(ctx).
		Scan(&p.UserID, &p.TournamentID, &p.Status, &p.SubmissionURL, &p.Score, &p.RegisteredAt)
	if err != nil {
		return nil, HandleSQLError(err)
	}
	return &p, nil
}

// UpdateParticipationStatus moves the edge from one status to another,
// verifying the current status inside the transaction.
func (s *Datastore) UpdateParticipationStatus(ctx context.Context, userID, tournamentID string, from, to storage.ParticipationStatus, submissionURL string) error {
	ctx, span := startTrace(ctx, "UpdateParticipationStatus")
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

	var current storage.ParticipationStatus
	err = s.stbl.
		Select("status").
		From("participation").
		Where(sq.Eq{"user_id": userID, "tournament_id": tournamentID}).
		RunWith(txn). // Part of a txn.
		QueryRowContext(ctx).
		Scan(&current)
	if err != nil {
		return HandleSQLError(err)
	}

	if current != from {
		return storage.ErrInvalidTransition
	}

	update := s.stbl.
		Update("participation").
		Set("status", to).
		Where(sq.Eq{"user_id": userID, "tournament_id": tournamentID})
	if submissionURL != "" {
		update = update.Set("submission_url", submissionURL)
	}

	_, err = update.
		RunWith(txn). // Part of a txn.
		ExecContext(ctx)
	if err != nil {
		return HandleSQLError(err)
	}

	err = busyRetry(func() error {
		return txn.Commit()
	})
	if err != nil {
		return HandleSQLError(err)
	}
	return nil
}
