// Package commands contains one command struct per server operation.
// Commands validate and authorize requests, call the datastore, and
// translate its sentinel errors into server errors. Handlers stay
// thin: decode, execute, encode.
package commands

import (
	"time"

	"github.com/galleria-app/galleria/pkg/storage"
)

// Pagination is the envelope every list response carries.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

func NewPagination(total int64, limit, offset int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}
}

// Item is the wire representation of a content item together with its
// caller-dependent stats.
type Item struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Tags          []string  `json:"tags"`
	Category      string    `json:"category"`
	Visibility    string    `json:"visibility"`
	UsageCount    int64     `json:"usage_count"`
	Favorite      bool      `json:"favorite"`
	Rating        float64   `json:"rating"`
	FavoriteCount int64     `json:"favorite_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func itemFromStorage(rec *storage.ItemWithStats) *Item {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Item{
		ID:            rec.ID,
		OwnerID:       rec.OwnerID,
		Title:         rec.Title,
		Body:          rec.Body,
		Tags:          tags,
		Category:      rec.Category,
		Visibility:    string(rec.Visibility),
		UsageCount:    rec.UsageCount,
		Favorite:      rec.Favorite,
		Rating:        rec.Rating,
		FavoriteCount: rec.FavoriteCount,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func itemsFromStorage(recs []*storage.ItemWithStats) []*Item {
	items := make([]*Item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, itemFromStorage(rec))
	}
	return items
}

type CollectionResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	ItemCount   int64     `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func collectionFromStorage(rec *storage.Collection, itemCount int64) *CollectionResponse {
	return &CollectionResponse{
		ID:          rec.ID,
		OwnerID:     rec.OwnerID,
		Name:        rec.Name,
		Description: rec.Description,
		Visibility:  string(rec.Visibility),
		ItemCount:   itemCount,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

type TournamentResponse struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Status             string    `json:"status"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
	MaxParticipants    int       `json:"max_participants"`
	Participants       int64     `json:"participants"`
	Registered         bool      `json:"registered"`
	CreatedAt          time.Time `json:"created_at"`
}

func tournamentFromStorage(rec *storage.TournamentWithStats) *TournamentResponse {
	return &TournamentResponse{
		ID:                 rec.ID,
		Title:              rec.Title,
		Description:        rec.Description,
		Status:             string(rec.Status),
		StartDate:          rec.StartDate,
		EndDate:            rec.EndDate,
		SubmissionDeadline: rec.SubmissionDeadline,
		MaxParticipants:    rec.MaxParticipants,
		Participants:       rec.Participants,
		Registered:         rec.Registered,
		CreatedAt:          rec.CreatedAt,
	}
}

type ParticipationResponse struct {
	UserID        string    `json:"user_id"`
	TournamentID  string    `json:"tournament_id"`
	Status        string    `json:"status"`
	SubmissionURL string    `json:"submission_url,omitempty"`
	Score         float64   `json:"score"`
	RegisteredAt  time.Time `json:"registered_at"`
}

func participationFromStorage(rec *storage.Participation) *ParticipationResponse {
	return &ParticipationResponse{
		UserID:        rec.UserID,
		TournamentID:  rec.TournamentID,
		Status:        string(rec.Status),
		SubmissionURL: rec.SubmissionURL,
		Score:         rec.Score,
		RegisteredAt:  rec.RegisteredAt,
	}
}
