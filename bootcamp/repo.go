package bootcamp

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Bootcamps is the listing repository.
type Bootcamps interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Bootcamp, error)
	List(ctx context.Context, limit, offset int) ([]*Bootcamp, int, error)
	Create(ctx context.Context, record *Bootcamp) (*Bootcamp, error)
	Update(ctx context.Context, record *Bootcamp) (*Bootcamp, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListWithinRadius(ctx context.Context, lat, lng, miles float64) ([]*Bootcamp, error)
}

type bootcamps struct {
	repository.Repository[*Bootcamp]
	db *bun.DB
}

var _ Bootcamps = (*bootcamps)(nil)

// NewRepository builds the bun-backed listings repository.
func NewRepository(db *bun.DB) Bootcamps {
	repo := repository.NewRepository[*Bootcamp](db, repository.ModelHandlers[*Bootcamp]{
		NewRecord: func() *Bootcamp { return &Bootcamp{} },
		GetID: func(b *Bootcamp) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *Bootcamp, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	return &bootcamps{
		Repository: repo,
		db:         db,
	}
}

func (r *bootcamps) GetByID(ctx context.Context, id uuid.UUID) (*Bootcamp, error) {
	record := &Bootcamp{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (r *bootcamps) List(ctx context.Context, limit, offset int) ([]*Bootcamp, int, error) {
	if limit <= 0 {
		limit = 25
	}

	var records []*Bootcamp
	count, err := r.db.NewSelect().Model(&records).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

func (r *bootcamps) Create(ctx context.Context, record *Bootcamp) (*Bootcamp, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Slug == "" {
		record.Slug = Slugify(record.Name)
	}
	return r.Repository.CreateTx(ctx, r.db, record)
}

func (r *bootcamps) Update(ctx context.Context, record *Bootcamp) (*Bootcamp, error) {
	if record.Name != "" {
		record.Slug = Slugify(record.Name)
	}
	now := time.Now()
	record.UpdatedAt = &now

	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(record.ID.String()),
	}
	return r.Repository.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *bootcamps) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().Model((*Bootcamp)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}
	return nil
}

// ListWithinRadius returns all listings within the given distance in miles.
// A bounding-box prefilter runs in SQL; the exact haversine check runs here
// because sqlite ships without trigonometric functions.
func (r *bootcamps) ListWithinRadius(ctx context.Context, lat, lng, miles float64) ([]*Bootcamp, error) {
	dLat := miles / 69.0
	dLng := dLat
	if cos := math.Cos(lat * math.Pi / 180); cos > 0.01 {
		dLng = miles / (69.0 * cos)
	}

	var candidates []*Bootcamp
	err := r.db.NewSelect().Model(&candidates).
		Where("?TableAlias.latitude BETWEEN ? AND ?", lat-dLat, lat+dLat).
		Where("?TableAlias.longitude BETWEEN ? AND ?", lng-dLng, lng+dLng).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*Bootcamp, 0, len(candidates))
	for _, b := range candidates {
		if Haversine(lat, lng, b.Latitude, b.Longitude) <= miles {
			matches = append(matches, b)
		}
	}
	return matches, nil
}
