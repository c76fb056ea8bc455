package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/rfp-shredder/pkg/apperrors"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// OpportunityRepository provides data access for opportunities.
type OpportunityRepository interface {
	Create(ctx context.Context, opp *models.Opportunity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	List(ctx context.Context) ([]*models.Opportunity, error)
}

type opportunityRepository struct{}

// NewOpportunityRepository creates a new OpportunityRepository.
func NewOpportunityRepository() OpportunityRepository {
	return &opportunityRepository{}
}

var _ OpportunityRepository = (*opportunityRepository)(nil)

const opportunityColumns = `
	id, title, description, status, due_date, agency, naics_code, set_aside,
	metadata, created_at, updated_at`

// Create inserts opp, assigning a fresh id when none is set.
func (r *opportunityRepository) Create(ctx context.Context, opp *models.Opportunity) error {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return err
	}

	if opp.ID == uuid.Nil {
		opp.ID = uuid.New()
	}
	if opp.Status == "" {
		opp.Status = models.OpportunityStatusActive
	}
	now := time.Now().UTC()
	opp.CreatedAt = now
	opp.UpdatedAt = now

	query := `
		INSERT INTO opportunities (
			id, title, description, status, due_date, agency, naics_code, set_aside,
			metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = q.Exec(ctx, query,
		opp.ID,
		opp.Title,
		opp.Description,
		string(opp.Status),
		opp.DueDate,
		nullString(opp.Agency),
		nullString(opp.NAICSCode),
		nullString(opp.SetAside),
		jsonObject(opp.Metadata),
		opp.CreatedAt,
		opp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}

	return nil
}

func (r *opportunityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`

	opp, err := scanOpportunity(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return opp, nil
}

// List returns every opportunity, newest first.
func (r *opportunityRepository) List(ctx context.Context) ([]*models.Opportunity, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + opportunityColumns + ` FROM opportunities ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*models.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunities: %w", err)
	}

	return opps, nil
}

func scanOpportunity(row pgx.Row) (*models.Opportunity, error) {
	var o models.Opportunity
	var status string
	var agency, naics, setAside *string
	var metadata []byte

	err := row.Scan(
		&o.ID,
		&o.Title,
		&o.Description,
		&status,
		&o.DueDate,
		&agency,
		&naics,
		&setAside,
		&metadata,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan opportunity: %w", err)
	}

	o.Status = models.OpportunityStatus(status)
	o.Agency = derefString(agency)
	o.NAICSCode = derefString(naics)
	o.SetAside = derefString(setAside)
	if err := jsonUnmarshal(metadata, &o.Metadata, "metadata"); err != nil {
		return nil, err
	}

	return &o, nil
}
