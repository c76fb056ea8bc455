package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/models"
)

// TaskRepository provides data access for proposal tasks.
type TaskRepository interface {
	CreateBatch(ctx context.Context, tasks []*models.Task) error
	ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]*models.Task, error)
	CountByOpportunity(ctx context.Context, opportunityID uuid.UUID) (*models.TaskCounts, error)
}

type taskRepository struct{}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository() TaskRepository {
	return &taskRepository{}
}

var _ TaskRepository = (*taskRepository)(nil)

// CreateBatch inserts tasks, assigning ids to any that lack one.
func (r *taskRepository) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	q, err := database.MustQuerier(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (
			id, opportunity_id, requirement_id, title, description, status, priority,
			due_date, assignee, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, t := range tasks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		t.CreatedAt = now
		t.UpdatedAt = now

		batch.Queue(query,
			t.ID,
			t.OpportunityID,
			nullString(t.RequirementID),
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.DueDate,
			nullString(t.Assignee),
			jsonObject(t.Metadata),
			t.CreatedAt,
			t.UpdatedAt,
		)
	}

	return execBatch(q.SendBatch(ctx, batch), len(tasks), "create task")
}

// ListByOpportunity returns tasks in due-date order.
func (r *taskRepository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]*models.Task, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, opportunity_id, requirement_id, title, description, status, priority,
		       due_date, assignee, metadata, created_at, updated_at
		FROM tasks
		WHERE opportunity_id = $1
		ORDER BY due_date NULLS LAST, requirement_id`

	rows, err := q.Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func (r *taskRepository) CountByOpportunity(ctx context.Context, opportunityID uuid.UUID) (*models.TaskCounts, error) {
	q, err := database.MustQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'in_progress'),
			count(*) FILTER (WHERE status = 'pending')
		FROM tasks
		WHERE opportunity_id = $1`

	var c models.TaskCounts
	if err := q.QueryRow(ctx, query, opportunityID).Scan(&c.Total, &c.Completed, &c.InProgress, &c.Pending); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	return &c, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	var requirementID, assignee *string
	var status, priority string
	var metadata []byte

	err := row.Scan(
		&t.ID,
		&t.OpportunityID,
		&requirementID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&t.DueDate,
		&assignee,
		&metadata,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.Status = models.TaskStatus(status)
	t.Priority = models.Priority(priority)
	t.RequirementID = derefString(requirementID)
	t.Assignee = derefString(assignee)
	if err := jsonUnmarshal(metadata, &t.Metadata, "metadata"); err != nil {
		return nil, err
	}

	return &t, nil
}
