package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
)

// PostgresLogbookRepository implements the LogbookRepository interface
type PostgresLogbookRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewLogbookRepository creates a new logbook repository
func NewLogbookRepository(config *RepositoryConfig) repositories.LogbookRepository {
	return &PostgresLogbookRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists a new logbook
func (r *PostgresLogbookRepository) Create(ctx context.Context, logbook *models.Logbook) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, $3)
	`, r.tables.Logbooks)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, logbook.ID, logbook.Name, logbook.CreatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("logbook %q: %w", logbook.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create logbook: %w", err)
	}
	return nil
}

// GetByID retrieves a logbook with its shifts and tags
func (r *PostgresLogbookRepository) GetByID(ctx context.Context, id string) (*models.Logbook, error) {
	query := fmt.Sprintf(`SELECT id, name, created_at FROM %s WHERE id = $1`, r.tables.Logbooks)

	var logbook models.Logbook
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&logbook.ID, &logbook.Name, &logbook.CreatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.Errorf(domain.CodeLogbookNotFound, "logbook %s not found", id)
		}
		return nil, fmt.Errorf("get logbook: %w", err)
	}

	if logbook.Shifts, err = r.shiftsFor(ctx, id); err != nil {
		return nil, err
	}
	if logbook.Tags, err = r.tagsFor(ctx, id); err != nil {
		return nil, err
	}
	return &logbook, nil
}

// Exists reports whether a logbook with the given id exists
func (r *PostgresLogbookRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, r.tables.Logbooks)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("logbook exists: %w", err)
	}
	return exists, nil
}

// List returns all logbooks
func (r *PostgresLogbookRepository) List(ctx context.Context) ([]models.Logbook, error) {
	query := fmt.Sprintf(`SELECT id, name, created_at FROM %s ORDER BY name`, r.tables.Logbooks)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list logbooks: %w", err)
	}
	defer rows.Close()

	var logbooks []models.Logbook
	for rows.Next() {
		var logbook models.Logbook
		if err := rows.Scan(&logbook.ID, &logbook.Name, &logbook.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan logbook: %w", err)
		}
		logbooks = append(logbooks, logbook)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logbooks: %w", err)
	}

	for i := range logbooks {
		if logbooks[i].Shifts, err = r.shiftsFor(ctx, logbooks[i].ID); err != nil {
			return nil, err
		}
		if logbooks[i].Tags, err = r.tagsFor(ctx, logbooks[i].ID); err != nil {
			return nil, err
		}
	}
	return logbooks, nil
}

// AddShift appends a shift to a logbook
func (r *PostgresLogbookRepository) AddShift(ctx context.Context, logbookID string, shift *models.Shift) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, logbook_id, name, from_time, to_time)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Shifts)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, shift.ID, logbookID, shift.Name, shift.From, shift.To)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("shift %q in logbook %s: %w", shift.Name, logbookID, domain.ErrConflict)
		}
		return fmt.Errorf("add shift: %w", err)
	}
	return nil
}

// AddTag appends a tag to a logbook
func (r *PostgresLogbookRepository) AddTag(ctx context.Context, logbookID string, tag *models.Tag) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, logbook_id, name)
		VALUES ($1, $2, $3)
	`, r.tables.Tags)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, tag.ID, logbookID, tag.Name)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("tag %q in logbook %s: %w", tag.Name, logbookID, domain.ErrConflict)
		}
		return fmt.Errorf("add tag: %w", err)
	}
	return nil
}

// TagExistsInLogbooks reports whether the tag id is declared by at least
// one of the given logbooks
func (r *PostgresLogbookRepository) TagExistsInLogbooks(ctx context.Context, tagID string, logbookIDs []string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1 AND logbook_id = ANY($2))
	`, r.tables.Tags)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, tagID, logbookIDs).Scan(&exists); err != nil {
		return false, fmt.Errorf("tag exists in logbooks: %w", err)
	}
	return exists, nil
}

func (r *PostgresLogbookRepository) shiftsFor(ctx context.Context, logbookID string) ([]models.Shift, error) {
	query := fmt.Sprintf(`
		SELECT id, name, from_time, to_time FROM %s
		WHERE logbook_id = $1 ORDER BY from_time
	`, r.tables.Shifts)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, logbookID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []models.Shift
	for rows.Next() {
		var shift models.Shift
		if err := rows.Scan(&shift.ID, &shift.Name, &shift.From, &shift.To); err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

func (r *PostgresLogbookRepository) tagsFor(ctx context.Context, logbookID string) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT id, name FROM %s WHERE logbook_id = $1 ORDER BY name
	`, r.tables.Tags)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, logbookID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
