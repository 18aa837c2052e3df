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

// PostgresAttachmentRepository implements the AttachmentRepository interface
type PostgresAttachmentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(config *RepositoryConfig) repositories.AttachmentRepository {
	return &PostgresAttachmentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists attachment metadata plus payload
func (r *PostgresAttachmentRepository) Create(ctx context.Context, attachment *models.Attachment, payload []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, file_name, content_type, in_use, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.Attachments)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		attachment.ID,
		attachment.FileName,
		attachment.ContentType,
		attachment.InUse,
		payload,
		attachment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetByID retrieves attachment metadata
func (r *PostgresAttachmentRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT id, file_name, content_type, in_use, created_at
		FROM %s WHERE id = $1
	`, r.tables.Attachments)

	var attachment models.Attachment
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.FileName,
		&attachment.ContentType,
		&attachment.InUse,
		&attachment.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", id)
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &attachment, nil
}

// GetPayload retrieves the stored file content
func (r *PostgresAttachmentRepository) GetPayload(ctx context.Context, id string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, r.tables.Attachments)

	var payload []byte
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", id)
		}
		return nil, fmt.Errorf("get attachment payload: %w", err)
	}
	return payload, nil
}

// Exists reports whether an attachment with the given id exists
func (r *PostgresAttachmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, r.tables.Attachments)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("attachment exists: %w", err)
	}
	return exists, nil
}

// MarkInUse flips the in-use flag to true
func (r *PostgresAttachmentRepository) MarkInUse(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET in_use = TRUE WHERE id = $1`, r.tables.Attachments)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark attachment in use: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", id)
	}
	return nil
}
