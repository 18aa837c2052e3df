package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
)

// entryColumns is the canonical select list; scanEntry must stay in sync.
const entryColumns = `id, logbook_ids, title, body, tag_ids, attachment_ids,
	follow_up_ids, reference_ids, superseded_by, summarize_shift_id,
	summarize_date, origin_id, logged_at, event_at,
	logged_by_first, logged_by_last, logged_by_email`

// PostgresEntryRepository implements the EntryRepository interface
type PostgresEntryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(config *RepositoryConfig) repositories.EntryRepository {
	return &PostgresEntryRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create persists a new entry
func (r *PostgresEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, logbook_ids, title, body, tag_ids, attachment_ids,
			follow_up_ids, reference_ids, superseded_by, summarize_shift_id,
			summarize_date, origin_id, logged_at, event_at,
			logged_by_first, logged_by_last, logged_by_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, r.tables.Entries)

	var shiftID *string
	var shiftDate *time.Time
	if entry.Summarizes != nil {
		shiftID = &entry.Summarizes.ShiftID
		shiftDate = &entry.Summarizes.Date
	}

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		entry.ID,
		entry.Logbooks,
		entry.Title,
		entry.Text,
		entry.Tags,
		entry.Attachments,
		entry.FollowUps,
		entry.References,
		entry.SupersededBy,
		shiftID,
		shiftDate,
		entry.OriginID,
		entry.LoggedAt,
		entry.EventAt,
		entry.LoggedBy.FirstName,
		entry.LoggedBy.LastName,
		entry.LoggedBy.Email,
	)
	if err != nil {
		if IsPgDuplicateError(err) && entry.OriginID != nil {
			return domain.Errorf(domain.CodeDuplicateOriginID,
				"entry with origin id %s already exists", *entry.OriginID)
		}
		return fmt.Errorf("create entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry by ID
func (r *PostgresEntryRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, entryColumns, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	entry, err := scanEntry(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Exists reports whether an entry with the given id exists
func (r *PostgresEntryRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, r.tables.Entries)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("entry exists: %w", err)
	}
	return exists, nil
}

// GetByOriginID retrieves an entry by its import origin id
func (r *PostgresEntryRepository) GetByOriginID(ctx context.Context, originID string) (*models.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE origin_id = $1`, entryColumns, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	entry, err := scanEntry(executor.QueryRow(ctx, query, originID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.Errorf(domain.CodeReferenceEntryNotFound,
				"no entry with origin id %s", originID)
		}
		return nil, fmt.Errorf("get entry by origin id: %w", err)
	}
	return entry, nil
}

// ExistsByOriginID reports whether any entry carries the origin id
func (r *PostgresEntryRepository) ExistsByOriginID(ctx context.Context, originID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE origin_id = $1)`, r.tables.Entries)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, originID).Scan(&exists); err != nil {
		return false, fmt.Errorf("entry exists by origin id: %w", err)
	}
	return exists, nil
}

// SetSupersededBy sets the forward supersession pointer on an entry.
// The WHERE clause refuses to overwrite an already-set pointer, so a
// concurrent supersede that committed first makes this a no-op the caller
// detects via the row count.
func (r *PostgresEntryRepository) SetSupersededBy(ctx context.Context, id, supersededBy string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET superseded_by = $2
		WHERE id = $1 AND superseded_by IS NULL
	`, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, supersededBy)
	if err != nil {
		return fmt.Errorf("set superseded_by: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeSupersedeAlreadyCreated,
			"entry %s already superseded", id)
	}
	return nil
}

// AppendFollowUp appends a child id to an entry's follow-up list
func (r *PostgresEntryRepository) AppendFollowUp(ctx context.Context, id, followUpID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET follow_up_ids = array_append(follow_up_ids, $2)
		WHERE id = $1
	`, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, followUpID)
	if err != nil {
		return fmt.Errorf("append follow-up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
	}
	return nil
}

// UpdateTextAndReferences rewrites an entry's body and reference list
func (r *PostgresEntryRepository) UpdateTextAndReferences(ctx context.Context, id, text string, references []string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET body = $2, reference_ids = $3
		WHERE id = $1
	`, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, text, references)
	if err != nil {
		return fmt.Errorf("update text and references: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
	}
	return nil
}

// FindReferencing returns the non-superseded entries whose reference list
// contains the given id
func (r *PostgresEntryRepository) FindReferencing(ctx context.Context, id string) ([]models.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE reference_ids @> ARRAY[$1]::text[] AND superseded_by IS NULL
		ORDER BY logged_at DESC, id DESC
	`, entryColumns, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("find referencing: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// FindSuperseding returns the entry X with X.SupersededBy == id, or nil
func (r *PostgresEntryRepository) FindSuperseding(ctx context.Context, id string) (*models.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE superseded_by = $1`, entryColumns, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	entry, err := scanEntry(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find superseding: %w", err)
	}
	return entry, nil
}

// FindFollowingUp returns the non-superseded entry whose follow-up list
// contains the given id, or nil
func (r *PostgresEntryRepository) FindFollowingUp(ctx context.Context, id string) (*models.Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE follow_up_ids @> ARRAY[$1]::text[] AND superseded_by IS NULL
	`, entryColumns, r.tables.Entries)

	executor := GetExecutor(ctx, r.pool)
	entry, err := scanEntry(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find following up: %w", err)
	}
	return entry, nil
}

// Search returns entries matching the filter, newest first with id as a
// deterministic tie-break. With an anchor, the result is the context-size
// window at or before the anchor followed by up to limit entries after it,
// merged back into descending order.
func (r *PostgresEntryRepository) Search(ctx context.Context, filter *repositories.SearchFilter) ([]models.Entry, error) {
	sortField := "logged_at"
	if filter.SortByEventAt {
		sortField = "event_at"
	}

	conditions, args := buildSearchConditions(filter)

	if filter.Anchor != nil {
		before, err := r.searchWindow(ctx, conditions, args, sortField, "<=", *filter.Anchor, "DESC", filter.ContextSize)
		if err != nil {
			return nil, err
		}
		after, err := r.searchWindow(ctx, conditions, args, sortField, ">", *filter.Anchor, "ASC", filter.Limit)
		if err != nil {
			return nil, err
		}
		// after came back ascending; newest-first means after precedes before.
		reverse(after)
		return append(after, before...), nil
	}

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", sortField, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", sortField, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, entryColumns, r.tables.Entries)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, id DESC", sortField)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// searchWindow runs one side of an anchored search.
func (r *PostgresEntryRepository) searchWindow(ctx context.Context, conditions []string, args []interface{}, sortField, op string, anchor time.Time, order string, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	conds := append([]string(nil), conditions...)
	windowArgs := append([]interface{}(nil), args...)

	windowArgs = append(windowArgs, anchor)
	conds = append(conds, fmt.Sprintf("%s %s $%d", sortField, op, len(windowArgs)))

	windowArgs = append(windowArgs, limit)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s %s, id %s LIMIT $%d`,
		entryColumns, r.tables.Entries, strings.Join(conds, " AND "),
		sortField, order, order, len(windowArgs))

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, windowArgs...)
	if err != nil {
		return nil, fmt.Errorf("search entries (anchor window): %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// buildSearchConditions translates the non-temporal filter fields.
func buildSearchConditions(filter *repositories.SearchFilter) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if len(filter.Logbooks) > 0 {
		args = append(args, filter.Logbooks)
		conditions = append(conditions, fmt.Sprintf("logbook_ids && $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		conditions = append(conditions, fmt.Sprintf("tag_ids && $%d", len(args)))
	}
	if filter.Text != "" {
		args = append(args, "%"+filter.Text+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR body ILIKE $%d)", len(args), len(args)))
	}

	return conditions, args
}

func reverse(entries []models.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// scanEntry reads one row in entryColumns order.
func scanEntry(row pgx.Row) (*models.Entry, error) {
	var entry models.Entry
	var shiftID *string
	var shiftDate *time.Time

	err := row.Scan(
		&entry.ID,
		&entry.Logbooks,
		&entry.Title,
		&entry.Text,
		&entry.Tags,
		&entry.Attachments,
		&entry.FollowUps,
		&entry.References,
		&entry.SupersededBy,
		&shiftID,
		&shiftDate,
		&entry.OriginID,
		&entry.LoggedAt,
		&entry.EventAt,
		&entry.LoggedBy.FirstName,
		&entry.LoggedBy.LastName,
		&entry.LoggedBy.Email,
	)
	if err != nil {
		return nil, err
	}

	if shiftID != nil && shiftDate != nil {
		entry.Summarizes = &models.Summary{ShiftID: *shiftID, Date: *shiftDate}
	}
	return &entry, nil
}

func collectEntries(rows pgx.Rows) ([]models.Entry, error) {
	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
