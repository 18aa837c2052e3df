package service

import (
	"context"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
	"elog/internal/domain/services"
	"elog/internal/service/refrewrite"
	"elog/internal/service/sanitizer"
)

// defaultSearchLimit applies when a search request names no page size.
const defaultSearchLimit = 25

// entryService implements the EntryService interface. Entries form three
// overlapping graph relations (supersession chain, follow-up tree, free
// reference graph), all stored as id adjacency lists and traversed through
// the repository.
type entryService struct {
	entryRepo     repositories.EntryRepository
	logbookSvc    services.LogbookService
	attachmentSvc services.AttachmentService
	txManager     repositories.TransactionManager
	rewriter      refrewrite.Rewriter
	titles        *sanitizer.TitleSanitizer
	logger        *slog.Logger
}

// NewEntryService creates a new entry service
func NewEntryService(
	entryRepo repositories.EntryRepository,
	logbookSvc services.LogbookService,
	attachmentSvc services.AttachmentService,
	txManager repositories.TransactionManager,
	rewriter refrewrite.Rewriter,
	logger *slog.Logger,
) services.EntryService {
	return &entryService{
		entryRepo:     entryRepo,
		logbookSvc:    logbookSvc,
		attachmentSvc: attachmentSvc,
		txManager:     txManager,
		rewriter:      rewriter,
		titles:        sanitizer.NewTitleSanitizer(),
		logger:        logger,
	}
}

// Create validates and persists a new entry, returning its id
func (s *entryService) Create(ctx context.Context, author models.Person, req *services.CreateEntryRequest) (string, error) {
	var id string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		id, err = s.createInTx(txCtx, author, req, nil)
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("entry created", "entry_id", id, "logbooks", req.Logbooks)
	return id, nil
}

// createInTx runs the full validation chain and persists the entry. It
// must be called with a transaction already on the context. Validation
// order is fixed: logbooks, summary constraints, attachments, tags, title,
// body, then reference filtering.
func (s *entryService) createInTx(ctx context.Context, author models.Person, req *services.CreateEntryRequest, extraFollowUps []string) (string, error) {
	if err := validation.Validate(req.Logbooks, validation.Required); err != nil {
		return "", domain.Errorf(domain.CodeMissingLogbook, "entry must belong to at least one logbook")
	}

	if req.Summarizes != nil {
		if len(req.Logbooks) != 1 {
			return "", domain.Errorf(domain.CodeMultiLogbookSummary,
				"a shift summary must belong to exactly one logbook, got %d", len(req.Logbooks))
		}
		logbook, err := s.logbookSvc.GetLogbook(ctx, req.Logbooks[0])
		if err != nil {
			return "", err
		}
		if logbook.ShiftByID(req.Summarizes.ShiftID) == nil {
			return "", domain.Errorf(domain.CodeShiftNotFound,
				"logbook %s has no shift %s", logbook.ID, req.Summarizes.ShiftID)
		}
	} else {
		for _, logbookID := range req.Logbooks {
			exists, err := s.logbookSvc.Exists(ctx, logbookID)
			if err != nil {
				return "", err
			}
			if !exists {
				return "", domain.Errorf(domain.CodeLogbookNotFound, "logbook %s not found", logbookID)
			}
		}
	}

	// All attachments are checked before any is marked in use, so a
	// failed draft leaves every in-use flag untouched.
	for _, attachmentID := range req.Attachments {
		exists, err := s.attachmentSvc.Exists(ctx, attachmentID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", attachmentID)
		}
	}

	for _, tagID := range req.Tags {
		ok, err := s.logbookSvc.TagExistsInLogbooks(ctx, tagID, req.Logbooks)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", domain.Errorf(domain.CodeTagNotFound,
				"tag %s not declared by any logbook of the entry", tagID)
		}
	}

	title := s.titles.Sanitize(req.Title)
	if err := validation.Validate(title, validation.Required); err != nil {
		return "", domain.Errorf(domain.CodeInvalidTitle, "entry title is required")
	}
	if req.Text == nil {
		return "", domain.Errorf(domain.CodeInvalidBody, "entry text is required")
	}

	references, err := s.filterReferences(ctx, *req.Text, req.References)
	if err != nil {
		return "", err
	}

	for _, attachmentID := range req.Attachments {
		if err := s.attachmentSvc.MarkInUse(ctx, attachmentID); err != nil {
			return "", err
		}
	}

	now := time.Now()
	eventAt := now
	if req.EventAt != nil {
		eventAt = *req.EventAt
	}

	entry := &models.Entry{
		ID:          uuid.NewString(),
		Logbooks:    req.Logbooks,
		Title:       title,
		Text:        *req.Text, // stored verbatim, never sanitized
		Tags:        req.Tags,
		Attachments: req.Attachments,
		FollowUps:   extraFollowUps,
		References:  references,
		Summarizes:  req.Summarizes,
		OriginID:    req.OriginID,
		LoggedAt:    now,
		EventAt:     eventAt,
		LoggedBy:    author,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// filterReferences merges the ids found in the body markup with the
// caller-supplied list (body order first), then silently drops every id
// that does not resolve to an existing entry. The leniency is deliberate:
// unknown free-form references are not an error.
func (s *entryService) filterReferences(ctx context.Context, text string, explicit []string) ([]string, error) {
	fromBody, err := s.rewriter.ExtractIDs(text)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, id := range append(fromBody, explicit...) {
		if !seen[id] {
			seen[id] = true
			candidates = append(candidates, id)
		}
	}

	var references []string
	for _, id := range candidates {
		exists, err := s.entryRepo.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			references = append(references, id)
		}
	}
	return references, nil
}

// GetFull retrieves an entry with the requested inclusions resolved
func (s *entryService) GetFull(ctx context.Context, id string, include services.IncludeOptions) (*models.EntryView, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view, err := s.baseView(ctx, entry)
	if err != nil {
		return nil, err
	}

	if include.FollowUps {
		for _, followUpID := range entry.FollowUps {
			child, err := s.entryRepo.GetByID(ctx, followUpID)
			if err != nil {
				return nil, err
			}
			childView, err := s.baseView(ctx, child)
			if err != nil {
				return nil, err
			}
			view.FollowUpViews = append(view.FollowUpViews, *childView)
		}
	}

	if include.FollowingUp {
		parent, err := s.entryRepo.FindFollowingUp(ctx, id)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			summary, err := s.toSummary(ctx, parent)
			if err != nil {
				return nil, err
			}
			view.FollowingUp = summary
		}
	}

	if include.History {
		history, err := s.history(ctx, entry)
		if err != nil {
			return nil, err
		}
		view.History = history
	}

	if include.References {
		for _, refID := range entry.References {
			ref, err := s.entryRepo.GetByID(ctx, refID)
			if err != nil {
				return nil, err
			}
			summary, err := s.toSummary(ctx, ref)
			if err != nil {
				return nil, err
			}
			view.ReferenceInfo = append(view.ReferenceInfo, *summary)
		}
	}

	if include.ReferencedBy {
		referrers, err := s.entryRepo.FindReferencing(ctx, id)
		if err != nil {
			return nil, err
		}
		for i := range referrers {
			summary, err := s.toSummary(ctx, &referrers[i])
			if err != nil {
				return nil, err
			}
			view.ReferencedBy = append(view.ReferencedBy, *summary)
		}
	}

	return view, nil
}

// history walks the supersession chain backward: repeatedly find the entry
// whose forward pointer targets the current one. Newest prior version
// first, oldest last.
func (s *entryService) history(ctx context.Context, entry *models.Entry) ([]models.EntrySummary, error) {
	var history []models.EntrySummary
	current := entry
	for {
		prev, err := s.entryRepo.FindSuperseding(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			return history, nil
		}
		summary, err := s.toSummary(ctx, prev)
		if err != nil {
			return nil, err
		}
		history = append(history, *summary)
		current = prev
	}
}

// Supersede replaces an entry with a new version. The new entry inherits
// the target's follow-ups, and every non-superseded entry referencing the
// target is rewritten to point at the new version - list and body markup
// both. All of it commits as one transaction.
func (s *entryService) Supersede(ctx context.Context, author models.Person, entryID string, req *services.CreateEntryRequest) (string, error) {
	var newID string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		target, err := s.entryRepo.GetByID(txCtx, entryID)
		if err != nil {
			return err
		}
		if target.Superseded() {
			return domain.Errorf(domain.CodeSupersedeAlreadyCreated,
				"entry %s already superseded by %s", entryID, *target.SupersededBy)
		}

		newID, err = s.createInTx(txCtx, author, req, target.FollowUps)
		if err != nil {
			return err
		}

		if err := s.cascadeReferences(txCtx, entryID, newID); err != nil {
			return err
		}

		return s.entryRepo.SetSupersededBy(txCtx, entryID, newID)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("entry superseded", "entry_id", entryID, "new_entry_id", newID)
	return newID, nil
}

// cascadeReferences repoints every live referrer of oldID at newID so no
// reachable reference targets a superseded entry.
func (s *entryService) cascadeReferences(ctx context.Context, oldID, newID string) error {
	referrers, err := s.entryRepo.FindReferencing(ctx, oldID)
	if err != nil {
		return err
	}

	for i := range referrers {
		referrer := &referrers[i]

		references := make([]string, len(referrer.References))
		for j, ref := range referrer.References {
			if ref == oldID {
				references[j] = newID
			} else {
				references[j] = ref
			}
		}

		text, err := s.rewriter.RewriteTag(referrer.Text, oldID, newID)
		if err != nil {
			return err
		}

		if err := s.entryRepo.UpdateTextAndReferences(ctx, referrer.ID, text, references); err != nil {
			return err
		}
	}
	return nil
}

// LinkSupersede points targetID at an already-created new version. Used by
// the import orchestrator, whose supersede links arrive as origin ids with
// the new entry built separately; the reference cascade runs exactly as it
// does for Supersede. Re-applying an identical link is a no-op success.
func (s *entryService) LinkSupersede(ctx context.Context, targetID, newID string) error {
	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		target, err := s.entryRepo.GetByID(txCtx, targetID)
		if err != nil {
			return err
		}
		if target.Superseded() {
			if *target.SupersededBy == newID {
				return nil
			}
			return domain.Errorf(domain.CodeSupersedeAlreadyCreated,
				"entry %s already superseded by %s", targetID, *target.SupersededBy)
		}

		if err := s.cascadeReferences(txCtx, targetID, newID); err != nil {
			return err
		}
		return s.entryRepo.SetSupersededBy(txCtx, targetID, newID)
	})
}

// FollowUp creates a child entry under the given root
func (s *entryService) FollowUp(ctx context.Context, author models.Person, rootID string, req *services.CreateEntryRequest) (string, error) {
	var newID string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := s.entryRepo.GetByID(txCtx, rootID); err != nil {
			return err
		}

		var err error
		newID, err = s.createInTx(txCtx, author, req, nil)
		if err != nil {
			return err
		}

		return s.entryRepo.AppendFollowUp(txCtx, rootID, newID)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("follow-up created", "root_entry_id", rootID, "entry_id", newID)
	return newID, nil
}

// Search returns entry summaries matching the request, newest first
func (s *entryService) Search(ctx context.Context, req *services.SearchEntriesRequest) ([]models.EntrySummary, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	filter := &repositories.SearchFilter{
		Logbooks:      req.Logbooks,
		Tags:          req.Tags,
		Text:          req.Text,
		From:          req.From,
		To:            req.To,
		Anchor:        req.Anchor,
		ContextSize:   req.ContextSize,
		Limit:         limit,
		SortByEventAt: req.SortByEventAt,
	}

	entries, err := s.entryRepo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.EntrySummary, 0, len(entries))
	for i := range entries {
		summary, err := s.toSummary(ctx, &entries[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// baseView builds the view fields every read gets: the entry itself,
// resolved attachment metadata, and the shift matches for its event time.
func (s *entryService) baseView(ctx context.Context, entry *models.Entry) (*models.EntryView, error) {
	view := &models.EntryView{Entry: *entry}

	for _, attachmentID := range entry.Attachments {
		attachment, err := s.attachmentSvc.GetAttachment(ctx, attachmentID)
		if err != nil {
			return nil, err
		}
		view.AttachmentInfo = append(view.AttachmentInfo, *attachment)
	}

	shifts, err := s.resolveShifts(ctx, entry)
	if err != nil {
		return nil, err
	}
	view.Shifts = shifts
	return view, nil
}

// resolveShifts collects, per logbook of the entry, the shift whose window
// contains the event time of day. An entry can fall into one shift per
// logbook it belongs to, which is why the result is a list.
func (s *entryService) resolveShifts(ctx context.Context, entry *models.Entry) ([]models.Shift, error) {
	var shifts []models.Shift
	for _, logbookID := range entry.Logbooks {
		shift, err := s.logbookSvc.ShiftForLocalTime(ctx, logbookID, entry.EventAt)
		if err != nil {
			return nil, err
		}
		if shift != nil {
			shifts = append(shifts, *shift)
		}
	}
	return shifts, nil
}

func (s *entryService) toSummary(ctx context.Context, entry *models.Entry) (*models.EntrySummary, error) {
	summary := &models.EntrySummary{
		ID:       entry.ID,
		Logbooks: entry.Logbooks,
		Title:    entry.Title,
		Tags:     entry.Tags,
		LoggedAt: entry.LoggedAt,
		EventAt:  entry.EventAt,
		LoggedBy: entry.LoggedBy,
	}

	for _, attachmentID := range entry.Attachments {
		attachment, err := s.attachmentSvc.GetAttachment(ctx, attachmentID)
		if err != nil {
			return nil, err
		}
		summary.Attachments = append(summary.Attachments, *attachment)
	}

	shifts, err := s.resolveShifts(ctx, entry)
	if err != nil {
		return nil, err
	}
	summary.Shifts = shifts
	return summary, nil
}
