package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
	"elog/internal/domain/services"
	"elog/internal/service/refrewrite"
)

// The fakes below back the service tests with in-memory state. The fake
// transaction manager snapshots every store before running a unit of work
// and restores on error, mirroring the rollback guarantee of the real
// pgx-based manager.

type snapshotter interface {
	snapshot() func()
}

type fakeTxManager struct {
	stores []snapshotter
	depth  int
}

func (tm *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.depth++
	defer func() { tm.depth-- }()
	if tm.depth > 1 {
		return fn(ctx)
	}

	var restores []func()
	for _, store := range tm.stores {
		restores = append(restores, store.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// fakeEntryRepo implements repositories.EntryRepository over a map.
type fakeEntryRepo struct {
	entries map[string]*models.Entry
	// failUpdateFor simulates a storage error when the cascade tries to
	// rewrite the given entry.
	failUpdateFor map[string]error
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{
		entries:       make(map[string]*models.Entry),
		failUpdateFor: make(map[string]error),
	}
}

func (r *fakeEntryRepo) snapshot() func() {
	saved := make(map[string]*models.Entry, len(r.entries))
	for id, entry := range r.entries {
		saved[id] = copyEntry(entry)
	}
	return func() { r.entries = saved }
}

func copyEntry(entry *models.Entry) *models.Entry {
	clone := *entry
	clone.Logbooks = append([]string(nil), entry.Logbooks...)
	clone.Tags = append([]string(nil), entry.Tags...)
	clone.Attachments = append([]string(nil), entry.Attachments...)
	clone.FollowUps = append([]string(nil), entry.FollowUps...)
	clone.References = append([]string(nil), entry.References...)
	if entry.SupersededBy != nil {
		v := *entry.SupersededBy
		clone.SupersededBy = &v
	}
	if entry.OriginID != nil {
		v := *entry.OriginID
		clone.OriginID = &v
	}
	if entry.Summarizes != nil {
		v := *entry.Summarizes
		clone.Summarizes = &v
	}
	return &clone
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *models.Entry) error {
	if entry.OriginID != nil {
		for _, existing := range r.entries {
			if existing.OriginID != nil && *existing.OriginID == *entry.OriginID {
				return domain.Errorf(domain.CodeDuplicateOriginID,
					"entry with origin id %s already exists", *entry.OriginID)
			}
		}
	}
	r.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (r *fakeEntryRepo) GetByID(_ context.Context, id string) (*models.Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
	}
	return copyEntry(entry), nil
}

func (r *fakeEntryRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.entries[id]
	return ok, nil
}

func (r *fakeEntryRepo) GetByOriginID(_ context.Context, originID string) (*models.Entry, error) {
	for _, entry := range r.entries {
		if entry.OriginID != nil && *entry.OriginID == originID {
			return copyEntry(entry), nil
		}
	}
	return nil, domain.Errorf(domain.CodeReferenceEntryNotFound, "no entry with origin id %s", originID)
}

func (r *fakeEntryRepo) ExistsByOriginID(_ context.Context, originID string) (bool, error) {
	for _, entry := range r.entries {
		if entry.OriginID != nil && *entry.OriginID == originID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEntryRepo) SetSupersededBy(_ context.Context, id, supersededBy string) error {
	entry, ok := r.entries[id]
	if !ok {
		return domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
	}
	if entry.SupersededBy != nil {
		return domain.Errorf(domain.CodeSupersedeAlreadyCreated, "entry %s already superseded", id)
	}
	entry.SupersededBy = &supersededBy
	return nil
}

func (r *fakeEntryRepo) AppendFollowUp(_ context.Context, id, followUpID string) error {
	entry, ok := r.entries[id]
	if !ok {
		return domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
	}
	entry.FollowUps = append(entry.FollowUps, followUpID)
	return nil
}

func (r *fakeEntryRepo) UpdateTextAndReferences(_ context.Context, id, text string, references []string) error {
	if err, ok := r.failUpdateFor[id]; ok {
		return err
	}
	entry, ok := r.entries[id]
	if !ok {
		return domain.Errorf(domain.CodeEntryNotFound, "entry %s not found", id)
	}
	entry.Text = text
	entry.References = append([]string(nil), references...)
	return nil
}

func (r *fakeEntryRepo) FindReferencing(_ context.Context, id string) ([]models.Entry, error) {
	var result []models.Entry
	for _, entry := range r.entries {
		if entry.SupersededBy != nil {
			continue
		}
		for _, ref := range entry.References {
			if ref == id {
				result = append(result, *copyEntry(entry))
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeEntryRepo) FindSuperseding(_ context.Context, id string) (*models.Entry, error) {
	for _, entry := range r.entries {
		if entry.SupersededBy != nil && *entry.SupersededBy == id {
			return copyEntry(entry), nil
		}
	}
	return nil, nil
}

func (r *fakeEntryRepo) FindFollowingUp(_ context.Context, id string) (*models.Entry, error) {
	for _, entry := range r.entries {
		if entry.SupersededBy != nil {
			continue
		}
		for _, followUp := range entry.FollowUps {
			if followUp == id {
				return copyEntry(entry), nil
			}
		}
	}
	return nil, nil
}

func (r *fakeEntryRepo) Search(_ context.Context, filter *repositories.SearchFilter) ([]models.Entry, error) {
	var result []models.Entry
	for _, entry := range r.entries {
		if len(filter.Logbooks) > 0 && !overlaps(entry.Logbooks, filter.Logbooks) {
			continue
		}
		if len(filter.Tags) > 0 && !overlaps(entry.Tags, filter.Tags) {
			continue
		}
		if filter.Text != "" &&
			!strings.Contains(strings.ToLower(entry.Title), strings.ToLower(filter.Text)) &&
			!strings.Contains(strings.ToLower(entry.Text), strings.ToLower(filter.Text)) {
			continue
		}
		if filter.From != nil && entry.LoggedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.LoggedAt.After(*filter.To) {
			continue
		}
		result = append(result, *copyEntry(entry))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].LoggedAt.Equal(result[j].LoggedAt) {
			return result[i].LoggedAt.After(result[j].LoggedAt)
		}
		return result[i].ID > result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// fakeLogbookSvc implements services.LogbookService over a map.
type fakeLogbookSvc struct {
	logbooks map[string]*models.Logbook
}

func newFakeLogbookSvc() *fakeLogbookSvc {
	return &fakeLogbookSvc{logbooks: make(map[string]*models.Logbook)}
}

func (s *fakeLogbookSvc) snapshot() func() {
	saved := make(map[string]*models.Logbook, len(s.logbooks))
	for id, logbook := range s.logbooks {
		clone := *logbook
		clone.Shifts = append([]models.Shift(nil), logbook.Shifts...)
		clone.Tags = append([]models.Tag(nil), logbook.Tags...)
		saved[id] = &clone
	}
	return func() { s.logbooks = saved }
}

func (s *fakeLogbookSvc) add(id string, shifts []models.Shift, tags []models.Tag) {
	s.logbooks[id] = &models.Logbook{ID: id, Name: id, Shifts: shifts, Tags: tags}
}

func (s *fakeLogbookSvc) CreateLogbook(_ context.Context, req *services.CreateLogbookRequest) (*models.Logbook, error) {
	logbook := &models.Logbook{ID: req.Name, Name: req.Name}
	s.logbooks[logbook.ID] = logbook
	return logbook, nil
}

func (s *fakeLogbookSvc) GetLogbook(_ context.Context, id string) (*models.Logbook, error) {
	logbook, ok := s.logbooks[id]
	if !ok {
		return nil, domain.Errorf(domain.CodeLogbookNotFound, "logbook %s not found", id)
	}
	return logbook, nil
}

func (s *fakeLogbookSvc) ListLogbooks(_ context.Context) ([]models.Logbook, error) {
	var result []models.Logbook
	for _, logbook := range s.logbooks {
		result = append(result, *logbook)
	}
	return result, nil
}

func (s *fakeLogbookSvc) AddShift(_ context.Context, logbookID string, req *services.AddShiftRequest) (*models.Shift, error) {
	logbook, ok := s.logbooks[logbookID]
	if !ok {
		return nil, domain.Errorf(domain.CodeLogbookNotFound, "logbook %s not found", logbookID)
	}
	shift := models.Shift{ID: req.Name, Name: req.Name, From: req.From, To: req.To}
	logbook.Shifts = append(logbook.Shifts, shift)
	return &shift, nil
}

func (s *fakeLogbookSvc) AddTag(_ context.Context, logbookID string, req *services.AddTagRequest) (*models.Tag, error) {
	logbook, ok := s.logbooks[logbookID]
	if !ok {
		return nil, domain.Errorf(domain.CodeLogbookNotFound, "logbook %s not found", logbookID)
	}
	tag := models.Tag{ID: req.Name, Name: req.Name}
	logbook.Tags = append(logbook.Tags, tag)
	return &tag, nil
}

func (s *fakeLogbookSvc) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.logbooks[id]
	return ok, nil
}

func (s *fakeLogbookSvc) TagExistsInLogbooks(_ context.Context, tagID string, logbookIDs []string) (bool, error) {
	for _, logbookID := range logbookIDs {
		logbook, ok := s.logbooks[logbookID]
		if !ok {
			continue
		}
		for _, tag := range logbook.Tags {
			if tag.ID == tagID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *fakeLogbookSvc) ShiftForLocalTime(_ context.Context, logbookID string, t time.Time) (*models.Shift, error) {
	logbook, ok := s.logbooks[logbookID]
	if !ok {
		return nil, domain.Errorf(domain.CodeLogbookNotFound, "logbook %s not found", logbookID)
	}
	for i := range logbook.Shifts {
		ok, err := logbook.Shifts[i].Contains(t)
		if err != nil {
			return nil, err
		}
		if ok {
			return &logbook.Shifts[i], nil
		}
	}
	return nil, nil
}

// fakeAttachmentSvc implements services.AttachmentService over a map.
type fakeAttachmentSvc struct {
	attachments map[string]*models.Attachment
	nextID      int
}

func newFakeAttachmentSvc() *fakeAttachmentSvc {
	return &fakeAttachmentSvc{attachments: make(map[string]*models.Attachment)}
}

func (s *fakeAttachmentSvc) snapshot() func() {
	saved := make(map[string]*models.Attachment, len(s.attachments))
	for id, attachment := range s.attachments {
		clone := *attachment
		saved[id] = &clone
	}
	nextID := s.nextID
	return func() { s.attachments, s.nextID = saved, nextID }
}

func (s *fakeAttachmentSvc) add(id string) {
	s.attachments[id] = &models.Attachment{ID: id, FileName: id + ".dat"}
}

func (s *fakeAttachmentSvc) CreateFromStream(_ context.Context, upload services.AttachmentUpload) (string, error) {
	s.nextID++
	id := upload.FileName
	s.attachments[id] = &models.Attachment{ID: id, FileName: upload.FileName, ContentType: upload.ContentType}
	return id, nil
}

func (s *fakeAttachmentSvc) GetAttachment(_ context.Context, id string) (*models.Attachment, error) {
	attachment, ok := s.attachments[id]
	if !ok {
		return nil, domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", id)
	}
	return attachment, nil
}

func (s *fakeAttachmentSvc) GetPayload(_ context.Context, id string) ([]byte, error) {
	if _, ok := s.attachments[id]; !ok {
		return nil, domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", id)
	}
	return []byte("payload"), nil
}

func (s *fakeAttachmentSvc) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.attachments[id]
	return ok, nil
}

func (s *fakeAttachmentSvc) MarkInUse(_ context.Context, id string) error {
	attachment, ok := s.attachments[id]
	if !ok {
		return domain.Errorf(domain.CodeAttachmentNotFound, "attachment %s not found", id)
	}
	attachment.InUse = true
	return nil
}

// testEngine bundles an entry service with its fakes.
type testEngine struct {
	entries     services.EntryService
	entryRepo   *fakeEntryRepo
	logbooks    *fakeLogbookSvc
	attachments *fakeAttachmentSvc
	tx          *fakeTxManager
}

func newTestEngine() *testEngine {
	entryRepo := newFakeEntryRepo()
	logbooks := newFakeLogbookSvc()
	attachments := newFakeAttachmentSvc()
	tx := &fakeTxManager{stores: []snapshotter{entryRepo, logbooks, attachments}}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return &testEngine{
		entries:     NewEntryService(entryRepo, logbooks, attachments, tx, refrewrite.New(), logger),
		entryRepo:   entryRepo,
		logbooks:    logbooks,
		attachments: attachments,
		tx:          tx,
	}
}

func strptr(s string) *string { return &s }
