package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/services"
)

var author = models.Person{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org"}

func draft(logbooks ...string) *services.CreateEntryRequest {
	return &services.CreateEntryRequest{
		Logbooks: logbooks,
		Title:    "a title",
		Text:     strptr(""),
	}
}

func assertCode(t *testing.T, err error, want domain.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	if got := domain.CodeOf(err); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

func TestCreate_MissingLogbook(t *testing.T) {
	e := newTestEngine()

	_, err := e.entries.Create(context.Background(), author, draft())
	assertCode(t, err, domain.CodeMissingLogbook)
}

func TestCreate_LogbookNotFound(t *testing.T) {
	e := newTestEngine()

	_, err := e.entries.Create(context.Background(), author, draft("nope"))
	assertCode(t, err, domain.CodeLogbookNotFound)
}

func TestCreate_InvalidTitle(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	req := draft("lb")
	req.Title = ""
	_, err := e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeInvalidTitle)

	// A title that is nothing but markup sanitizes to empty.
	req.Title = "<br/>"
	_, err = e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeInvalidTitle)
}

func TestCreate_InvalidBody(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	req := draft("lb")
	req.Text = nil
	_, err := e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeInvalidBody)
}

func TestCreate_UnknownAttachmentLeavesFlagsUntouched(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	e.attachments.add("att-1")

	req := draft("lb")
	req.Attachments = []string{"att-1", "att-missing"}
	_, err := e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeAttachmentNotFound)

	if e.attachments.attachments["att-1"].InUse {
		t.Error("in-use flag changed by a failed draft")
	}
}

func TestCreate_MarksAttachmentsInUse(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	e.attachments.add("att-1")

	req := draft("lb")
	req.Attachments = []string{"att-1"}
	if _, err := e.entries.Create(context.Background(), author, req); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !e.attachments.attachments["att-1"].InUse {
		t.Error("attachment not marked in use")
	}
}

func TestCreate_TagNotFound(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, []models.Tag{{ID: "tag-ok", Name: "ok"}})

	req := draft("lb")
	req.Tags = []string{"tag-ok", "tag-missing"}
	_, err := e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeTagNotFound)
}

func TestCreate_SummaryConstraints(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb1", []models.Shift{{ID: "day", Name: "Day", From: "08:00", To: "16:00"}}, nil)
	e.logbooks.add("lb2", nil, nil)

	req := draft("lb1", "lb2")
	req.Summarizes = &models.Summary{ShiftID: "day", Date: time.Now()}
	_, err := e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeMultiLogbookSummary)

	req = draft("lb1")
	req.Summarizes = &models.Summary{ShiftID: "owl", Date: time.Now()}
	_, err = e.entries.Create(context.Background(), author, req)
	assertCode(t, err, domain.CodeShiftNotFound)

	req = draft("lb1")
	req.Summarizes = &models.Summary{ShiftID: "day", Date: time.Now()}
	if _, err := e.entries.Create(context.Background(), author, req); err != nil {
		t.Fatalf("valid summary rejected: %v", err)
	}
}

func TestCreate_EventAtDefaultsToLoggedAt(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	id, err := e.entries.Create(context.Background(), author, draft("lb"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	entry, err := e.entryRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !entry.EventAt.Equal(entry.LoggedAt) {
		t.Errorf("eventAt %v != loggedAt %v", entry.EventAt, entry.LoggedAt)
	}
}

func TestCreate_ExplicitEventAt(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	eventAt := time.Date(2026, 3, 14, 9, 26, 0, 0, time.Local)
	req := draft("lb")
	req.EventAt = &eventAt
	id, err := e.entries.Create(context.Background(), author, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	entry, _ := e.entryRepo.GetByID(context.Background(), id)
	if !entry.EventAt.Equal(eventAt) {
		t.Errorf("eventAt = %v, want %v", entry.EventAt, eventAt)
	}
}

func TestCreate_FiltersUnknownReferences(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	knownID, err := e.entries.Create(context.Background(), author, draft("lb"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := draft("lb")
	req.References = []string{knownID, "unknown-entry"}
	id, err := e.entries.Create(context.Background(), author, req)
	if err != nil {
		t.Fatalf("create with references failed: %v", err)
	}

	entry, _ := e.entryRepo.GetByID(context.Background(), id)
	if len(entry.References) != 1 || entry.References[0] != knownID {
		t.Errorf("references = %v, want [%s]", entry.References, knownID)
	}
}

func TestCreate_CollectsReferencesFromBodyMarkup(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	targetID, err := e.entries.Create(context.Background(), author, draft("lb"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := draft("lb")
	req.Text = strptr(fmt.Sprintf(`<p>see <elog-reference id="%s">prior</elog-reference></p>`, targetID))
	id, err := e.entries.Create(context.Background(), author, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	entry, _ := e.entryRepo.GetByID(context.Background(), id)
	if len(entry.References) != 1 || entry.References[0] != targetID {
		t.Errorf("references = %v, want [%s]", entry.References, targetID)
	}
}

func TestCreate_SanitizesTitleKeepsBodyVerbatim(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	body := `<p onclick="alert(1)">raw <b>body</b></p>`
	req := draft("lb")
	req.Title = "<b>RF trip</b>"
	req.Text = &body
	id, err := e.entries.Create(context.Background(), author, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	entry, _ := e.entryRepo.GetByID(context.Background(), id)
	if entry.Title != "RF trip" {
		t.Errorf("title = %q, want %q", entry.Title, "RF trip")
	}
	if entry.Text != body {
		t.Errorf("body modified: %q", entry.Text)
	}
}

func TestSupersede_SecondAttemptFails(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	targetID, _ := e.entries.Create(ctx, author, draft("lb"))
	firstID, err := e.entries.Supersede(ctx, author, targetID, draft("lb"))
	if err != nil {
		t.Fatalf("first supersede failed: %v", err)
	}

	_, err = e.entries.Supersede(ctx, author, targetID, draft("lb"))
	assertCode(t, err, domain.CodeSupersedeAlreadyCreated)

	target, _ := e.entryRepo.GetByID(ctx, targetID)
	if target.SupersededBy == nil || *target.SupersededBy != firstID {
		t.Errorf("supersededBy = %v, want %s", target.SupersededBy, firstID)
	}
}

func TestSupersede_MissingTarget(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	_, err := e.entries.Supersede(context.Background(), author, "ghost", draft("lb"))
	assertCode(t, err, domain.CodeEntryNotFound)
}

func TestSupersede_CascadeRewritesReferrers(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	aID, _ := e.entries.Create(ctx, author, draft("lb"))

	refBody := func(id string) *string {
		return strptr(fmt.Sprintf(`<p>see <elog-reference id="%s">A</elog-reference></p>`, id))
	}
	bReq := draft("lb")
	bReq.Text = refBody(aID)
	bID, _ := e.entries.Create(ctx, author, bReq)
	cReq := draft("lb")
	cReq.Text = refBody(aID)
	cID, _ := e.entries.Create(ctx, author, cReq)

	newID, err := e.entries.Supersede(ctx, author, aID, draft("lb"))
	if err != nil {
		t.Fatalf("supersede failed: %v", err)
	}

	for _, id := range []string{bID, cID} {
		entry, _ := e.entryRepo.GetByID(ctx, id)
		if len(entry.References) != 1 || entry.References[0] != newID {
			t.Errorf("entry %s references = %v, want [%s]", id, entry.References, newID)
		}
		wantTag := fmt.Sprintf(`id="%s"`, newID)
		staleTag := fmt.Sprintf(`id="%s"`, aID)
		if !strings.Contains(entry.Text, wantTag) || strings.Contains(entry.Text, staleTag) {
			t.Errorf("entry %s body not rewritten: %s", id, entry.Text)
		}
	}
}

func TestSupersede_TransfersFollowUps(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	rootID, _ := e.entries.Create(ctx, author, draft("lb"))
	childID, err := e.entries.FollowUp(ctx, author, rootID, draft("lb"))
	if err != nil {
		t.Fatalf("follow-up failed: %v", err)
	}

	newID, err := e.entries.Supersede(ctx, author, rootID, draft("lb"))
	if err != nil {
		t.Fatalf("supersede failed: %v", err)
	}

	successor, _ := e.entryRepo.GetByID(ctx, newID)
	if len(successor.FollowUps) != 1 || successor.FollowUps[0] != childID {
		t.Errorf("successor followUps = %v, want [%s]", successor.FollowUps, childID)
	}
}

func TestSupersede_AtomicOnCascadeFailure(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	aID, _ := e.entries.Create(ctx, author, draft("lb"))
	bReq := draft("lb")
	bReq.Text = strptr(fmt.Sprintf(`<elog-reference id="%s">A</elog-reference>`, aID))
	bID, _ := e.entries.Create(ctx, author, bReq)
	cReq := draft("lb")
	cReq.Text = strptr(fmt.Sprintf(`<elog-reference id="%s">A</elog-reference>`, aID))
	cID, _ := e.entries.Create(ctx, author, cReq)

	entriesBefore := len(e.entryRepo.entries)
	e.entryRepo.failUpdateFor[cID] = errors.New("storage unavailable")

	_, err := e.entries.Supersede(ctx, author, aID, draft("lb"))
	if err == nil {
		t.Fatal("expected supersede to fail")
	}

	target, _ := e.entryRepo.GetByID(ctx, aID)
	if target.SupersededBy != nil {
		t.Errorf("supersededBy set despite rollback: %v", *target.SupersededBy)
	}
	for _, id := range []string{bID, cID} {
		entry, _ := e.entryRepo.GetByID(ctx, id)
		if len(entry.References) != 1 || entry.References[0] != aID {
			t.Errorf("entry %s references changed despite rollback: %v", id, entry.References)
		}
	}
	if len(e.entryRepo.entries) != entriesBefore {
		t.Errorf("superseding entry retained despite rollback: %d entries, want %d",
			len(e.entryRepo.entries), entriesBefore)
	}
}

func TestFollowUp_MissingRoot(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)

	_, err := e.entries.FollowUp(context.Background(), author, "ghost", draft("lb"))
	assertCode(t, err, domain.CodeEntryNotFound)
}

func TestGetFull_NotFound(t *testing.T) {
	e := newTestEngine()

	_, err := e.entries.GetFull(context.Background(), "ghost", services.IncludeOptions{})
	assertCode(t, err, domain.CodeEntryNotFound)
}

func TestGetFull_History(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	aID, _ := e.entries.Create(ctx, author, draft("lb"))
	a1ID, _ := e.entries.Supersede(ctx, author, aID, draft("lb"))
	a2ID, err := e.entries.Supersede(ctx, author, a1ID, draft("lb"))
	if err != nil {
		t.Fatalf("second supersede failed: %v", err)
	}

	view, err := e.entries.GetFull(ctx, a2ID, services.IncludeOptions{History: true})
	if err != nil {
		t.Fatalf("get full failed: %v", err)
	}

	if len(view.History) != 2 || view.History[0].ID != a1ID || view.History[1].ID != aID {
		got := make([]string, len(view.History))
		for i, h := range view.History {
			got[i] = h.ID
		}
		t.Errorf("history = %v, want [%s %s]", got, a1ID, aID)
	}
}

func TestGetFull_FollowUpsAndFollowingUp(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	rootID, _ := e.entries.Create(ctx, author, draft("lb"))
	childID, _ := e.entries.FollowUp(ctx, author, rootID, draft("lb"))

	rootView, err := e.entries.GetFull(ctx, rootID, services.IncludeOptions{FollowUps: true})
	if err != nil {
		t.Fatalf("get full failed: %v", err)
	}
	if len(rootView.FollowUpViews) != 1 || rootView.FollowUpViews[0].ID != childID {
		t.Errorf("followUps not resolved: %+v", rootView.FollowUpViews)
	}

	childView, err := e.entries.GetFull(ctx, childID, services.IncludeOptions{FollowingUp: true})
	if err != nil {
		t.Fatalf("get full failed: %v", err)
	}
	if childView.FollowingUp == nil || childView.FollowingUp.ID != rootID {
		t.Errorf("followingUp = %+v, want %s", childView.FollowingUp, rootID)
	}
}

func TestGetFull_ReferencedByExcludesSuperseded(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	targetID, _ := e.entries.Create(ctx, author, draft("lb"))

	refReq := draft("lb")
	refReq.References = []string{targetID}
	liveID, _ := e.entries.Create(ctx, author, refReq)

	retiredReq := draft("lb")
	retiredReq.References = []string{targetID}
	retiredID, _ := e.entries.Create(ctx, author, retiredReq)
	if _, err := e.entries.Supersede(ctx, author, retiredID, draft("lb")); err != nil {
		t.Fatalf("supersede failed: %v", err)
	}

	view, err := e.entries.GetFull(ctx, targetID, services.IncludeOptions{ReferencedBy: true})
	if err != nil {
		t.Fatalf("get full failed: %v", err)
	}

	ids := make(map[string]bool)
	for _, summary := range view.ReferencedBy {
		ids[summary.ID] = true
	}
	if !ids[liveID] {
		t.Errorf("live referrer %s missing from referencedBy %v", liveID, ids)
	}
	if ids[retiredID] {
		t.Errorf("superseded referrer %s present in referencedBy", retiredID)
	}
}

func TestGetFull_ShiftResolution(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", []models.Shift{
		{ID: "owl", Name: "Owl", From: "00:00", To: "08:00"},
		{ID: "day", Name: "Day", From: "08:00", To: "16:00"},
		{ID: "swing", Name: "Swing", From: "16:00", To: "23:59"},
	}, nil)
	ctx := context.Background()

	eventAt := time.Date(2026, 5, 2, 17, 0, 0, 0, time.Local)
	req := draft("lb")
	req.EventAt = &eventAt
	id, _ := e.entries.Create(ctx, author, req)

	view, err := e.entries.GetFull(ctx, id, services.IncludeOptions{})
	if err != nil {
		t.Fatalf("get full failed: %v", err)
	}
	if len(view.Shifts) != 1 || view.Shifts[0].ID != "swing" {
		t.Errorf("shifts = %+v, want [swing]", view.Shifts)
	}
}

func TestSearch_NewestFirstWithLimit(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		req := draft("lb")
		req.Title = fmt.Sprintf("entry %d", i)
		id, _ := e.entries.Create(ctx, author, req)
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}

	summaries, err := e.entries.Search(ctx, &services.SearchEntriesRequest{
		Logbooks: []string{"lb"},
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != ids[2] || summaries[1].ID != ids[1] {
		t.Errorf("wrong order: got [%s %s], want [%s %s]",
			summaries[0].ID, summaries[1].ID, ids[2], ids[1])
	}
}

func TestEndToEnd_FollowUpTransferAndLookup(t *testing.T) {
	e := newTestEngine()
	e.logbooks.add("lb", nil, nil)
	ctx := context.Background()

	e1Req := draft("lb")
	e1Req.Title = "t1"
	e1, _ := e.entries.Create(ctx, author, e1Req)
	e2, _ := e.entries.FollowUp(ctx, author, e1, draft("lb"))

	view, _ := e.entries.GetFull(ctx, e1, services.IncludeOptions{FollowUps: true})
	if len(view.FollowUpViews) != 1 || view.FollowUpViews[0].ID != e2 {
		t.Fatalf("follow-ups of e1 = %+v, want [%s]", view.FollowUpViews, e2)
	}

	e3, err := e.entries.Supersede(ctx, author, e1, draft("lb"))
	if err != nil {
		t.Fatalf("supersede failed: %v", err)
	}

	successor, _ := e.entryRepo.GetByID(ctx, e3)
	if len(successor.FollowUps) != 1 || successor.FollowUps[0] != e2 {
		t.Errorf("e3 followUps = %v, want [%s]", successor.FollowUps, e2)
	}

	retired, _ := e.entries.GetFull(ctx, e1, services.IncludeOptions{})
	if retired.SupersededBy == nil || *retired.SupersededBy != e3 {
		t.Errorf("e1 supersededBy = %v, want %s", retired.SupersededBy, e3)
	}
}
