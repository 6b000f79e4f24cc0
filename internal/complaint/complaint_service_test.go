package complaint

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/errs"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails selected calls and defers the rest to the memory store.
type failingStore struct {
	*storage.MemoryStore
	saveErrs  []error
	updateErr error
	listErr   error
}

func (f *failingStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			c.AssignID()
			return err
		}
	}
	return f.MemoryStore.SaveComplaint(ctx, c)
}

func (f *failingStore) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.MemoryStore.UpdateComplaint(ctx, c)
}

func (f *failingStore) ListComplaints(ctx context.Context, filter storage.ComplaintFilter) ([]models.Complaint, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.ListComplaints(ctx, filter)
}

var testIssuer = auth.NewIssuer("test-secret", time.Hour, time.Hour, time.Hour)

func newTestService(t *testing.T, s storage.Storage) (*Service, *recordingPublisher) {
	t.Helper()
	if s == nil {
		s = storage.NewMemoryStore()
	}
	pub := &recordingPublisher{}
	return NewService(s, storage.NewLocalLocker(), testIssuer, pub), pub
}

func createComplaint(t *testing.T, svc *Service, email string) *models.Complaint {
	t.Helper()
	c, _, err := svc.Create(context.Background(), CreateInput{
		Name:        "Ann",
		Email:       email,
		Category:    "delay",
		Description: "slow payout",
	})
	require.NoError(t, err)
	return c
}

func TestNewReferenceID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^NITF-[0-9A-Z]+-[0-9A-Z]{6}$`)
	seen := make(map[string]bool)
	now := time.Now()

	for i := 0; i < 200; i++ {
		ref, err := NewReferenceID(now)
		require.NoError(t, err)
		assert.Regexp(t, pattern, ref)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestService_CreateAndStatusScenario(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, nil)

	c, token, err := svc.Create(ctx, CreateInput{Category: "delay", Description: "slow payout"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.NotEmpty(t, c.ReferenceID)
	assert.NotEmpty(t, token)
	require.Len(t, c.Logs, 1)
	assert.Equal(t, "created", c.Logs[0].Action)

	claims, err := testIssuer.Parse(token, auth.KindOwner)
	require.NoError(t, err)
	assert.Equal(t, c.ID, claims.RecordID)
	assert.Equal(t, auth.RecordComplaint, claims.RecordType)

	updated, err := svc.UpdateStatus(ctx, auth.Capability{}, c.ID, models.StatusResolved, "processed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "processed", got.ResponseNotes)
	require.Len(t, got.Logs, 2)
	assert.Equal(t, "status:resolved", got.Logs[1].Action)
	assert.Equal(t, "staff", got.Logs[1].Actor)

	byRef, err := svc.GetByReference(ctx, c.ReferenceID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byRef.ID)

	assert.Equal(t, []models.EventType{models.EventComplaintCreated, models.EventComplaintUpdated}, pub.types())
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)

	tests := []struct {
		name    string
		in      CreateInput
		wantErr bool
		wantCat models.Category
	}{
		{"missing description", CreateInput{Category: "delay", Description: "  "}, true, ""},
		{"invalid category", CreateInput{Category: "weather", Description: "x"}, true, ""},
		{"invalid email", CreateInput{Email: "not-an-email", Description: "x"}, true, ""},
		{"empty category defaults to other", CreateInput{Description: "x"}, false, models.CategoryOther},
		{"category is normalized", CreateInput{Category: " Technical_Issue ", Description: "x"}, false, models.CategoryTechnicalIssue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, err := svc.Create(context.Background(), tt.in)
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCat, c.Category)
		})
	}
}

func TestService_CreateRetriesReferenceCollision(t *testing.T) {
	store := &failingStore{
		MemoryStore: storage.NewMemoryStore(),
		saveErrs:    []error{storage.ErrDuplicate},
	}
	svc, _ := newTestService(t, store)

	c, _, err := svc.Create(context.Background(), CreateInput{Description: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ReferenceID)
}

func TestService_CreateGivesUpAfterRetries(t *testing.T) {
	store := &failingStore{
		MemoryStore: storage.NewMemoryStore(),
		saveErrs:    []error{storage.ErrDuplicate, storage.ErrDuplicate, storage.ErrDuplicate},
	}
	svc, _ := newTestService(t, store)

	_, _, err := svc.Create(context.Background(), CreateInput{Description: "x"})
	assert.True(t, errs.Is(err, errs.KindUnexpected))
}

func TestService_UpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	c := createComplaint(t, svc, "a@x.com")

	_, err := svc.UpdateStatus(ctx, auth.Capability{}, c.ID, "closed", "")
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.UpdateStatus(ctx, auth.Capability{}, "missing", models.StatusResolved, "")
	assert.True(t, errs.Is(err, errs.KindNotFound))

	svc.StaffAuthRequired = true
	_, err = svc.UpdateStatus(ctx, auth.Capability{}, c.ID, models.StatusResolved, "")
	assert.True(t, errs.Is(err, errs.KindUnauthenticated))

	staff := auth.Capability{Staff: &auth.Claims{Kind: auth.KindStaff, Email: "m@org.com"}}
	updated, err := svc.UpdateStatus(ctx, staff, c.ID, models.StatusEscalated, "")
	require.NoError(t, err)
	assert.Equal(t, "m@org.com", updated.Logs[len(updated.Logs)-1].Actor)
}

func TestService_UpdateStatusConflict(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	svc, _ := newTestService(t, store)
	c := createComplaint(t, svc, "")

	store.updateErr = storage.ErrConflict
	_, err := svc.UpdateStatus(context.Background(), auth.Capability{}, c.ID, models.StatusResolved, "")
	assert.True(t, errs.Is(err, errs.KindConflict))

	store.updateErr = errors.New("connection reset")
	_, err = svc.UpdateStatus(context.Background(), auth.Capability{}, c.ID, models.StatusResolved, "")
	assert.True(t, errs.Is(err, errs.KindUnexpected))
	assert.Equal(t, "Internal server error", errs.MessageOf(err))
}

func TestService_Respond(t *testing.T) {
	svc, _ := newTestService(t, nil)
	c := createComplaint(t, svc, "")

	got, err := svc.Respond(context.Background(), auth.Capability{}, c.ID, "we are on it")
	require.NoError(t, err)
	assert.Equal(t, "we are on it", got.ResponseNotes)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestService_OwnerAuthorization(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	c := createComplaint(t, svc, "a@x.com")

	ownerToken, err := testIssuer.IssueOwner(auth.RecordComplaint, c.ID, "a@x.com")
	require.NoError(t, err)
	ownerClaims, err := testIssuer.Parse(ownerToken, auth.KindOwner)
	require.NoError(t, err)

	otherClaims := &auth.Claims{Kind: auth.KindOwner, RecordType: auth.RecordComplaint, RecordID: "other"}

	tests := []struct {
		name    string
		caller  auth.Capability
		email   string
		allowed bool
	}{
		{"matching email", auth.Capability{}, "a@x.com", true},
		{"mismatched email", auth.Capability{}, "b@y.com", false},
		{"no email", auth.Capability{}, "", false},
		{"email is case sensitive", auth.Capability{}, "A@x.com", false},
		{"owner token for this complaint", auth.Capability{Owner: ownerClaims}, "", true},
		{"owner token for another complaint", auth.Capability{Owner: otherClaims}, "", false},
		{"staff", auth.Capability{Staff: &auth.Claims{Kind: auth.KindStaff}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateByOwner(ctx, tt.caller, c.ID, tt.email, OwnerUpdate{Description: "updated"})
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, errs.Is(err, errs.KindForbidden), "got %v", err)
			}
		})
	}
}

func TestService_UpdateByOwnerFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	c := createComplaint(t, svc, "a@x.com")

	got, err := svc.UpdateByOwner(ctx, auth.Capability{}, c.ID, "a@x.com", OwnerUpdate{Category: "officer_behavior"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOfficerBehavior, got.Category)
	assert.Equal(t, "slow payout", got.Description)

	_, err = svc.UpdateByOwner(ctx, auth.Capability{}, c.ID, "a@x.com", OwnerUpdate{Category: "bogus"})
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = svc.UpdateByOwner(ctx, auth.Capability{}, c.ID, "a@x.com", OwnerUpdate{Description: "   "})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestService_DeleteByOwner(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t, nil)
	c := createComplaint(t, svc, "a@x.com")

	err := svc.DeleteByOwner(ctx, auth.Capability{}, c.ID, "b@y.com")
	assert.True(t, errs.Is(err, errs.KindForbidden))

	require.NoError(t, svc.DeleteByOwner(ctx, auth.Capability{}, c.ID, "a@x.com"))

	_, err = svc.Get(ctx, c.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound))

	err = svc.DeleteByOwner(ctx, auth.Capability{}, c.ID, "a@x.com")
	assert.True(t, errs.Is(err, errs.KindNotFound))

	assert.Contains(t, pub.types(), models.EventComplaintDeleted)
}

func TestService_DeleteByStaff(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	c := createComplaint(t, svc, "a@x.com")

	svc.StaffAuthRequired = true
	err := svc.DeleteByStaff(ctx, auth.Capability{}, c.ID)
	assert.True(t, errs.Is(err, errs.KindUnauthenticated))

	staff := auth.Capability{Staff: &auth.Claims{Kind: auth.KindStaff}}
	require.NoError(t, svc.DeleteByStaff(ctx, staff, c.ID))
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	createComplaint(t, svc, "a@x.com")
	second := createComplaint(t, svc, "b@y.com")
	createComplaint(t, svc, "a@x.com")

	_, err := svc.UpdateStatus(ctx, auth.Capability{}, second.ID, models.StatusResolved, "")
	require.NoError(t, err)

	all, err := svc.List(ctx, storage.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.List(ctx, storage.ComplaintFilter{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	resolved, err := svc.List(ctx, storage.ComplaintFilter{Status: models.StatusResolved})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, second.ID, resolved[0].ID)

	_, err = svc.List(ctx, storage.ComplaintFilter{Status: "closed"})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestService_ListStoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), listErr: errors.New("boom")}
	svc, _ := newTestService(t, store)

	_, err := svc.List(context.Background(), storage.ComplaintFilter{})
	assert.True(t, errs.Is(err, errs.KindUnexpected))
}

func TestService_ConcurrentStatusUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)
	c := createComplaint(t, svc, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStatus(ctx, auth.Capability{}, c.ID, models.StatusInProgress, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Logs, 11)
	assert.Equal(t, int64(10), got.Version)
}
