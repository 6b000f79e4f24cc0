package storage

import (
	"complaintdesk/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises behaviour every driver must share.
func runStoreContract(t *testing.T, s Storage) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	t.Run("complaint round trip", func(t *testing.T) {
		c := &models.Complaint{
			ReferenceID: "NITF-TEST-" + suffix,
			Customer:    models.Customer{Name: "A", Email: "owner-" + suffix + "@x.com"},
			Category:    models.CategoryDelay,
			Description: "slow payout",
			Status:      models.StatusPending,
		}
		c.AppendLog("citizen", "created", "", time.Now().UTC())
		require.NoError(t, s.SaveComplaint(ctx, c))
		require.NotEmpty(t, c.ID)

		byID, err := s.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "slow payout", byID.Description)
		assert.Equal(t, c.Customer.Email, byID.Customer.Email)
		assert.Len(t, byID.Logs, 1)

		byRef, err := s.GetComplaintByReference(ctx, c.ReferenceID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, byRef.ID)

		list, err := s.ListComplaints(ctx, ComplaintFilter{Email: c.Customer.Email})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, c.ID, list[0].ID)

		none, err := s.ListComplaints(ctx, ComplaintFilter{Email: "nobody-" + suffix + "@x.com"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("duplicate reference rejected", func(t *testing.T) {
		ref := "NITF-DUP-" + suffix
		require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ReferenceID: ref, Description: "one", Status: models.StatusPending}))

		err := s.SaveComplaint(ctx, &models.Complaint{ReferenceID: ref, Description: "two", Status: models.StatusPending})
		assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
	})

	t.Run("version checked update", func(t *testing.T) {
		c := &models.Complaint{ReferenceID: "NITF-VER-" + suffix, Description: "v", Status: models.StatusPending}
		require.NoError(t, s.SaveComplaint(ctx, c))

		first, err := s.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)
		second, err := s.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)

		first.Status = models.StatusResolved
		require.NoError(t, s.UpdateComplaint(ctx, first))
		assert.Equal(t, int64(1), first.Version)

		second.Status = models.StatusEscalated
		err = s.UpdateComplaint(ctx, second)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, int64(0), second.Version, "version restored on failure")

		stored, err := s.GetComplaintByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, stored.Status)
	})

	t.Run("missing records", func(t *testing.T) {
		_, err := s.GetComplaintByID(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetComplaintByReference(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteComplaint(ctx, "missing-"+suffix), ErrNotFound)
		assert.ErrorIs(t, s.UpdateComplaint(ctx, &models.Complaint{ID: "missing-" + suffix}), ErrNotFound)
		_, err = s.GetFeedbackByID(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteFeedback(ctx, "missing-"+suffix), ErrNotFound)
		_, err = s.GetManagerByEmail(ctx, "missing-"+suffix+"@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("feedback replies keep order", func(t *testing.T) {
		rating := 5
		f := &models.Feedback{Username: "A", Email: "a@x.com", Message: "ok", Rating: &rating}
		require.NoError(t, s.SaveFeedback(ctx, f))

		now := time.Now().UTC()
		f.Replies = append(f.Replies,
			models.NewReply(models.SenderAdmin, "thanks", "", now),
			models.NewReply(models.SenderUser, "you're welcome", "a@x.com", now),
		)
		require.NoError(t, s.UpdateFeedback(ctx, f))

		got, err := s.GetFeedbackByID(ctx, f.ID)
		require.NoError(t, err)
		require.Len(t, got.Replies, 2)
		assert.Equal(t, models.SenderAdmin, got.Replies[0].Sender)
		assert.Equal(t, "a@x.com", got.Replies[1].Email)
		require.NotNil(t, got.Rating)
		assert.Equal(t, 5, *got.Rating)

		require.NoError(t, s.DeleteFeedback(ctx, f.ID))
		_, err = s.GetFeedbackByID(ctx, f.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("managers unique by email", func(t *testing.T) {
		email := "staff-" + suffix + "@x.com"
		require.NoError(t, s.SaveManager(ctx, &models.Manager{Name: "S", Email: email, PasswordHash: "h", Role: models.RoleAdmin}))

		err := s.SaveManager(ctx, &models.Manager{Name: "S2", Email: email, PasswordHash: "h"})
		assert.ErrorIs(t, err, ErrDuplicate)

		m, err := s.GetManagerByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, m.Role)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_ListFeedbackNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveFeedback(ctx, &models.Feedback{
			Message:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Same timestamp as the newest: insertion order breaks the tie.
	require.NoError(t, s.SaveFeedback(ctx, &models.Feedback{Message: "m3", CreatedAt: base.Add(2 * time.Minute)}))

	list, err := s.ListFeedback(ctx)
	require.NoError(t, err)

	var messages []string
	for _, f := range list {
		messages = append(messages, f.Message)
	}
	assert.Equal(t, []string{"m3", "m2", "m1", "m0"}, messages)
}

func TestMemoryStore_CopiesRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f := &models.Feedback{Message: "ok"}
	require.NoError(t, s.SaveFeedback(ctx, f))

	got, err := s.GetFeedbackByID(ctx, f.ID)
	require.NoError(t, err)
	got.Replies = append(got.Replies, models.Reply{ID: "r1"})
	got.Message = "changed"

	again, err := s.GetFeedbackByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", again.Message)
	assert.Empty(t, again.Replies)
}

func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	s, err := ConnectMongo(ctx, uri, "complaintdesk_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.complaints.Database().Drop(ctx)
		_ = s.Close(ctx)
	})
	require.NoError(t, s.EnsureIndexes(ctx))

	runStoreContract(t, s)
}

func TestGormStore_Contract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	runStoreContract(t, s)
}
