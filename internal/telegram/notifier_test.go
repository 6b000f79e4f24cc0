package telegram

import (
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSender is a mock implementation of the Sender interface
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func newTestNotifier(t *testing.T, sender Sender, lang string) *Notifier {
	t.Helper()
	loc, err := localization.NewLocalizer()
	require.NoError(t, err)
	return NewNotifier(sender, 42, lang, loc)
}

func textOf(c tgbotapi.Chattable) string {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return ""
	}
	return msg.Text
}

func TestNotifier_SendsSelectedEvents(t *testing.T) {
	// Arrange
	sender := new(MockSender)
	n := newTestNotifier(t, sender, "en")

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		return textOf(c) == "📝 New complaint NITF-1\nCategory: delay"
	})).Return(tgbotapi.Message{}, nil).Once()
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		return textOf(c) == "🔄 Complaint NITF-1 is now resolved"
	})).Return(tgbotapi.Message{}, nil).Once()

	// Act
	n.Run()
	n.Send <- models.Event{Type: models.EventComplaintCreated, RecordID: "c1", ReferenceID: "NITF-1", Category: "delay"}
	n.Send <- models.Event{Type: models.EventFeedbackUpdated, RecordID: "f1"} // not forwarded
	n.Send <- models.Event{Type: models.EventComplaintUpdated, RecordID: "c1", ReferenceID: "NITF-1", Status: models.StatusResolved}
	n.Close()

	select {
	case <-n.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop")
	}

	// Assert
	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestNotifier_SendErrorDoesNotStopPump(t *testing.T) {
	sender := new(MockSender)
	n := newTestNotifier(t, sender, "en")

	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("429 Too Many Requests")).Once()
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil).Once()

	n.Run()
	n.Send <- models.Event{Type: models.EventComplaintDeleted, RecordID: "c1", ReferenceID: "NITF-1"}
	n.Send <- models.Event{Type: models.EventReplyAdded, RecordID: "f1"}
	n.Close()
	<-n.Done()

	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestNotifier_Format(t *testing.T) {
	n := newTestNotifier(t, nil, "uk")
	rating := 5

	tests := []struct {
		name   string
		event  models.Event
		want   string
		wantOK bool
	}{
		{
			name:   "status update localized",
			event:  models.Event{Type: models.EventComplaintUpdated, ReferenceID: "NITF-2", Status: models.StatusEscalated},
			want:   "🔄 Скарга NITF-2 тепер має статус «ескальовано»",
			wantOK: true,
		},
		{
			name:   "rated feedback",
			event:  models.Event{Type: models.EventFeedbackCreated, RecordID: "f1", Rating: &rating},
			want:   "💬 Новий відгук з оцінкою 5/5",
			wantOK: true,
		},
		{
			name:   "update without status is skipped",
			event:  models.Event{Type: models.EventComplaintUpdated, ReferenceID: "NITF-2"},
			wantOK: false,
		},
		{
			name:   "reply edits are skipped",
			event:  models.Event{Type: models.EventReplyUpdated},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.Format(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNotifier_ID(t *testing.T) {
	n := newTestNotifier(t, nil, "en")
	assert.Equal(t, "telegram:42", n.GetID())

	n.Close()
	n.Close() // idempotent
}
