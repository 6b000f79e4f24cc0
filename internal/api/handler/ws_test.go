package handler

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/feedback"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStreamServer runs the full router on a real listener with a running hub
// wired as the services' publisher.
func newStreamServer(t *testing.T, staffAuth bool, origins []string) (*testServer, *httptest.Server) {
	t.Helper()

	store := storage.NewMemoryStore()
	locker := storage.NewLocalLocker()
	tokens := auth.NewIssuer("handler-test-secret", time.Hour, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	hub := eventhub.NewHub(nil)
	go hub.Run(ctx)

	complaints := complaint.NewService(store, locker, tokens, hub)
	complaints.StaffAuthRequired = staffAuth
	fb := feedback.NewService(store, locker, tokens, hub)
	fb.StaffAuthRequired = staffAuth

	h := NewHandler(complaints, fb, analysis.NewService(store), auth.NewService(store, tokens), tokens, hub, store)
	h.StaffAuthRequired = staffAuth

	s := &testServer{router: NewRouter(h, origins), h: h}
	srv := httptest.NewServer(s.router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return s, srv
}

func dialEvents(srv *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	if query != "" {
		u += "?" + query
	}
	return websocket.DefaultDialer.Dial(u, header)
}

// awaitCreated keeps filing complaints until the connection reads a frame, since
// the hub registers the client asynchronously after the handshake.
func awaitCreated(t *testing.T, s *testServer, conn *websocket.Conn) (models.Event, map[string]bool) {
	t.Helper()

	frames := make(chan []byte, 1)
	readErr := make(chan error, 1)
	go func() {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		frames <- msg
	}()

	refs := map[string]bool{}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		c, _, err := s.h.Complaints.Create(context.Background(), complaint.CreateInput{Description: "Lift out of order"})
		require.NoError(t, err)
		refs[c.ReferenceID] = true

		select {
		case msg := <-frames:
			var e models.Event
			require.NoError(t, json.Unmarshal(msg, &e), string(msg))
			return e, refs
		case err := <-readErr:
			t.Fatalf("no event received: %v", err)
			return models.Event{}, nil
		case <-ticker.C:
		}
	}
}

func TestEventStream_DeliversCreatedComplaint(t *testing.T) {
	s, srv := newStreamServer(t, false, []string{"*"})

	conn, resp, err := dialEvents(srv, "", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	e, refs := awaitCreated(t, s, conn)
	assert.Equal(t, models.EventComplaintCreated, e.Type)
	assert.NotEmpty(t, e.RecordID)
	assert.True(t, refs[e.ReferenceID], "unexpected reference %q", e.ReferenceID)
}

func TestEventStream_StaffToken(t *testing.T) {
	s, srv := newStreamServer(t, true, []string{"*"})

	_, resp, err := dialEvents(srv, "", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialEvents(srv, "token=garbage", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := s.staffToken(t)

	conn, _, err := dialEvents(srv, "token="+url.QueryEscape(token), nil)
	require.NoError(t, err)
	defer conn.Close()

	e, _ := awaitCreated(t, s, conn)
	assert.Equal(t, models.EventComplaintCreated, e.Type)

	bearer := http.Header{"Authorization": []string{"Bearer " + token}}
	viaHeader, _, err := dialEvents(srv, "", bearer)
	require.NoError(t, err)
	viaHeader.Close()
}

func TestEventStream_Origins(t *testing.T) {
	_, srv := newStreamServer(t, false, []string{"https://admin.example.org"})

	tests := []struct {
		name   string
		origin string
		wantOK bool
	}{
		{name: "no origin header", origin: "", wantOK: true},
		{name: "allow-listed origin", origin: "https://admin.example.org", wantOK: true},
		{name: "same host", origin: srv.URL, wantOK: true},
		{name: "foreign origin", origin: "https://evil.example.com", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := dialEvents(srv, "", header)
			if tt.wantOK {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestCheckOrigin_Wildcard(t *testing.T) {
	h := &Handler{AllowedOrigins: []string{"*"}}
	req := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
	req.Header.Set("Origin", "https://anywhere.example.net")
	assert.True(t, h.checkOrigin(req))

	h.AllowedOrigins = nil
	assert.False(t, h.checkOrigin(req))
}
