package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/yukikurage/timesheet-api/internal/dto"
	"github.com/yukikurage/timesheet-api/internal/models"
)

// streamRecorder is a ResponseWriter that can be read while a handler is
// still streaming into it.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
	code   int
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header), closed: make(chan bool, 1)}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.code == 0 {
		r.code = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.code == 0 {
		r.code = code
	}
}

func (r *streamRecorder) Flush() {}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func (suite *HandlerTestSuite) TestEvents_Stream() {
	token, _, err := suite.tokens.Issue(suite.employee)
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		suite.router.ServeHTTP(rec, req)
	}()

	suite.Require().Eventually(func() bool { return suite.hub.ConnectedUsers() == 1 }, time.Second, 5*time.Millisecond)
	suite.True(suite.presence.IsOnline(suite.employee.ID))

	suite.Require().NoError(suite.hub.Publish(suite.employee.ID, "notification", map[string]string{"msg": "bonjour"}))
	suite.Eventually(func() bool {
		body := rec.String()
		return strings.Contains(body, "event:notification") && strings.Contains(body, `"msg":"bonjour"`)
	}, time.Second, 5*time.Millisecond)
	suite.Eventually(func() bool { return strings.Contains(rec.String(), "event:ping") }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.FailNow("event stream did not stop after the client went away")
	}

	body := rec.String()
	suite.Contains(body, "event:connected")
	suite.Contains(body, "event:presence")
	suite.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream"), rec.Header().Get("Content-Type"))
	suite.Equal(0, suite.hub.ConnectedUsers())
}

func (suite *HandlerTestSuite) TestEvents_Unauthenticated() {
	w := suite.request(http.MethodGet, "/api/events", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(0, suite.hub.ConnectedUsers())
}

func (suite *HandlerTestSuite) TestPresence() {
	var online dto.PresenceResponse
	w := suite.request(http.MethodGet, "/api/presence", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &online)
	suite.Empty(online.OnlineUserIDs)

	w = suite.request(http.MethodPost, "/api/presence/heartbeat", nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var beat struct {
		LastSeen          time.Time `json:"last_seen"`
		HeartbeatInterval int64     `json:"heartbeat_interval"`
	}
	suite.decode(w, &beat)
	suite.False(beat.LastSeen.IsZero())
	suite.EqualValues(50, beat.HeartbeatInterval)

	suite.request(http.MethodPost, "/api/presence/heartbeat", nil, suite.other)

	w = suite.request(http.MethodGet, "/api/presence", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &online)
	suite.Equal([]uint64{suite.employee.ID, suite.other.ID}, online.OnlineUserIDs)
}

func (suite *HandlerTestSuite) TestNotifications() {
	ts := suite.createHRTimesheet(suite.employee)
	w := suite.request(http.MethodPost, hrPath(ts.ID, "/submit"), nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var inbox dto.NotificationListResponse
	w = suite.request(http.MethodGet, "/api/notifications", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &inbox)
	suite.Require().Len(inbox.Notifications, 1)
	note := inbox.Notifications[0]
	suite.Equal(models.NotificationHRSubmitted, note.Type)
	suite.False(note.IsRead)
	suite.Contains(note.Link, itoa(ts.ID))

	// The submitter is not notified of their own submission
	w = suite.request(http.MethodGet, "/api/notifications", nil, suite.employee)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &inbox)
	suite.Empty(inbox.Notifications)

	// Another user cannot mark it
	w = suite.request(http.MethodPost, "/api/notifications/"+itoa(note.ID)+"/read", nil, suite.hrUser)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPost, "/api/notifications/"+itoa(note.ID)+"/read", nil, suite.manager)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, "/api/notifications?unread=true", nil, suite.manager)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &inbox)
	suite.Empty(inbox.Notifications)

	// HR still has its own unread copy
	w = suite.request(http.MethodGet, "/api/notifications?unread=true", nil, suite.hrUser)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &inbox)
	suite.Len(inbox.Notifications, 1)

	w = suite.request(http.MethodPost, "/api/notifications/read-all", nil, suite.hrUser)
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, "/api/notifications?unread=true", nil, suite.hrUser)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &inbox)
	suite.Empty(inbox.Notifications)
}
