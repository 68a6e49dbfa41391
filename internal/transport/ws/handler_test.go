package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"classpulse/internal/live"
	"classpulse/internal/model"
	"classpulse/internal/service"
)

type fakeCourseRepo struct{}

func (fakeCourseRepo) Create(ctx context.Context, course *model.Course) error { return nil }

func (fakeCourseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	return &model.Course{ID: id, InstructorID: "i_john", Title: "CSC 100"}, nil
}

func (fakeCourseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]*model.Course, error) {
	return nil, nil
}

type fakeTagRepo struct {
	tags []model.Tag
}

func (r *fakeTagRepo) Create(ctx context.Context, tag *model.Tag) error { return nil }

func (r *fakeTagRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Tag, error) {
	return r.tags, nil
}

type fakeEngagementRepo struct{}

func (fakeEngagementRepo) Create(ctx context.Context, session *model.EngagementSession) error {
	return nil
}

func (fakeEngagementRepo) ListByCourse(ctx context.Context, courseID string) ([]*model.EngagementSession, error) {
	return nil, nil
}

type fakeSessionCache struct{}

func (fakeSessionCache) SetMeta(ctx context.Context, meta *model.LiveSession) error { return nil }
func (fakeSessionCache) GetMeta(ctx context.Context, code string) (*model.LiveSession, error) {
	return nil, nil
}
func (fakeSessionCache) Delete(ctx context.Context, code string) error { return nil }

type fakeTagCache struct{}

func (fakeTagCache) Set(ctx context.Context, courseID string, tags []model.Tag) error { return nil }
func (fakeTagCache) Get(ctx context.Context, courseID string) ([]model.Tag, error) {
	return nil, nil
}
func (fakeTagCache) Invalidate(ctx context.Context, courseID string) error { return nil }

type fixedTagger struct {
	id int64
}

func (t fixedTagger) Predict(body string, candidates []model.Tag) (int64, error) {
	return t.id, nil
}

// newWSServer wires a real hub and handler behind an httptest server so
// tests exercise the full upgrade, read and write paths.
func newWSServer(t *testing.T, tags []model.Tag) (*httptest.Server, *service.SessionService) {
	t.Helper()

	hub := NewHub()
	svc := service.NewSessionService(
		live.NewRegistry(),
		fakeCourseRepo{},
		&fakeTagRepo{tags: tags},
		fakeEngagementRepo{},
		fakeSessionCache{},
		fakeTagCache{},
		fixedTagger{id: 7},
	)
	svc.SetBroadcaster(hub)

	handler := NewHandler(hub, svc)
	srv := httptest.NewServer(http.HandlerFunc(handler.Serve))
	t.Cleanup(srv.Close)
	return srv, svc
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(&Message{Type: event, Payload: data}))
}

func readEvent(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readMembers(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	msg := readEvent(t, conn)
	require.Equal(t, service.EventMemberList, msg.Type)
	var members []string
	require.NoError(t, json.Unmarshal(msg.Payload, &members))
	return members
}

func readErrorEvent(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	msg := readEvent(t, conn)
	require.Equal(t, "error", msg.Type)
	var p map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p["error"]
}

func joinRoom(t *testing.T, conn *websocket.Conn, name, room string) {
	t.Helper()
	sendEvent(t, conn, eventJoin, joinPayload{Name: name, Room: room})
}

func TestServeJoinAndQuestionFlow(t *testing.T) {
	tags := []model.Tag{{ID: 7, CourseID: "c_csc100", Name: "polymorphism"}}
	srv, svc := newWSServer(t, tags)

	meta, err := svc.CreateSession(context.Background(), "c_csc100", "office hours")
	require.NoError(t, err)

	alice := dialWS(t, srv)
	joinRoom(t, alice, "alice", meta.Code)
	require.Equal(t, []string{"alice"}, readMembers(t, alice))

	bob := dialWS(t, srv)
	joinRoom(t, bob, "bob", meta.Code)
	// The join-triggered snapshot reaches the joiner and everyone
	// already in the room.
	require.Equal(t, []string{"alice", "bob"}, readMembers(t, bob))
	require.Equal(t, []string{"alice", "bob"}, readMembers(t, alice))

	sendEvent(t, bob, eventCreateQuestion, createQuestionPayload{
		Title:       "Why?",
		Body:        "What is polymorphism?",
		SessionCode: meta.Code,
	})

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readEvent(t, conn)
		require.Equal(t, service.EventUpdatedQuestions, msg.Type)
		var questions []model.Question
		require.NoError(t, json.Unmarshal(msg.Payload, &questions))
		require.Len(t, questions, 1)
		require.Equal(t, "Why?", questions[0].Title)
		require.Equal(t, "What is polymorphism?", questions[0].Body)
		require.NotNil(t, questions[0].TagID)
		require.EqualValues(t, 7, *questions[0].TagID)
	}
}

func TestServeDisconnectLeavesRoom(t *testing.T) {
	srv, svc := newWSServer(t, nil)

	meta, err := svc.CreateSession(context.Background(), "c_csc100", "office hours")
	require.NoError(t, err)

	alice := dialWS(t, srv)
	joinRoom(t, alice, "alice", meta.Code)
	require.Equal(t, []string{"alice"}, readMembers(t, alice))

	bob := dialWS(t, srv)
	joinRoom(t, bob, "bob", meta.Code)
	require.Equal(t, []string{"alice", "bob"}, readMembers(t, bob))
	require.Equal(t, []string{"alice", "bob"}, readMembers(t, alice))

	// Closing the socket drives the leave path: bob is dropped from the
	// member list and the survivors hear about it.
	require.NoError(t, bob.Close())
	require.Equal(t, []string{"alice"}, readMembers(t, alice))

	// A later join sees the post-leave list, so the membership itself
	// changed, not just the broadcast.
	carol := dialWS(t, srv)
	joinRoom(t, carol, "carol", meta.Code)
	require.Equal(t, []string{"alice", "carol"}, readMembers(t, carol))
}

func TestServeJoinFailureIsScopedToOffender(t *testing.T) {
	srv, svc := newWSServer(t, nil)

	meta, err := svc.CreateSession(context.Background(), "c_csc100", "office hours")
	require.NoError(t, err)

	alice := dialWS(t, srv)
	joinRoom(t, alice, "alice", meta.Code)
	require.Equal(t, []string{"alice"}, readMembers(t, alice))

	mallory := dialWS(t, srv)
	joinRoom(t, mallory, "mallory", "NOPE00")
	require.Contains(t, readErrorEvent(t, mallory), "unknown session")

	// The failed join left no residue: mallory can still join a real
	// room, and alice's next message is that join, not the error.
	joinRoom(t, mallory, "mallory", meta.Code)
	require.Equal(t, []string{"alice", "mallory"}, readMembers(t, mallory))
	require.Equal(t, []string{"alice", "mallory"}, readMembers(t, alice))
}

func TestServeRejectsBadEvents(t *testing.T) {
	srv, svc := newWSServer(t, nil)

	meta, err := svc.CreateSession(context.Background(), "c_csc100", "office hours")
	require.NoError(t, err)

	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	require.Contains(t, readErrorEvent(t, conn), "malformed")

	sendEvent(t, conn, "shout", map[string]string{})
	require.Contains(t, readErrorEvent(t, conn), "unknown event")

	sendEvent(t, conn, eventJoin, joinPayload{Name: "", Room: meta.Code})
	require.Contains(t, readErrorEvent(t, conn), "name and room")

	joinRoom(t, conn, "alice", meta.Code)
	require.Equal(t, []string{"alice"}, readMembers(t, conn))

	joinRoom(t, conn, "alice", meta.Code)
	require.Contains(t, readErrorEvent(t, conn), "already joined")
}
