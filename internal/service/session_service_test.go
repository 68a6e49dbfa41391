package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"classpulse/internal/live"
	"classpulse/internal/model"
)

type broadcastEvent struct {
	room    string
	msgType string
	payload interface{}
}

type stubBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
	sizes  map[string]int
}

func (b *stubBroadcaster) Broadcast(roomCode string, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{room: roomCode, msgType: msgType, payload: payload})
}

func (b *stubBroadcaster) RoomSize(roomCode string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizes[roomCode]
}

func (b *stubBroadcaster) all() []broadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastEvent, len(b.events))
	copy(out, b.events)
	return out
}

type stubCourseRepo struct {
	courses map[string]*model.Course
}

func (r *stubCourseRepo) Create(ctx context.Context, course *model.Course) error {
	r.courses[course.ID] = course
	return nil
}

func (r *stubCourseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	return r.courses[id], nil
}

func (r *stubCourseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]*model.Course, error) {
	var out []*model.Course
	for _, c := range r.courses {
		out = append(out, c)
	}
	return out, nil
}

type stubTagRepo struct {
	tags []model.Tag
}

func (r *stubTagRepo) Create(ctx context.Context, tag *model.Tag) error {
	tag.ID = int64(len(r.tags) + 1)
	r.tags = append(r.tags, *tag)
	return nil
}

func (r *stubTagRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Tag, error) {
	var out []model.Tag
	for _, t := range r.tags {
		if t.CourseID == courseID {
			out = append(out, t)
		}
	}
	return out, nil
}

type stubEngagementRepo struct {
	archived   []*model.EngagementSession
	failCreate error
}

func (r *stubEngagementRepo) Create(ctx context.Context, session *model.EngagementSession) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.archived = append(r.archived, session)
	return nil
}

func (r *stubEngagementRepo) ListByCourse(ctx context.Context, courseID string) ([]*model.EngagementSession, error) {
	return r.archived, nil
}

type memSessionCache struct {
	mu    sync.Mutex
	metas map[string]*model.LiveSession
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{metas: make(map[string]*model.LiveSession)}
}

func (c *memSessionCache) SetMeta(ctx context.Context, meta *model.LiveSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.Code] = meta
	return nil
}

func (c *memSessionCache) GetMeta(ctx context.Context, code string) (*model.LiveSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metas[code], nil
}

func (c *memSessionCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, code)
	return nil
}

type memTagCache struct {
	mu   sync.Mutex
	sets map[string][]model.Tag
}

func newMemTagCache() *memTagCache {
	return &memTagCache{sets: make(map[string][]model.Tag)}
}

func (c *memTagCache) Set(ctx context.Context, courseID string, tags []model.Tag) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[courseID] = tags
	return nil
}

func (c *memTagCache) Get(ctx context.Context, courseID string) ([]model.Tag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[courseID], nil
}

func (c *memTagCache) Invalidate(ctx context.Context, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, courseID)
	return nil
}

type stubTagger struct {
	id  int64
	err error
}

func (t *stubTagger) Predict(body string, candidates []model.Tag) (int64, error) {
	return t.id, t.err
}

type fixture struct {
	svc         *SessionService
	broadcaster *stubBroadcaster
	engRepo     *stubEngagementRepo
	cache       *memSessionCache
}

func newFixture(t *testing.T, tags []model.Tag) *fixture {
	t.Helper()

	courseRepo := &stubCourseRepo{courses: map[string]*model.Course{
		"c_csc100": {ID: "c_csc100", InstructorID: "i_john", Department: "Comp Sci", Title: "CSC 100"},
	}}
	engRepo := &stubEngagementRepo{}
	sessionCache := newMemSessionCache()

	svc := NewSessionService(
		live.NewRegistry(),
		courseRepo,
		&stubTagRepo{tags: tags},
		engRepo,
		sessionCache,
		newMemTagCache(),
		&stubTagger{id: 7},
	)

	broadcaster := &stubBroadcaster{sizes: make(map[string]int)}
	svc.SetBroadcaster(broadcaster)

	return &fixture{svc: svc, broadcaster: broadcaster, engRepo: engRepo, cache: sessionCache}
}

func TestCreateSessionValidatesPhrase(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateSession(ctx, "c_csc100", "")
	require.ErrorIs(t, err, ErrInvalidPhrase)

	_, err = f.svc.CreateSession(ctx, "c_csc100", "   ")
	require.ErrorIs(t, err, ErrInvalidPhrase)

	_, err = f.svc.CreateSession(ctx, "c_csc100", strings.Repeat("x", 81))
	require.ErrorIs(t, err, ErrInvalidPhrase)
}

func TestCreateSessionUnknownCourse(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateSession(context.Background(), "c_nope", "whatever")
	require.ErrorIs(t, err, ErrUnknownCourse)
}

func TestCreateSessionCachesMeta(t *testing.T) {
	f := newFixture(t, nil)

	meta, err := f.svc.CreateSession(context.Background(), "c_csc100", "week 3")
	require.NoError(t, err)
	require.Len(t, meta.Code, 6)
	require.True(t, f.svc.SessionExists(meta.Code))

	cached, err := f.cache.GetMeta(context.Background(), meta.Code)
	require.NoError(t, err)
	require.Equal(t, meta.Code, cached.Code)

	// Creating a session broadcasts nothing.
	require.Empty(t, f.broadcaster.all())
}

func TestJoinUnknownSessionNoBroadcast(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.JoinRoom(context.Background(), "NOPE00", "alice")
	require.ErrorIs(t, err, live.ErrUnknownSession)
	require.Empty(t, f.broadcaster.all())
}

func TestSubmitQuestionUnknownSessionNoBroadcast(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.SubmitQuestion(context.Background(), "NOPE00", "Why?", "body")
	require.ErrorIs(t, err, live.ErrUnknownSession)
	require.Empty(t, f.broadcaster.all())
}

func TestSubmitQuestionWithoutTagsLeavesUntagged(t *testing.T) {
	f := newFixture(t, nil) // course has no tags
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)

	q, err := f.svc.SubmitQuestion(ctx, meta.Code, "Why?", "What is polymorphism?")
	require.NoError(t, err)
	require.Nil(t, q.TagID)
}

func TestBroadcastOrderingForSequentialAppends(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)

	_, err = f.svc.SubmitQuestion(ctx, meta.Code, "A", "first")
	require.NoError(t, err)
	_, err = f.svc.SubmitQuestion(ctx, meta.Code, "B", "second")
	require.NoError(t, err)

	var snapshots [][]model.Question
	for _, ev := range f.broadcaster.all() {
		if ev.msgType == EventUpdatedQuestions {
			snapshots = append(snapshots, ev.payload.([]model.Question))
		}
	}
	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[0], 1)
	require.Equal(t, "A", snapshots[0][0].Title)
	require.Len(t, snapshots[1], 2)
	require.Equal(t, "B", snapshots[1][1].Title)
}

func TestLeaveRoomBroadcastsUpdatedMembers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)

	_, err = f.svc.JoinRoom(ctx, meta.Code, "alice")
	require.NoError(t, err)
	_, err = f.svc.JoinRoom(ctx, meta.Code, "bob")
	require.NoError(t, err)
	require.NoError(t, f.svc.LeaveRoom(ctx, meta.Code, "alice"))

	events := f.broadcaster.all()
	require.Len(t, events, 3)
	require.Equal(t, []string{"bob"}, events[2].payload.([]string))
}

func TestEndSessionArchivesRoom(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)
	f.svc.JoinRoom(ctx, meta.Code, "alice")
	f.svc.JoinRoom(ctx, meta.Code, "bob")
	f.svc.SubmitQuestion(ctx, meta.Code, "Why?", "What is polymorphism?")

	archive, err := f.svc.EndSession(ctx, meta.Code)
	require.NoError(t, err)
	require.Equal(t, meta.Code, archive.Code)
	require.Equal(t, "c_csc100", archive.CourseID)
	require.Equal(t, 2, archive.MemberPeak)
	require.Equal(t, 1, archive.QuestionCount)

	require.Len(t, f.engRepo.archived, 1)
	require.False(t, f.svc.SessionExists(meta.Code))

	cached, err := f.cache.GetMeta(ctx, meta.Code)
	require.NoError(t, err)
	require.Nil(t, cached)

	_, err = f.svc.EndSession(ctx, meta.Code)
	require.ErrorIs(t, err, live.ErrUnknownSession)
}

func TestEndSessionKeepsRoomWhenArchiveFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)
	f.svc.JoinRoom(ctx, meta.Code, "alice")
	f.svc.SubmitQuestion(ctx, meta.Code, "Why?", "What is polymorphism?")

	f.engRepo.failCreate = errors.New("mongo down")
	_, err = f.svc.EndSession(ctx, meta.Code)
	require.Error(t, err)

	// The room's final state must survive a failed archive write.
	require.True(t, f.svc.SessionExists(meta.Code))
	require.Empty(t, f.engRepo.archived)

	f.engRepo.failCreate = nil
	archive, err := f.svc.EndSession(ctx, meta.Code)
	require.NoError(t, err)
	require.Equal(t, 1, archive.MemberPeak)
	require.Equal(t, 1, archive.QuestionCount)
	require.Equal(t, "Why?", archive.Questions[0].Title)
	require.Len(t, f.engRepo.archived, 1)
	require.False(t, f.svc.SessionExists(meta.Code))
}

func TestGetSessionPrefersRegistryOverCache(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)

	// A stale cache entry must not shadow the live room.
	f.cache.SetMeta(ctx, &model.LiveSession{Code: meta.Code, CourseID: "c_csc100", Phrase: "stale"})
	got, err := f.svc.GetSession(ctx, meta.Code)
	require.NoError(t, err)
	require.Equal(t, "week 3", got.Phrase)

	// Once the room is gone (and the cache entry dropped) the code is
	// unknown again.
	_, err = f.svc.EndSession(ctx, meta.Code)
	require.NoError(t, err)
	_, err = f.svc.GetSession(ctx, meta.Code)
	require.ErrorIs(t, err, live.ErrUnknownSession)
}

func TestJanitorEvictsIdleRooms(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)

	go f.svc.Janitor(ctx, 10*time.Millisecond, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return !f.svc.SessionExists(meta.Code)
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, f.engRepo.archived, 1)
}

func TestJanitorSparesRoomsWithSubscribers(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "week 3")
	require.NoError(t, err)
	f.broadcaster.sizes[meta.Code] = 1

	go f.svc.Janitor(ctx, 10*time.Millisecond, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	require.True(t, f.svc.SessionExists(meta.Code))
}

// The full flow from the classroom point of view: open a session, two
// students join, one asks a question, the stub classifier tags it 7.
func TestSessionLifecycleEndToEnd(t *testing.T) {
	tags := []model.Tag{{ID: 7, CourseID: "c_csc100", Name: "polymorphism"}}
	f := newFixture(t, tags)
	ctx := context.Background()

	meta, err := f.svc.CreateSession(ctx, "c_csc100", "office hours")
	require.NoError(t, err)

	members, err := f.svc.JoinRoom(ctx, meta.Code, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, members)

	members, err = f.svc.JoinRoom(ctx, meta.Code, "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, members)

	q, err := f.svc.SubmitQuestion(ctx, meta.Code, "Why?", "What is polymorphism?")
	require.NoError(t, err)
	require.NotNil(t, q.TagID)
	require.EqualValues(t, 7, *q.TagID)

	events := f.broadcaster.all()
	require.Len(t, events, 3)

	require.Equal(t, EventMemberList, events[0].msgType)
	require.Equal(t, []string{"alice"}, events[0].payload.([]string))

	require.Equal(t, EventMemberList, events[1].msgType)
	require.Equal(t, []string{"alice", "bob"}, events[1].payload.([]string))

	require.Equal(t, EventUpdatedQuestions, events[2].msgType)
	questions := events[2].payload.([]model.Question)
	require.Len(t, questions, 1)
	require.Equal(t, "Why?", questions[0].Title)
	require.Equal(t, "What is polymorphism?", questions[0].Body)
	require.NotNil(t, questions[0].TagID)
	require.EqualValues(t, 7, *questions[0].TagID)
}
