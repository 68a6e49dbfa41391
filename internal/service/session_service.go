package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"classpulse/internal/cache"
	"classpulse/internal/live"
	"classpulse/internal/model"
	"classpulse/internal/repository"
	"classpulse/internal/tagger"
)

const maxPhraseLen = 80

// Outbound broadcast event types
const (
	EventMemberList       = "member_list"
	EventUpdatedQuestions = "updated_questions"
)

var (
	ErrInvalidPhrase = errors.New("phrase must be 1-80 characters")
	ErrUnknownCourse = errors.New("course not found")
)

// SessionService orchestrates the live session core: create a room, join
// and leave it, submit questions, and push snapshots to the room after
// every change. All room state lives in the registry; Redis and MongoDB
// only carry lookups and the durable archive.
type SessionService struct {
	rooms       *live.Registry
	courseRepo  repository.CourseRepo
	tagRepo     repository.TagRepo
	engRepo     repository.EngagementRepo
	sessions    cache.SessionCache
	tags        cache.TagCache
	tagger      tagger.Tagger
	broadcaster Broadcaster
}

// NewSessionService creates a new session service
func NewSessionService(
	rooms *live.Registry,
	courseRepo repository.CourseRepo,
	tagRepo repository.TagRepo,
	engRepo repository.EngagementRepo,
	sessions cache.SessionCache,
	tags cache.TagCache,
	tg tagger.Tagger,
) *SessionService {
	return &SessionService{
		rooms:      rooms,
		courseRepo: courseRepo,
		tagRepo:    tagRepo,
		engRepo:    engRepo,
		sessions:   sessions,
		tags:       tags,
		tagger:     tg,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateSession opens a live room bound to a course and returns its
// metadata. No broadcast: nobody is subscribed to a fresh code yet.
func (s *SessionService) CreateSession(ctx context.Context, courseID, phrase string) (*model.LiveSession, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || len(phrase) > maxPhraseLen {
		return nil, ErrInvalidPhrase
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, ErrUnknownCourse
	}

	meta, err := s.rooms.Create(courseID, phrase)
	if err != nil {
		return nil, err
	}

	// Registry is authoritative; a cache miss only degrades REST lookups.
	if err := s.sessions.SetMeta(ctx, &meta); err != nil {
		log.Printf("session %s: cache write failed: %v", meta.Code, err)
	}

	log.Printf("session %s created for course %s (%q)", meta.Code, courseID, phrase)
	return &meta, nil
}

// SessionExists reports whether code names a live room.
func (s *SessionService) SessionExists(code string) bool {
	return s.rooms.Exists(code)
}

// GetSession returns live session metadata. The registry is
// authoritative; the cache only answers for codes this process does not
// hold, so an ended room with a stale cache entry cannot shadow a live
// one.
func (s *SessionService) GetSession(ctx context.Context, code string) (*model.LiveSession, error) {
	if m, err := s.rooms.Meta(code); err == nil {
		return &m, nil
	}

	meta, err := s.sessions.GetMeta(ctx, code)
	if err != nil {
		log.Printf("session %s: cache read failed: %v", code, err)
	}
	if meta == nil {
		return nil, live.ErrUnknownSession
	}
	return meta, nil
}

// JoinRoom appends name to the room and broadcasts the updated member
// list to everyone subscribed to it.
func (s *SessionService) JoinRoom(ctx context.Context, code, name string) ([]string, error) {
	members, err := s.rooms.Join(code, name)
	if err != nil {
		return nil, err
	}

	s.broadcast(code, EventMemberList, members)
	return members, nil
}

// LeaveRoom removes one occurrence of name and broadcasts the updated
// member list. Leaving with an unlisted name is a silent no-op.
func (s *SessionService) LeaveRoom(ctx context.Context, code, name string) error {
	members, err := s.rooms.Leave(code, name)
	if err != nil {
		return err
	}

	s.broadcast(code, EventMemberList, members)
	return nil
}

// SubmitQuestion appends the question, classifies it against the owning
// course's tags, and broadcasts the updated question log. Tagging is
// best-effort: with no candidates or a failed lookup the question simply
// stays untagged.
func (s *SessionService) SubmitQuestion(ctx context.Context, code, title, body string) (*model.Question, error) {
	q, err := s.rooms.Append(code, title, body)
	if err != nil {
		return nil, err
	}

	meta, err := s.rooms.Meta(code)
	if err == nil {
		s.tagQuestion(ctx, code, meta.CourseID, q)
	}

	questions, err := s.rooms.Questions(code)
	if err != nil {
		return nil, err
	}

	s.broadcast(code, EventUpdatedQuestions, questions)
	return q, nil
}

// EndSession tears the room down, archives its final state and drops the
// cached metadata. Used by the REST end route and the janitor.
func (s *SessionService) EndSession(ctx context.Context, code string) (*model.EngagementSession, error) {
	snap, err := s.rooms.Remove(code)
	if err != nil {
		return nil, err
	}

	archive := &model.EngagementSession{
		ID:            "e_" + uuid.New().String()[:8],
		Code:          snap.Session.Code,
		CourseID:      snap.Session.CourseID,
		Phrase:        snap.Session.Phrase,
		MemberPeak:    snap.MemberPeak,
		QuestionCount: len(snap.Questions),
		Questions:     snap.Questions,
		StartedAt:     snap.Session.CreatedAt,
		EndedAt:       time.Now(),
	}

	if err := s.engRepo.Create(ctx, archive); err != nil {
		// The snapshot is the only copy of the room; put it back so the
		// end can be retried.
		if rerr := s.rooms.Reinstate(snap); rerr != nil {
			log.Printf("session %s: reinstate after failed archive: %v", code, rerr)
		}
		return nil, fmt.Errorf("failed to archive session %s: %w", code, err)
	}

	if err := s.sessions.Delete(ctx, code); err != nil {
		log.Printf("session %s: cache delete failed: %v", code, err)
	}

	log.Printf("session %s ended: %d members at peak, %d questions", code, snap.MemberPeak, len(snap.Questions))
	return archive, nil
}

// Janitor periodically archives rooms that have been idle longer than
// idleTTL and have no remaining subscribers. Runs until ctx is done.
func (s *SessionService) Janitor(ctx context.Context, interval, idleTTL time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, code := range s.rooms.IdleCodes(idleTTL) {
				if s.broadcaster != nil && s.broadcaster.RoomSize(code) > 0 {
					continue
				}
				if _, err := s.EndSession(ctx, code); err != nil && !errors.Is(err, live.ErrUnknownSession) {
					log.Printf("janitor: evicting %s: %v", code, err)
				}
			}
		}
	}
}

// tagQuestion resolves the course's tag set (cache first) and annotates
// the question with the best match.
func (s *SessionService) tagQuestion(ctx context.Context, code, courseID string, q *model.Question) {
	tags, err := s.tags.Get(ctx, courseID)
	if err != nil {
		log.Printf("course %s: tag cache read failed: %v", courseID, err)
	}
	if tags == nil {
		tags, err = s.tagRepo.ListByCourse(ctx, courseID)
		if err != nil {
			log.Printf("course %s: tag lookup failed: %v", courseID, err)
			return
		}
		if len(tags) > 0 {
			if err := s.tags.Set(ctx, courseID, tags); err != nil {
				log.Printf("course %s: tag cache write failed: %v", courseID, err)
			}
		}
	}

	if len(tags) == 0 {
		// NoCandidates: the question stays untagged.
		return
	}

	tagID, err := s.tagger.Predict(q.Body, tags)
	if err != nil {
		log.Printf("session %s: tagger failed: %v", code, err)
		return
	}

	if err := s.rooms.Annotate(code, q, tagID); err != nil {
		log.Printf("session %s: annotate failed: %v", code, err)
	}
}

func (s *SessionService) broadcast(code, msgType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(code, msgType, payload)
}
