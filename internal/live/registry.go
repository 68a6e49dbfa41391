package live

import (
	"crypto/rand"
	"sync"
	"time"

	"classpulse/internal/model"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLen         = 6
	maxCodeAttempts = 10
)

// room is the aggregate held per session code: ordered member names
// (join order, duplicates allowed) and the append-only question log.
type room struct {
	mu         sync.Mutex
	meta       model.LiveSession
	members    []string
	memberPeak int
	questions  []*model.Question
	lastActive time.Time

	// Set under mu by Remove. A caller that resolved the room pointer
	// before removal must observe it and fail instead of mutating state
	// that has already been snapshotted.
	removed bool
}

// Registry owns every live room, keyed by session code. The registry map
// is guarded by its own lock; member and question mutations serialize on
// the per-room lock, so operations on different rooms never contend.
// Room state is process-lifetime memory only.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// Snapshot is the frozen state of a room, taken when it is removed.
type Snapshot struct {
	Session    model.LiveSession
	Members    []string
	MemberPeak int
	Questions  []model.Question
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

// Create issues a fresh 6-char code bound to courseID and initializes the
// room's member list and question log in the same step, so a join racing
// the create either sees a fully built room or ErrUnknownSession.
func (r *Registry) Create(courseID, phrase string) (model.LiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code, err := generateCode()
		if err != nil {
			return model.LiveSession{}, err
		}
		if _, taken := r.rooms[code]; taken {
			continue
		}

		now := time.Now()
		rm := &room{
			meta: model.LiveSession{
				Code:      code,
				CourseID:  courseID,
				Phrase:    phrase,
				CreatedAt: now,
			},
			members:    []string{},
			questions:  []*model.Question{},
			lastActive: now,
		}
		r.rooms[code] = rm
		return rm.meta, nil
	}

	return model.LiveSession{}, ErrCodeExhausted
}

// Exists reports whether code was ever issued by this registry.
func (r *Registry) Exists(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok
}

// Meta returns the session metadata for code.
func (r *Registry) Meta(code string) (model.LiveSession, error) {
	rm, err := r.room(code)
	if err != nil {
		return model.LiveSession{}, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return model.LiveSession{}, ErrUnknownSession
	}
	return rm.meta, nil
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Join appends name to the room's member list and returns the resulting
// full list. Duplicates are allowed; identity is the display name only.
func (r *Registry) Join(code, name string) ([]string, error) {
	rm, err := r.room(code)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return nil, ErrUnknownSession
	}
	rm.members = append(rm.members, name)
	if len(rm.members) > rm.memberPeak {
		rm.memberPeak = len(rm.members)
	}
	rm.lastActive = time.Now()
	return copyStrings(rm.members), nil
}

// Leave removes one occurrence of name from the room. Removing a name
// that is not present is a no-op, not an error.
func (r *Registry) Leave(code, name string) ([]string, error) {
	rm, err := r.room(code)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return nil, ErrUnknownSession
	}
	for i, m := range rm.members {
		if m == name {
			rm.members = append(rm.members[:i], rm.members[i+1:]...)
			break
		}
	}
	rm.lastActive = time.Now()
	return copyStrings(rm.members), nil
}

// Members returns a snapshot of the room's member list.
func (r *Registry) Members(code string) ([]string, error) {
	rm, err := r.room(code)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return nil, ErrUnknownSession
	}
	return copyStrings(rm.members), nil
}

// Append adds an untagged question to the room's log and returns it.
// The returned pointer stays valid for a later Annotate.
func (r *Registry) Append(code, title, body string) (*model.Question, error) {
	rm, err := r.room(code)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return nil, ErrUnknownSession
	}
	q := &model.Question{Title: title, Body: body}
	rm.questions = append(rm.questions, q)
	rm.lastActive = time.Now()
	return q, nil
}

// Annotate assigns a tag id to a previously appended question. A question
// is tagged at most once; later calls leave the first tag in place.
func (r *Registry) Annotate(code string, q *model.Question, tagID int64) error {
	rm, err := r.room(code)
	if err != nil {
		return err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return ErrUnknownSession
	}
	if q.TagID == nil {
		q.TagID = &tagID
	}
	return nil
}

// Questions returns a snapshot of the room's question log in submission
// order. The copies are detached: a later Annotate does not touch them.
func (r *Registry) Questions(code string) ([]model.Question, error) {
	rm, err := r.room(code)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return nil, ErrUnknownSession
	}
	return copyQuestions(rm.questions), nil
}

// IdleCodes returns codes whose rooms have seen no join, leave or append
// for at least idleFor.
func (r *Registry) IdleCodes(idleFor time.Duration) []string {
	cutoff := time.Now().Add(-idleFor)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var codes []string
	for code, rm := range r.rooms {
		rm.mu.Lock()
		idle := rm.lastActive.Before(cutoff)
		rm.mu.Unlock()
		if idle {
			codes = append(codes, code)
		}
	}
	return codes
}

// Remove deletes the room and returns its final state for archiving.
func (r *Registry) Remove(code string) (*Snapshot, error) {
	r.mu.Lock()
	rm, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownSession
	}
	delete(r.rooms, code)
	r.mu.Unlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.removed = true
	return &Snapshot{
		Session:    rm.meta,
		Members:    copyStrings(rm.members),
		MemberPeak: rm.memberPeak,
		Questions:  copyQuestions(rm.questions),
	}, nil
}

// Reinstate rebuilds a removed room from its snapshot, undoing a Remove
// whose follow-up (archiving) failed. Fails with ErrCodeTaken if the
// code was reissued in the meantime.
func (r *Registry) Reinstate(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := snap.Session.Code
	if _, taken := r.rooms[code]; taken {
		return ErrCodeTaken
	}

	questions := make([]*model.Question, 0, len(snap.Questions))
	for _, q := range snap.Questions {
		cp := q
		if cp.TagID != nil {
			id := *cp.TagID
			cp.TagID = &id
		}
		questions = append(questions, &cp)
	}
	r.rooms[code] = &room{
		meta:       snap.Session,
		members:    copyStrings(snap.Members),
		memberPeak: snap.MemberPeak,
		questions:  questions,
		lastActive: time.Now(),
	}
	return nil
}

func (r *Registry) room(code string) (*room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[code]
	if !ok {
		return nil, ErrUnknownSession
	}
	return rm, nil
}

func copyStrings(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func copyQuestions(src []*model.Question) []model.Question {
	out := make([]model.Question, 0, len(src))
	for _, q := range src {
		cp := model.Question{Title: q.Title, Body: q.Body}
		if q.TagID != nil {
			id := *q.TagID
			cp.TagID = &id
		}
		out = append(out, cp)
	}
	return out
}

// generateCode draws codeLen characters uniformly from codeAlphabet using
// crypto/rand. Bytes >= 252 are rejected so the modulo stays unbiased.
func generateCode() (string, error) {
	const limit = byte(252) // largest multiple of 36 below 256

	code := make([]byte, 0, codeLen)
	buf := make([]byte, codeLen*2)
	for len(code) < codeLen {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == codeLen {
				break
			}
		}
	}
	return string(code), nil
}
