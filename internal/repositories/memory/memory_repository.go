// Package memory is a process-local Repository used by tests and local runs
// without a database. Transactions snapshot the whole store and restore it
// on error.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/RISHIK92/adventa-backend/internal/repositories"
)

type state struct {
	nextInstanceID uint
	nextAnswerID   uint
	instances      map[uint]models.AssessmentInstance
	questions      map[uint]models.Question
	subtopics      map[uint]models.Subtopic
	topics         map[uint]models.Topic
	answers        []models.AnswerRecord
	performance    map[perfKey]models.PerformanceRecord
	community      map[communityKey]models.CommunityAverage
}

type perfKey struct {
	userID string
	key    models.LevelKey
}

type communityKey struct {
	level    models.HierarchyLevel
	entityID uint
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	s    *state

	// FailApplyDelta, when set, is returned by every ApplyDelta call.
	FailApplyDelta error
}

func NewStore() *Store {
	return &Store{s: &state{
		instances:   map[uint]models.AssessmentInstance{},
		questions:   map[uint]models.Question{},
		subtopics:   map[uint]models.Subtopic{},
		topics:      map[uint]models.Topic{},
		performance: map[perfKey]models.PerformanceRecord{},
		community:   map[communityKey]models.CommunityAverage{},
	}}
}

func (st *state) clone() *state {
	c := &state{
		nextInstanceID: st.nextInstanceID,
		nextAnswerID:   st.nextAnswerID,
		instances:      make(map[uint]models.AssessmentInstance, len(st.instances)),
		questions:      st.questions,
		subtopics:      st.subtopics,
		topics:         st.topics,
		answers:        append([]models.AnswerRecord(nil), st.answers...),
		performance:    make(map[perfKey]models.PerformanceRecord, len(st.performance)),
		community:      make(map[communityKey]models.CommunityAverage, len(st.community)),
	}
	for k, v := range st.instances {
		c.instances[k] = v
	}
	for k, v := range st.performance {
		c.performance[k] = v
	}
	for k, v := range st.community {
		c.community[k] = v
	}
	return c
}

// SeedHierarchy registers a subject/topic/subtopic chain.
func (st *Store) SeedHierarchy(subjectID, topicID, subtopicID uint) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.topics[topicID] = models.Topic{ID: topicID, SubjectID: subjectID}
	st.s.subtopics[subtopicID] = models.Subtopic{ID: subtopicID, TopicID: topicID}
}

// SeedQuestion stores a question. Its subtopic should already be seeded.
func (st *Store) SeedQuestion(q models.Question) {
	st.mu.Lock()
	defer st.mu.Unlock()
	q.Subtopic = nil
	st.s.questions[q.ID] = q
}

// AnswerCount returns how many answer records exist for an attempt.
func (st *Store) AnswerCount(attemptID uint) int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	n := 0
	for _, a := range st.s.answers {
		if a.AttemptID == attemptID {
			n++
		}
	}
	return n
}

// Repository returns the non-transactional view of the store.
func (st *Store) Repository() repositories.Repository {
	return &Repository{store: st}
}

// Repository implements repositories.Repository over a Store
type Repository struct {
	store *Store
	inTx  bool
}

func (r *Repository) Assessment() repositories.AssessmentRepository {
	return &assessmentRepo{store: r.store, inTx: r.inTx}
}

func (r *Repository) Question() repositories.QuestionRepository {
	return &questionRepo{store: r.store, inTx: r.inTx}
}

func (r *Repository) Answer() repositories.AnswerRepository {
	return &answerRepo{store: r.store, inTx: r.inTx}
}

func (r *Repository) Performance() repositories.PerformanceRepository {
	return &performanceRepo{store: r.store, inTx: r.inTx}
}

func (r *Repository) CommunityAverage() repositories.CommunityAverageRepository {
	return &communityRepo{store: r.store, inTx: r.inTx}
}

// WithTransaction serializes transactions and rolls back by restoring the
// snapshot taken at the start.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	r.store.mu.RLock()
	snapshot := r.store.s.clone()
	r.store.mu.RUnlock()

	err := fn(&Repository{store: r.store, inTx: true})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		r.store.mu.Lock()
		r.store.s = snapshot
		r.store.mu.Unlock()
		return err
	}
	return nil
}

// writeGuard makes writes outside a transaction wait for any running one, so
// a rollback never discards them.
func (st *Store) writeGuard(inTx bool) func() {
	if inTx {
		return func() {}
	}
	st.txMu.Lock()
	return st.txMu.Unlock
}

func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func (r *Repository) Close() error {
	return nil
}

type assessmentRepo struct {
	store *Store
	inTx  bool
}

func (a *assessmentRepo) Create(ctx context.Context, instance *models.AssessmentInstance) error {
	defer a.store.writeGuard(a.inTx)()
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	a.store.s.nextInstanceID++
	instance.ID = a.store.s.nextInstanceID
	now := time.Now()
	instance.CreatedAt, instance.UpdatedAt = now, now
	a.store.s.instances[instance.ID] = *instance
	return nil
}

func (a *assessmentRepo) GetForUser(ctx context.Context, id uint, userID string) (*models.AssessmentInstance, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	instance, ok := a.store.s.instances[id]
	if !ok || instance.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	return &instance, nil
}

func (a *assessmentRepo) Complete(ctx context.Context, id uint, outcome models.AttemptOutcome) (bool, error) {
	defer a.store.writeGuard(a.inTx)()
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	instance, ok := a.store.s.instances[id]
	if !ok || instance.CompletedAt != nil {
		return false, nil
	}
	completedAt := outcome.CompletedAt
	instance.Score = outcome.Score
	instance.TotalMarks = outcome.TotalMarks
	instance.CorrectCount = outcome.CorrectCount
	instance.IncorrectCount = outcome.IncorrectCount
	instance.UnattemptedCount = outcome.UnattemptedCount
	instance.TimeTakenSec = outcome.TimeTakenSec
	instance.CompletedAt = &completedAt
	instance.UpdatedAt = completedAt
	a.store.s.instances[id] = instance
	return true, nil
}

type questionRepo struct {
	store *Store
	inTx  bool
}

func (q *questionRepo) GetByIDsWithHierarchy(ctx context.Context, ids []uint) (map[uint]*models.Question, error) {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	out := make(map[uint]*models.Question, len(ids))
	for _, id := range ids {
		question, ok := q.store.s.questions[id]
		if !ok {
			continue
		}
		if sub, ok := q.store.s.subtopics[question.SubtopicID]; ok {
			if topic, ok := q.store.s.topics[sub.TopicID]; ok {
				sub.Topic = &topic
			}
			question.Subtopic = &sub
		}
		out[id] = &question
	}
	return out, nil
}

func (q *questionRepo) CountExisting(ctx context.Context, ids []uint) (int64, error) {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	var n int64
	for _, id := range ids {
		if _, ok := q.store.s.questions[id]; ok {
			n++
		}
	}
	return n, nil
}

type answerRepo struct {
	store *Store
	inTx  bool
}

func (a *answerRepo) CreateBatch(ctx context.Context, answers []*models.AnswerRecord) error {
	defer a.store.writeGuard(a.inTx)()
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	for _, existing := range a.store.s.answers {
		for _, ans := range answers {
			if existing.AttemptID == ans.AttemptID && existing.QuestionID == ans.QuestionID {
				return fmt.Errorf("duplicate answer record for attempt %d question %d", ans.AttemptID, ans.QuestionID)
			}
		}
	}
	now := time.Now()
	for _, ans := range answers {
		a.store.s.nextAnswerID++
		ans.ID = a.store.s.nextAnswerID
		ans.CreatedAt = now
		a.store.s.answers = append(a.store.s.answers, *ans)
	}
	return nil
}

func (a *answerRepo) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AnswerRecord, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	var out []*models.AnswerRecord
	for i := range a.store.s.answers {
		if a.store.s.answers[i].AttemptID == attemptID {
			ans := a.store.s.answers[i]
			out = append(out, &ans)
		}
	}
	return out, nil
}

type performanceRepo struct {
	store *Store
	inTx  bool
}

func (p *performanceRepo) ApplyDelta(ctx context.Context, userID string, key models.LevelKey, delta models.PerformanceDelta) error {
	if p.store.FailApplyDelta != nil {
		return p.store.FailApplyDelta
	}
	if delta.IsZero() {
		return nil
	}
	if !key.Level.IsValid() {
		return fmt.Errorf("unknown hierarchy level %q", key.Level)
	}
	if key.Level == models.LevelTopicDifficulty && !key.Difficulty.IsValid() {
		return fmt.Errorf("invalid difficulty %q for topic_difficulty", key.Difficulty)
	}

	defer p.store.writeGuard(p.inTx)()
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	k := perfKey{userID: userID, key: key}
	record, ok := p.store.s.performance[k]
	if !ok {
		record = models.PerformanceRecord{UserID: userID, LevelKey: key}
	}
	record.Apply(delta)
	record.UpdatedAt = time.Now()
	p.store.s.performance[k] = record
	return nil
}

func (p *performanceRepo) Get(ctx context.Context, userID string, key models.LevelKey) (*models.PerformanceRecord, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	record, ok := p.store.s.performance[perfKey{userID: userID, key: key}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &record, nil
}

func (p *performanceRepo) ListByUser(ctx context.Context, userID string, level models.HierarchyLevel) ([]models.PerformanceRecord, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	out := []models.PerformanceRecord{}
	for k, record := range p.store.s.performance {
		if k.userID == userID && k.key.Level == level {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Difficulty < out[j].Difficulty
	})
	return out, nil
}

type communityRepo struct {
	store *Store
	inTx  bool
}

func (c *communityRepo) Aggregate(ctx context.Context, level models.HierarchyLevel, entityIDs []uint) ([]models.CommunityAverage, error) {
	if !level.HasCommunityAverage() {
		return nil, fmt.Errorf("no community average kept for level %q", level)
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	wanted := make(map[uint]bool, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = true
	}

	type acc struct {
		sum       float64
		users     int
		attempted int
	}
	byEntity := map[uint]*acc{}
	for k, record := range c.store.s.performance {
		if k.key.Level != level || !wanted[k.key.EntityID] || record.TotalAttempted <= 0 {
			continue
		}
		a, ok := byEntity[k.key.EntityID]
		if !ok {
			a = &acc{}
			byEntity[k.key.EntityID] = a
		}
		a.sum += record.AccuracyPercent
		a.users++
		a.attempted += record.TotalAttempted
	}

	out := make([]models.CommunityAverage, 0, len(byEntity))
	for id, a := range byEntity {
		out = append(out, models.CommunityAverage{
			Level:           level,
			EntityID:        id,
			AverageAccuracy: a.sum / float64(a.users),
			UserCount:       a.users,
			TotalAttempted:  a.attempted,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (c *communityRepo) Upsert(ctx context.Context, avg *models.CommunityAverage) error {
	defer c.store.writeGuard(c.inTx)()
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.s.community[communityKey{level: avg.Level, entityID: avg.EntityID}] = *avg
	return nil
}

func (c *communityRepo) Get(ctx context.Context, level models.HierarchyLevel, entityID uint) (*models.CommunityAverage, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	avg, ok := c.store.s.community[communityKey{level: level, entityID: entityID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &avg, nil
}
