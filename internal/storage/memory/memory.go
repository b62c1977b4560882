// Package memory holds in-process implementations of the storage contracts.
// They back the unit tests and single-process local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	repo "github.com/ilindan-dev/local-notifier/internal/domain/repository"
)

var (
	_ repo.RequestRepository  = (*RequestRepository)(nil)
	_ repo.RequestQueue       = (*Queue)(nil)
	_ repo.AuthorizationStore = (*AuthorizationStore)(nil)
	_ repo.DeliveryFeed       = (*Feed)(nil)
)

// RequestRepository keeps requests in a map.
type RequestRepository struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.Request
	order    map[uuid.UUID]int
	next     int
	now      func() time.Time
	// Err, when set, is returned by every method.
	Err error
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		requests: make(map[uuid.UUID]*model.Request),
		order:    make(map[uuid.UUID]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *RequestRepository) Save(_ context.Context, n *model.Request) (*model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if _, ok := r.requests[n.ID]; ok {
		return nil, repo.ErrDuplicateRecord
	}
	stored := clone(n)
	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.requests[n.ID] = stored
	r.order[n.ID] = r.next
	r.next++
	return clone(stored), nil
}

func (r *RequestRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	n, ok := r.requests[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(n), nil
}

func (r *RequestRepository) ListPending(_ context.Context) ([]*model.Request, error) {
	return r.list(func(n *model.Request) bool { return n.IsPending() }, 0)
}

func (r *RequestRepository) ListDue(_ context.Context, before time.Time, limit int) ([]*model.Request, error) {
	return r.list(func(n *model.Request) bool { return n.IsPending() && n.FireAt.Before(before) }, limit)
}

func (r *RequestRepository) list(keep func(*model.Request) bool, limit int) ([]*model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*model.Request, 0, len(r.requests))
	for _, n := range r.requests {
		if keep(n) {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RequestRepository) Update(_ context.Context, n *model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored, ok := r.requests[n.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if !stored.IsPending() {
		return repo.ErrNotPending
	}
	stored.Status = n.Status
	stored.Attempts = n.Attempts
	stored.FireAt = n.FireAt
	stored.DeliveredAt = n.DeliveredAt
	stored.UpdatedAt = r.now()
	return nil
}

func (r *RequestRepository) Cancel(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var cancelled []uuid.UUID
	for _, id := range ids {
		n, ok := r.requests[id]
		if !ok || !n.IsPending() {
			continue
		}
		n.Status = model.StatusCancelled
		n.UpdatedAt = r.now()
		cancelled = append(cancelled, id)
	}
	return cancelled, nil
}

// Queue records every publication instead of delaying it.
type Queue struct {
	mu        sync.Mutex
	Published []*model.Request
	Retries   []Retry
	Immediate []*model.Request
	// Err, when set, is returned by every method.
	Err error
}

// Retry is a recorded PublishRetry call.
type Retry struct {
	Request *model.Request
	Delay   time.Duration
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Publish(_ context.Context, n *model.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Published = append(q.Published, clone(n))
	return nil
}

func (q *Queue) PublishRetry(_ context.Context, n *model.Request, retryDelay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Retries = append(q.Retries, Retry{Request: clone(n), Delay: retryDelay})
	return nil
}

func (q *Queue) PublishNow(_ context.Context, n *model.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Immediate = append(q.Immediate, clone(n))
	return nil
}

// AuthorizationStore holds a single settings value.
type AuthorizationStore struct {
	mu       sync.Mutex
	settings *model.AuthorizationSettings
}

func NewAuthorizationStore() *AuthorizationStore {
	return &AuthorizationStore{}
}

func (s *AuthorizationStore) Get(_ context.Context) (*model.AuthorizationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return &model.AuthorizationSettings{Status: model.AuthorizationNotDetermined}, nil
	}
	cp := *s.settings
	return &cp, nil
}

func (s *AuthorizationStore) Set(_ context.Context, settings *model.AuthorizationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *settings
	s.settings = &cp
	return nil
}

// Feed fans delivered requests out to subscriber channels.
type Feed struct {
	mu   sync.Mutex
	subs map[chan *model.Request]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan *model.Request]struct{})}
}

func (f *Feed) PublishDelivered(_ context.Context, n *model.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- clone(n):
		default:
		}
	}
	return nil
}

func (f *Feed) SubscribeDelivered(_ context.Context) (<-chan *model.Request, func(), error) {
	ch := make(chan *model.Request, 16)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

func clone(n *model.Request) *model.Request {
	cp := *n
	if n.Content.Attachments != nil {
		cp.Content.Attachments = append([]model.Attachment(nil), n.Content.Attachments...)
	}
	if n.Content.UserInfo != nil {
		cp.Content.UserInfo = make(map[string]string, len(n.Content.UserInfo))
		for k, v := range n.Content.UserInfo {
			cp.Content.UserInfo[k] = v
		}
	}
	if n.DeliveredAt != nil {
		t := *n.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}
