package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	seq       int
	findErr   error
	hashReads int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.seq++
		u.ID = fmt.Sprintf("u%d", r.seq)
	}
	r.byID[u.ID] = cloneUser(u)
	return u
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	r.seq++
	clone := cloneUser(u)
	clone.ID = fmt.Sprintf("u%d", r.seq)
	r.byID[clone.ID] = clone
	return cloneUser(clone), nil
}

// read mirrors the store projection: the hash only leaves when asked for.
// Callers hold r.mu.
func (r *stubUserRepo) read(u *domain.User, withHash bool) *domain.User {
	out := cloneUser(u)
	if withHash {
		r.hashReads++
	} else {
		out.PasswordHash = ""
	}
	return out
}

func (r *stubUserRepo) FindByID(_ context.Context, id string, withHash bool) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.read(u, withHash), nil
}

func (r *stubUserRepo) FindByLogin(_ context.Context, login string, withHash bool) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == domain.NormalizeEmail(login) || u.Username == login {
			return r.read(u, withHash), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Username+u.Email+u.DisplayName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) mutate(id string, fn func(u *domain.User) error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id string, role domain.Role, onlyIfPending bool) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) error {
		if onlyIfPending && u.Role != domain.RolePending {
			return domain.ErrAlreadyProcessed
		}
		u.Role = role
		return nil
	})
}

func (r *stubUserRepo) UpdateStatus(_ context.Context, id string, active bool) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) error {
		u.IsActive = active
		return nil
	})
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, p ports.ProfileUpdate) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) error {
		if p.DisplayName != nil {
			u.DisplayName = *p.DisplayName
		}
		if p.Bio != nil {
			u.Bio = *p.Bio
		}
		if p.ProfileImageURL != nil {
			u.ProfileImageURL = *p.ProfileImageURL
		}
		return nil
	})
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	_, err := r.mutate(id, func(u *domain.User) error {
		u.PasswordHash = hash
		return nil
	})
	return err
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	_, err := r.mutate(id, func(u *domain.User) error {
		u.LastLoginAt = &at
		return nil
	})
	return err
}

func (r *stubUserRepo) Delete(_ context.Context, id string, onlyIfPending bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if onlyIfPending && u.Role != domain.RolePending {
		return domain.ErrAlreadyProcessed
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) Ping(context.Context) error { return nil }

// ---------------------------------------------------------------------------
// Hasher and token stubs
// ---------------------------------------------------------------------------

// stubHasher is reversible on purpose so tests can assert what was stored.
type stubHasher struct {
	hashCalls int
}

func (h *stubHasher) Hash(_ context.Context, plain string) (string, error) {
	h.hashCalls++
	return "hashed:" + plain, nil
}

func (h *stubHasher) Verify(_ context.Context, hash, plain string) (bool, error) {
	if !strings.HasPrefix(hash, "hashed:") {
		return false, fmt.Errorf("corrupt hash")
	}
	return hash == "hashed:"+plain, nil
}

type stubTokens struct{}

func (stubTokens) Issue(userID string) (string, time.Time, error) {
	return "tok:" + userID, time.Now().Add(time.Hour), nil
}

func (stubTokens) Verify(token string) (string, error) {
	switch {
	case token == "expired":
		return "", domain.ErrTokenExpired
	case strings.HasPrefix(token, "tok:"):
		return strings.TrimPrefix(token, "tok:"), nil
	default:
		return "", domain.ErrMalformedToken
	}
}

// ---------------------------------------------------------------------------
// Policy store, post/article repositories, view recorder
// ---------------------------------------------------------------------------

type stubPolicyStore struct {
	saved   []domain.Matrix
	saveErr error
}

func (s *stubPolicyStore) Load(context.Context) (domain.Matrix, error) { return nil, nil }

func (s *stubPolicyStore) Save(_ context.Context, m domain.Matrix) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, m)
	return nil
}

func (s *stubPolicyStore) Subscribe(ctx context.Context, _ func(domain.Matrix)) error {
	<-ctx.Done()
	return nil
}

type stubPostRepo struct {
	byID       map[string]*domain.Post
	seq        int
	views      map[string]int
	replyDelta map[string]int
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{
		byID:       make(map[string]*domain.Post),
		views:      make(map[string]int),
		replyDelta: make(map[string]int),
	}
}

func (r *stubPostRepo) Create(_ context.Context, p *domain.Post) (*domain.Post, error) {
	r.seq++
	clone := *p
	clone.ID = fmt.Sprintf("p%d", r.seq)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubPostRepo) FindByID(_ context.Context, id string) (*domain.Post, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubPostRepo) List(_ context.Context, f ports.PostFilter) ([]*domain.Post, int64, error) {
	var out []*domain.Post
	for _, p := range r.byID {
		if p.Status == domain.PostActive && !p.IsReply() && (f.Type == "" || p.Type == f.Type) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubPostRepo) Replies(_ context.Context, parentID string) ([]*domain.Post, error) {
	var out []*domain.Post
	for _, p := range r.byID {
		if p.ParentID == parentID && p.Status == domain.PostActive {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubPostRepo) Update(_ context.Context, p *domain.Post) (*domain.Post, error) {
	if _, ok := r.byID[p.ID]; !ok {
		return nil, domain.ErrPostNotFound
	}
	clone := *p
	r.byID[p.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubPostRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubPostRepo) IncrementReplyCount(_ context.Context, id string, delta int) error {
	r.replyDelta[id] += delta
	if p, ok := r.byID[id]; ok {
		p.ReplyCount += int64(delta)
	}
	return nil
}

func (r *stubPostRepo) IncrementViews(_ context.Context, id string) error {
	r.views[id]++
	return nil
}

type stubArticleRepo struct {
	byID  map[string]*domain.Article
	seq   int
	views map[string]int
}

func newStubArticleRepo() *stubArticleRepo {
	return &stubArticleRepo{byID: make(map[string]*domain.Article), views: make(map[string]int)}
}

func (r *stubArticleRepo) Create(_ context.Context, a *domain.Article) (*domain.Article, error) {
	r.seq++
	clone := *a
	clone.ID = fmt.Sprintf("a%d", r.seq)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubArticleRepo) FindByID(_ context.Context, id string) (*domain.Article, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubArticleRepo) List(_ context.Context, f ports.ArticleFilter) ([]*domain.Article, int64, error) {
	var out []*domain.Article
	for _, a := range r.byID {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *stubArticleRepo) Update(_ context.Context, a *domain.Article) (*domain.Article, error) {
	if _, ok := r.byID[a.ID]; !ok {
		return nil, domain.ErrArticleNotFound
	}
	clone := *a
	r.byID[a.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubArticleRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrArticleNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubArticleRepo) IncrementViews(_ context.Context, id string) error {
	r.views[id]++
	return nil
}

type stubRecorder struct {
	events []domain.ViewEvent
}

func (r *stubRecorder) Record(ev domain.ViewEvent) bool {
	r.events = append(r.events, ev)
	return true
}

type stubDedup struct {
	seen map[string]bool
	err  error
}

func (d *stubDedup) MarkViewed(_ context.Context, ev domain.ViewEvent) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	key := string(ev.Kind) + ":" + ev.ResourceID + ":" + ev.ViewerKey
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}
