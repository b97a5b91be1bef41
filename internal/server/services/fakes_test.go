package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/galleries"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/media"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/rsvps"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/users"
	"github.com/dmitrijs2005/weddingtma/internal/server/storage"
	"github.com/dmitrijs2005/weddingtma/internal/telegram"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for all four repositories. Every
// method takes the lock, so conditional updates behave atomically like
// their SQL counterparts.
type memStore struct {
	mu        sync.Mutex
	now       time.Time
	users     map[string]*models.User
	rsvps     map[string]*models.RSVP
	galleries map[string]*models.Gallery
	media     map[string]*models.Media

	failMediaCreate error
}

func newMemStore() *memStore {
	return &memStore{
		now:       time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		users:     map[string]*models.User{},
		rsvps:     map[string]*models.RSVP{},
		galleries: map[string]*models.Gallery{},
		media:     map[string]*models.Media{},
	}
}

// tick advances the fake clock so orderings are deterministic.
func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func copyUser(u *models.User) *models.User          { c := *u; return &c }
func copyGallery(g *models.Gallery) *models.Gallery { c := *g; return &c }
func copyMedia(m *models.Media) *models.Media       { c := *m; return &c }

// seedUser stores u as-is and returns it.
func (s *memStore) seedUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleGuest
	}
	u.CreatedAt = s.tick()
	s.users[u.ID] = copyUser(u)
	return u
}

func (s *memStore) photoCount(galleryID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.galleries[galleryID]; ok {
		return g.PhotoCount
	}
	return -1
}

func (s *memStore) mediaRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.media)
}

// users

type memUsers struct{ s *memStore }

func (r memUsers) Upsert(_ context.Context, user *models.User) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TelegramID == user.TelegramID {
			u.FirstName, u.LastName, u.Username, u.Role = user.FirstName, user.LastName, user.Username, user.Role
			if u.Role == models.RoleAdmin {
				u.ApprovalStatus = models.ApprovalApproved
			}
			u.UpdatedAt = s.tick()
			return copyUser(u), nil
		}
	}
	u := copyUser(user)
	u.ID = uuid.NewString()
	if u.Role == models.RoleAdmin {
		u.ApprovalStatus = models.ApprovalApproved
	}
	u.CreatedAt = s.tick()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return copyUser(u), nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r memUsers) MarkPending(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ApprovalStatus != models.ApprovalUnset {
		return false, nil
	}
	now := r.s.tick()
	u.ApprovalStatus = models.ApprovalPending
	u.RequestedAt = &now
	return true, nil
}

func (r memUsers) Resolve(_ context.Context, id string, status models.ApprovalStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.ApprovalStatus != models.ApprovalPending {
		return false, nil
	}
	now := r.s.tick()
	u.ApprovalStatus = status
	u.ResolvedAt = &now
	return true, nil
}

func (r memUsers) ListRequests(_ context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.Role == models.RoleGuest && u.ApprovalStatus != models.ApprovalUnset {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].RequestedAt, out[j].RequestedAt
		return a != nil && (b == nil || a.After(*b))
	})
	return out, nil
}

// rsvps

type memRSVPs struct{ s *memStore }

func (r memRSVPs) Upsert(_ context.Context, in *models.RSVP) (*models.RSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.tick()
	c := *in
	if prev, ok := r.s.rsvps[in.UserID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.s.rsvps[in.UserID] = &c
	out := c
	return &out, nil
}

func (r memRSVPs) GetByUserID(_ context.Context, userID string) (*models.RSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.rsvps[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *v
	return &out, nil
}

func (r memRSVPs) ListWithGuests(_ context.Context) ([]*models.GuestRSVP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.GuestRSVP
	for _, v := range r.s.rsvps {
		name := rsvps.UnknownGuest
		if u, ok := r.s.users[v.UserID]; ok {
			name = u.DisplayName()
		}
		out = append(out, &models.GuestRSVP{RSVP: *v, Guest: name})
	}
	return out, nil
}

func (r memRSVPs) Stats(_ context.Context) (*models.RSVPStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := &models.RSVPStats{}
	for _, v := range r.s.rsvps {
		switch v.Status {
		case models.RSVPAttending:
			st.Attending++
			st.TotalGuests += v.GuestCount
		case models.RSVPNotAttending:
			st.NotAttending++
		case models.RSVPMaybe:
			st.Maybe++
		}
	}
	return st, nil
}

// galleries

type memGalleries struct{ s *memStore }

func (r memGalleries) GetByID(_ context.Context, id string) (*models.Gallery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.galleries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyGallery(g), nil
}

func (r memGalleries) GetByUserID(_ context.Context, userID string) (*models.Gallery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.galleries {
		if g.UserID == userID {
			return copyGallery(g), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memGalleries) CreateIfAbsent(ctx context.Context, in *models.Gallery) (*models.Gallery, error) {
	r.s.mu.Lock()
	exists := false
	for _, g := range r.s.galleries {
		if g.UserID == in.UserID {
			exists = true
			break
		}
	}
	if !exists {
		g := copyGallery(in)
		g.ID = uuid.NewString()
		g.PhotoCount = 0
		g.CreatedAt = r.s.tick()
		g.UpdatedAt = g.CreatedAt
		r.s.galleries[g.ID] = g
	}
	r.s.mu.Unlock()
	return r.GetByUserID(ctx, in.UserID)
}

func (r memGalleries) List(_ context.Context) ([]*models.Gallery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Gallery
	for _, g := range r.s.galleries {
		out = append(out, copyGallery(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r memGalleries) AdjustPhotoCount(_ context.Context, id string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.galleries[id]
	if !ok {
		return common.ErrorNotFound
	}
	g.PhotoCount = max(g.PhotoCount+delta, 0)
	g.UpdatedAt = r.s.tick()
	return nil
}

func (r memGalleries) ResetCover(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.galleries[id]
	if !ok {
		return common.ErrorNotFound
	}
	var oldest *models.Media
	for _, m := range r.s.media {
		if m.GalleryID == id && m.Type == models.MediaPhoto && (oldest == nil || m.UploadedAt.Before(oldest.UploadedAt)) {
			oldest = m
		}
	}
	g.CoverPhotoURL = ""
	if oldest != nil {
		g.CoverPhotoURL = oldest.ThumbnailURL
	}
	return nil
}

// media

type memMedia struct{ s *memStore }

func (r memMedia) Create(_ context.Context, in *models.Media) (*models.Media, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMediaCreate != nil {
		return nil, r.s.failMediaCreate
	}
	m := copyMedia(in)
	m.ID = uuid.NewString()
	m.UploadedAt = r.s.tick()
	r.s.media[m.ID] = m
	return copyMedia(m), nil
}

func (r memMedia) GetByID(_ context.Context, id string) (*models.Media, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.media[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyMedia(m), nil
}

func (r memMedia) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.media[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.media, id)
	return nil
}

func (r memMedia) CountByGallery(_ context.Context, galleryID string, kind models.MediaType) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.media {
		if m.GalleryID == galleryID && m.Type == kind {
			n++
		}
	}
	return n, nil
}

func (r memMedia) newest(galleryID string, kind models.MediaType) []*models.Media {
	out := []*models.Media{}
	for _, m := range r.s.media {
		if m.GalleryID == galleryID && m.Type == kind {
			out = append(out, copyMedia(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func (r memMedia) ListByGallery(_ context.Context, galleryID string, kind models.MediaType) ([]*models.Media, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.newest(galleryID, kind), nil
}

func (r memMedia) ListPreviews(_ context.Context, kind models.MediaType, perGallery int) (map[string][]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string][]string{}
	for id := range r.s.galleries {
		for i, m := range r.newest(id, kind) {
			if i == perGallery {
				break
			}
			out[id] = append(out[id], m.ThumbnailURL)
		}
	}
	return out, nil
}

// memRepoManager hands out views over one memStore regardless of the
// DBTX it is given.
type memRepoManager struct{ s *memStore }

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(dbx.DBTX) users.Repository            { return memUsers{m.s} }
func (m *memRepoManager) RSVPs(dbx.DBTX) rsvps.Repository            { return memRSVPs{m.s} }
func (m *memRepoManager) Galleries(dbx.DBTX) galleries.Repository    { return memGalleries{m.s} }
func (m *memRepoManager) Media(dbx.DBTX) media.Repository            { return memMedia{m.s} }

// passTx runs the unit of work without a transaction.
type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn dbx.TxFunc) error { return fn(ctx, nil) }

// fakeProvider records calls. beforeUpload, when set, runs inside Upload.
type fakeProvider struct {
	mu           sync.Mutex
	uploads      int
	deleted      []string
	uploadErr    error
	deleteErr    error
	beforeUpload func(ctx context.Context) error
}

func (p *fakeProvider) Upload(ctx context.Context, _ []byte, opts storage.UploadOptions) (*storage.UploadResult, error) {
	if p.beforeUpload != nil {
		if err := p.beforeUpload(ctx); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploadErr != nil {
		return nil, p.uploadErr
	}
	p.uploads++
	id := opts.Folder + "/" + uuid.NewString()
	return &storage.UploadResult{
		CloudID:      id,
		URL:          "https://cdn.test/" + id,
		ThumbnailURL: "https://cdn.test/thumb/" + id,
	}, nil
}

func (p *fakeProvider) Delete(_ context.Context, cloudID string, _ storage.DeleteOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, cloudID)
	return nil
}

func (p *fakeProvider) Thumbnail(cloudID string, _ storage.ThumbnailOptions) (string, error) {
	return "https://cdn.test/thumb/" + cloudID, nil
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) uploadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploads
}

// recPublisher remembers published routing keys.
type recPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recPublisher) Close() error { return nil }

func (p *recPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// fakeVerifier accepts any payload present in its table.
type fakeVerifier map[string]*telegram.InitData

func (v fakeVerifier) Verify(raw string) (*telegram.InitData, error) {
	d, ok := v[raw]
	if !ok {
		return nil, telegram.ErrHashMismatch
	}
	return d, nil
}

var errBoom = errors.New("boom")
