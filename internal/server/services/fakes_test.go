package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/createsomethingtoday/identity/internal/common"
	"github.com/createsomethingtoday/identity/internal/dbx"
	"github.com/createsomethingtoday/identity/internal/server/models"
	"github.com/createsomethingtoday/identity/internal/server/repositories/refreshtokens"
	"github.com/createsomethingtoday/identity/internal/server/repositories/signingkeys"
	"github.com/createsomethingtoday/identity/internal/server/repositories/users"
)

// In-memory repositories. They ignore the DBTX handle, so the service can
// run against a sqlmock DB that only has to satisfy Begin/Commit.

type memUsersRepo struct {
	mu   sync.Mutex
	rows map[string]*models.User // by id
	seq  int
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{rows: map[string]*models.User{}}
}

func (f *memUsersRepo) add(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.rows[cp.ID] = &cp
	return &cp
}

func (f *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	cp := *u
	cp.ID = fmt.Sprintf("u%d", f.seq)
	cp.CreatedAt = time.Now()
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *memUsersRepo) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memRefreshRepo struct {
	mu   sync.Mutex
	rows map[string]*models.RefreshToken // by id
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{rows: map[string]*models.RefreshToken{}}
}

func (f *memRefreshRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	cp.CreatedAt = time.Now()
	f.rows[cp.ID] = &cp
	return nil
}

func (f *memRefreshRepo) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.TokenHash == hash {
			cp := *t
			if t.RevokedAt != nil {
				rv := *t.RevokedAt
				cp.RevokedAt = &rv
			}
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memRefreshRepo) Consume(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	now := time.Now()
	t.RevokedAt = &now
	return true, nil
}

func (f *memRefreshRepo) Revoke(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.rows[id]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (f *memRefreshRepo) RevokeFamily(ctx context.Context, familyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, t := range f.rows {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			rv := now
			t.RevokedAt = &rv
		}
	}
	return nil
}

func (f *memRefreshRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, t := range f.rows {
		if t.UserID == userID && t.RevokedAt == nil {
			rv := now
			t.RevokedAt = &rv
		}
	}
	return nil
}

// usable counts rows still presentable for rotation.
func (f *memRefreshRepo) usable() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.rows {
		if t.Usable(time.Now()) {
			n++
		}
	}
	return n
}

type memKeysRepo struct {
	mu   sync.Mutex
	rows []*models.SigningKey
}

func newMemKeysRepo() *memKeysRepo {
	return &memKeysRepo{}
}

func (f *memKeysRepo) Create(ctx context.Context, key *models.SigningKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.rows {
		if k.IsActive {
			return false, nil
		}
	}
	cp := *key
	cp.CreatedAt = time.Now()
	f.rows = append(f.rows, &cp)
	return true, nil
}

func (f *memKeysRepo) GetActive(ctx context.Context) (*models.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.rows {
		if k.IsActive {
			cp := *k
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memKeysRepo) GetAll(ctx context.Context) ([]*models.SigningKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SigningKey, 0, len(f.rows))
	for _, k := range f.rows {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (f *memKeysRepo) Retire(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.rows {
		if k.ID == id {
			k.IsActive = false
		}
	}
	return nil
}

// fakeRepoManager hands out the in-memory repos regardless of the DB handle.
type fakeRepoManager struct {
	users   *memUsersRepo
	refresh *memRefreshRepo
	keys    *memKeysRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:   newMemUsersRepo(),
		refresh: newMemRefreshRepo(),
		keys:    newMemKeysRepo(),
	}
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (f *fakeRepoManager) Users(db dbx.DBTX) users.Repository { return f.users }

func (f *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return f.refresh }

func (f *fakeRepoManager) SigningKeys(db dbx.DBTX) signingkeys.Repository { return f.keys }
