// Package memory is a process local storage driver. It backs the "memory"
// db driver and the service tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/caasmo/notesapi/db"
	"github.com/google/uuid"
)

var _ db.DbApp = (*Db)(nil)

type Db struct {
	mu     sync.RWMutex
	users  map[string]*db.User
	tokens map[string]*db.RefreshToken
	now    func() time.Time
}

func New() *Db {
	return &Db{
		users:  make(map[string]*db.User),
		tokens: make(map[string]*db.RefreshToken),
		now:    time.Now,
	}
}

func (d *Db) Users() db.UserRepository { return (*users)(d) }

func (d *Db) RefreshTokens() db.RefreshTokenRepository { return (*refreshTokens)(d) }

func (d *Db) Close() error { return nil }

type users Db

func (u *users) FindByEmail(_ context.Context, email string) (*db.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	email = strings.ToLower(email)
	for _, user := range u.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, db.ErrNotFound
}

func (u *users) FindByID(_ context.Context, id string) (*db.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyUser(user), nil
}

func (u *users) FindByVerificationToken(_ context.Context, token string) (*db.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if token == "" {
		return nil, db.ErrNotFound
	}
	for _, user := range u.users {
		if user.VerificationToken == token {
			return copyUser(user), nil
		}
	}
	return nil, db.ErrNotFound
}

func (u *users) Create(_ context.Context, user *db.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, existing := range u.users {
		if existing.Email == user.Email {
			return db.ErrConstraintUnique
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := u.now().UTC()
	user.Created, user.Updated = now, now
	u.users[user.ID] = copyUser(user)
	return nil
}

func (u *users) Save(_ context.Context, user *db.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[user.ID]; !ok {
		return db.ErrNotFound
	}
	user.Email = strings.ToLower(user.Email)
	for id, existing := range u.users {
		if id != user.ID && existing.Email == user.Email {
			return db.ErrConstraintUnique
		}
	}
	user.Updated = u.now().UTC()
	saved := copyUser(user)
	saved.Sessions = u.users[user.ID].Sessions
	u.users[user.ID] = saved
	return nil
}

func (u *users) UpsertSession(_ context.Context, userID, device, ip string, now time.Time) (db.Session, error) {
	var s db.Session
	err := u.updateSessions(userID, func(user *db.User) bool {
		s = user.UpsertSession(device, ip, now)
		return true
	})
	return s, err
}

func (u *users) RemoveSession(_ context.Context, userID, device string) (bool, error) {
	var removed bool
	err := u.updateSessions(userID, func(user *db.User) bool {
		removed = user.RemoveSession(device)
		return removed
	})
	return removed, err
}

func (u *users) RemoveSessionByID(_ context.Context, userID, sessionID string) (bool, error) {
	var removed bool
	err := u.updateSessions(userID, func(user *db.User) bool {
		removed = user.RemoveSessionByID(sessionID)
		return removed
	})
	return removed, err
}

// updateSessions edits the stored user in place under the write lock.
func (u *users) updateSessions(userID string, change func(*db.User) bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	if change(user) {
		user.Updated = u.now().UTC()
	}
	return nil
}

func (u *users) Delete(_ context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[id]; !ok {
		return db.ErrNotFound
	}
	delete(u.users, id)
	for k, t := range u.tokens {
		if t.UserID == id {
			delete(u.tokens, k)
		}
	}
	return nil
}

type refreshTokens Db

func (r *refreshTokens) Create(_ context.Context, token *db.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Token]; ok {
		return db.ErrConstraintUnique
	}
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.Created = r.now().UTC()
	t := *token
	r.tokens[token.Token] = &t
	return nil
}

func (r *refreshTokens) FindByToken(_ context.Context, token string) (*db.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, db.ErrNotFound
	}
	found := *t
	return &found, nil
}

func (r *refreshTokens) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *refreshTokens) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *refreshTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.Expired(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func copyUser(u *db.User) *db.User {
	c := *u
	c.Sessions = append([]db.Session(nil), u.Sessions...)
	return &c
}
