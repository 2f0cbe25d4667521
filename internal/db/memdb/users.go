package memdb

import (
	"context"
	"strings"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Insert(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.val.Email == u.Email {
			return duplicate("users.insert")
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.db.users[u.ID] = &row[models.User]{seq: r.db.next(), val: *u}
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if u, ok := r.db.users[id]; ok {
		return u.val, nil
	}
	return models.User{}, notFound("users.findByID")
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.val.Email == email {
			return u.val, nil
		}
	}
	return models.User{}, notFound("users.findByEmail")
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			out = append(out, u.val)
		}
	}
	return out, nil
}

func (r *UserRepository) List(_ context.Context, f models.UserFilter) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := query(r.db.users, userMatcher(f), func(a, b *row[models.User]) bool {
		if a.val.Name != b.val.Name {
			return a.val.Name < b.val.Name
		}
		return a.seq < b.seq
	})
	out := make([]models.User, len(rows))
	for i, u := range rows {
		out[i] = u.val
	}
	return out, nil
}

func (r *UserRepository) Count(_ context.Context, f models.UserFilter) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(query(r.db.users, userMatcher(f), nil))), nil
}

func (r *UserRepository) Update(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.users[u.ID]
	if !ok {
		return notFound("users.update")
	}
	for id, other := range r.db.users {
		if id != u.ID && other.val.Email == u.Email {
			return duplicate("users.update")
		}
	}
	existing.val = *u
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return notFound("users.delete")
	}
	delete(r.db.users, id)
	return nil
}

func userMatcher(f models.UserFilter) func(models.User) bool {
	q := strings.ToLower(f.Query)
	return func(u models.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			return false
		}
		return true
	}
}
