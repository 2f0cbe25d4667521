package db

import (
	"context"
	"regexp"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, u)
	return translate(err, "users.insert")
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, translate(err, "users.findByID")
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, translate(err, "users.findByEmail")
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return findAll[models.User](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, nil, "users.findByIDs")
}

func (r *UserRepository) List(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.User](ctx, r.coll, userQuery(f), opts, "users.list")
}

func (r *UserRepository) Count(ctx context.Context, f models.UserFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, userQuery(f))
	return n, translate(err, "users.count")
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translate(err, "users.update")
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments, "users.update")
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "users.delete")
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "users.delete")
	}
	return nil
}

func userQuery(f models.UserFilter) bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		q["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}
	return q
}
