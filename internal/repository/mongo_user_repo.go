package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"marketplates/internal/model"
)

const usersCollection = "users"

// MongoUserRepository stores users as documents. Token list and CSRF changes
// use $push, $pull and filtered updates so each one is atomic per document.
type MongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("ensure users indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "find user by id")
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}, "find user by email")
}

func (r *MongoUserRepository) Create(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(u.Email)
	u.Type = nonNil(u.Type)
	u.RefreshTokenList = nonNil(u.RefreshTokenList)

	_, err := r.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("create user: %w", model.ErrUserAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Update(ctx context.Context, u model.User) error {
	return r.updateOne(ctx, bson.M{"_id": u.ID}, bson.M{
		"$set": bson.M{
			"name":      u.Name,
			"password":  u.PasswordHash,
			"type":      nonNil(u.Type),
			"updatedAt": u.UpdatedAt,
		},
	}, "update user")
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete user: %w", model.ErrUserNotFound)
	}
	return nil
}

func (r *MongoUserRepository) AppendRefreshToken(ctx context.Context, userID string, token string) error {
	return r.updateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$push": bson.M{"refreshToken": token},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, "append refresh token")
}

func (r *MongoUserRepository) PullRefreshTokens(ctx context.Context, userID string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.updateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"refreshToken": bson.M{"$in": tokens}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, "pull refresh tokens")
}

func (r *MongoUserRepository) SetCSRF(ctx context.Context, userID string, payload string, iv string) error {
	return r.updateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{
			"csrfToken":    payload,
			"csrfTokenKey": iv,
			"updatedAt":    time.Now().UTC(),
		},
	}, "set csrf")
}

func (r *MongoUserRepository) ConsumeCSRF(ctx context.Context, userID string, payload string) error {
	if payload == "" {
		return fmt.Errorf("consume csrf: %w", model.ErrCSRFNotConsumed)
	}

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "csrfToken": payload},
		bson.M{"$set": bson.M{"csrfToken": "", "csrfTokenKey": "", "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("consume csrf: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("consume csrf: %w", model.ErrCSRFNotConsumed)
	}
	return nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int, error) {
	n, err := r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, op string) (model.User, error) {
	var u model.User
	err := r.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, fmt.Errorf("%s: %w", op, model.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r *MongoUserRepository) updateOne(ctx context.Context, filter bson.M, update bson.M, op string) error {
	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, model.ErrUserNotFound)
	}
	return nil
}
