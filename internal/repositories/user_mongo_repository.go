package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"userapi/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository stores users as documents in a MongoDB collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a repository over coll.
func NewMongoUserRepository(coll *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{coll: coll}
}

// EnsureIndexes creates the unique email index.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}
	return nil
}

// Create inserts a new user document.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Tokens == nil {
		user.Tokens = []models.Token{}
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID finds a user by _id.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail finds a user by email.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user %v: %w", filter, err)
	}
	return &user, nil
}

// GetAll returns every user document ordered by creation time.
func (r *MongoUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// Save sets the profile and avatar fields of user. The token list is
// only changed through the token operations.
func (r *MongoUserRepository) Save(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":      user.Name,
			"email":     user.Email,
			"password":  user.Password,
			"age":       user.Age,
			"updatedAt": user.UpdatedAt,
		},
	}
	if len(user.Avatar) > 0 {
		update["$set"].(bson.M)["avatar"] = user.Avatar
	} else {
		update["$unset"] = bson.M{"avatar": ""}
	}
	res, err := r.coll.UpdateByID(ctx, user.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddToken pushes token onto the stored sessions of user id.
func (r *MongoUserRepository) AddToken(ctx context.Context, id, token string) error {
	return r.updateTokens(ctx, id, bson.M{
		"$push": bson.M{"tokens": models.Token{Token: token}},
	})
}

// RemoveToken pulls token from the stored sessions of user id.
func (r *MongoUserRepository) RemoveToken(ctx context.Context, id, token string) error {
	return r.updateTokens(ctx, id, bson.M{
		"$pull": bson.M{"tokens": bson.M{"token": token}},
	})
}

// ClearTokens empties the stored sessions of user id.
func (r *MongoUserRepository) ClearTokens(ctx context.Context, id string) error {
	return r.updateTokens(ctx, id, bson.M{
		"$set": bson.M{"tokens": []models.Token{}},
	})
}

func (r *MongoUserRepository) updateTokens(ctx context.Context, id string, update bson.M) error {
	stamp := bson.M{"updatedAt": time.Now().UTC()}
	if set, ok := update["$set"].(bson.M); ok {
		for k, v := range stamp {
			set[k] = v
		}
	} else {
		update["$set"] = stamp
	}
	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to update tokens of user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the user document.
func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
