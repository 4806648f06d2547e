package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

const (
	usersCollection = "users"

	emailIndex       = "uniq_email"
	usernameIndex    = "uniq_username"
	duplicateKeyCode = 11000
)

// withoutHash keeps password_hash off every read that did not ask for it.
var withoutHash = bson.M{"password_hash": 0}

// UserRepository implements ports.UserRepository on MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Email           string             `bson:"email"`
	Username        string             `bson:"username"`
	DisplayName     string             `bson:"display_name"`
	PasswordHash    string             `bson:"password_hash"`
	Role            string             `bson:"role"`
	IsActive        bool               `bson:"is_active"`
	ProfileImageURL string             `bson:"profile_image_url,omitempty"`
	Bio             string             `bson:"bio,omitempty"`
	Reason          string             `bson:"reason,omitempty"`
	LastLoginAt     *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:              m.ID.Hex(),
		Email:           m.Email,
		Username:        m.Username,
		DisplayName:     m.DisplayName,
		PasswordHash:    m.PasswordHash,
		Role:            domain.Role(m.Role),
		IsActive:        m.IsActive,
		ProfileImageURL: m.ProfileImageURL,
		Bio:             m.Bio,
		Reason:          m.Reason,
		LastLoginAt:     utcPtr(m.LastLoginAt),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique identity indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		Email:           domain.NormalizeEmail(u.Email),
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		PasswordHash:    u.PasswordHash,
		Role:            string(u.Role),
		IsActive:        u.IsActive,
		ProfileImageURL: u.ProfileImageURL,
		Bio:             u.Bio,
		Reason:          u.Reason,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateField(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	doc.ID, _ = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

// duplicateField picks the sentinel naming the unique index that collided.
// The index name is read from the server's write error rather than from the
// whole message, since the duplicated value itself is echoed there too.
func duplicateField(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code != duplicateKeyCode {
				continue
			}
			switch duplicateIndex(e.Message) {
			case usernameIndex:
				return domain.ErrUsernameTaken
			case emailIndex:
				return domain.ErrEmailTaken
			}
		}
	}
	return fmt.Errorf("%w: duplicate identity", domain.ErrConflict)
}

// duplicateIndex extracts the index name from an E11000 message of the form
// "... index: <name> dup key: {...}".
func duplicateIndex(msg string) string {
	_, rest, ok := strings.Cut(msg, " index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

func (r *UserRepository) FindByID(ctx context.Context, id string, withHash bool) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, withHash)
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string, withHash bool) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": domain.NormalizeEmail(login)},
		bson.M{"username": strings.TrimSpace(login)},
	}}, withHash)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, withHash bool) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne()
	if !withHash {
		opts.SetProjection(withoutHash)
	}

	var doc mongoUser
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = string(f.Role)
	}
	if f.Search != "" {
		filter["$or"] = searchClause(f.Search, "display_name", "username", "email")
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := pageOptions(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}), f.Page, f.Limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	out := make([]*domain.User, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, total, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role, onlyIfPending bool) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	filter := bson.M{"_id": oid}
	if onlyIfPending {
		filter["role"] = string(domain.RolePending)
	}

	user, err := r.findAndSet(ctx, filter, bson.M{"role": string(role)})
	if errors.Is(err, domain.ErrUserNotFound) && onlyIfPending {
		// The conditional filter missed: distinguish a processed account from
		// a missing one.
		if _, findErr := r.FindByID(ctx, id, false); findErr == nil {
			return nil, domain.ErrAlreadyProcessed
		}
	}
	return user, err
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, active bool) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.findAndSet(ctx, bson.M{"_id": oid}, bson.M{"is_active": active})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p ports.ProfileUpdate) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	set := bson.M{}
	if p.DisplayName != nil {
		set["display_name"] = *p.DisplayName
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if p.ProfileImageURL != nil {
		set["profile_image_url"] = *p.ProfileImageURL
	}
	return r.findAndSet(ctx, bson.M{"_id": oid}, set)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrUserNotFound
	}
	_, err := r.findAndSet(ctx, bson.M{"_id": oid}, bson.M{"password_hash": hash})
	return err
}

// TouchLastLogin does not bump updated_at; a login is not a profile change.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string, onlyIfPending bool) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrUserNotFound
	}

	filter := bson.M{"_id": oid}
	if onlyIfPending {
		filter["role"] = string(domain.RolePending)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount > 0 {
		return nil
	}
	if onlyIfPending {
		if _, err := r.FindByID(ctx, id, false); err == nil {
			return domain.ErrAlreadyProcessed
		}
	}
	return domain.ErrUserNotFound
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

// findAndSet applies $set (plus updated_at) and returns the updated record.
func (r *UserRepository) findAndSet(ctx context.Context, filter bson.M, set bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutHash)

	var doc mongoUser
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toDomain(), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
