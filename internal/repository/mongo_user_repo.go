package repository

import (
	"account-service/internal/core"
	"account-service/internal/models"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const usersCollection = "users"

// userDocument is the BSON shape of a user in the users collection.
type userDocument struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email"`
	Password            string             `bson:"password"`
	FirstName           string             `bson:"firstName,omitempty"`
	LastName            string             `bson:"lastName,omitempty"`
	Image               string             `bson:"image,omitempty"`
	Role                string             `bson:"role"`
	ResetPasswordToken  *string            `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpiry *time.Time         `bson:"resetPasswordExpiry,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"`
}

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

var _ core.UserRepository = (*MongoUserRepository)(nil)

// EnsureIndexes creates the unique indexes that back email/username uniqueness.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(EmailIndexName),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsernameIndexName),
		},
		{
			Keys:    bson.D{{Key: "resetPasswordToken", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("users_reset_token_idx"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("users_created_at_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// --- Auth & Basic ---

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	doc := fromModel(user)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return classifyMongoError(err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed id can never match a record.
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// --- User Management ---

func (r *MongoUserRepository) Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.FirstName != nil {
		set["firstName"] = *update.FirstName
	}
	if update.LastName != nil {
		set["lastName"] = *update.LastName
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.PasswordHash != nil {
		set["password"] = *update.PasswordHash
	}
	if update.Image != nil {
		set["image"] = *update.Image
	}
	if update.Role != nil {
		set["role"] = string(*update.Role)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, classifyMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) List(ctx context.Context, q models.ListQuery) ([]models.User, int64, error) {
	filter := buildSearchFilter(q.Search)
	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	var (
		docs  []userDocument
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cursor, err := r.coll.Find(gctx, filter, findOpts)
		if err != nil {
			return err
		}
		defer cursor.Close(gctx)
		return cursor.All(gctx, &docs)
	})
	g.Go(func() error {
		var err error
		total, err = r.coll.CountDocuments(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toModel())
	}
	return users, total, nil
}

// --- Password reset ---

func (r *MongoUserRepository) SetResetToken(ctx context.Context, id, tokenDigest string, expiry time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"resetPasswordToken":  tokenDigest,
		"resetPasswordExpiry": expiry.UTC(),
		"updatedAt":           time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) GetByResetToken(ctx context.Context, tokenDigest string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"resetPasswordToken": tokenDigest})
}

func (r *MongoUserRepository) ResetPassword(ctx context.Context, id, tokenDigest, passwordHash string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	filter := bson.M{"_id": objID, "resetPasswordToken": tokenDigest}
	update := bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpiry": ""},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

// --- helpers ---

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// buildSearchFilter matches search as a case-insensitive substring of any
// of the four searchable fields. Regex metacharacters are matched literally.
func buildSearchFilter(search string) bson.M {
	search = strings.TrimSpace(search)
	if search == "" {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"firstName": pattern},
		bson.M{"lastName": pattern},
		bson.M{"email": pattern},
		bson.M{"username": pattern},
	}}
}

func classifyMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	field := "email"
	if strings.Contains(err.Error(), UsernameIndexName) {
		field = "username"
	}
	return &DuplicateKeyError{Field: field, Err: err}
}

func fromModel(u *models.User) userDocument {
	doc := userDocument{
		Username:            u.Username,
		Email:               u.Email,
		Password:            u.PasswordHash,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Image:               u.Image,
		Role:                string(u.Role),
		ResetPasswordToken:  u.ResetPasswordToken,
		ResetPasswordExpiry: u.ResetPasswordExpiry,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
	if objID, err := primitive.ObjectIDFromHex(u.ID); err == nil {
		doc.ID = objID
	}
	return doc
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:                  d.ID.Hex(),
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.Password,
		FirstName:           d.FirstName,
		LastName:            d.LastName,
		Image:               d.Image,
		Role:                models.Role(d.Role),
		ResetPasswordToken:  d.ResetPasswordToken,
		ResetPasswordExpiry: d.ResetPasswordExpiry,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}
