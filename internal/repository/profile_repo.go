package repository

import (
	"context"
	"errors"
	"time"

	"github.com/revival-automotive/account-service/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrProfileNotFound = errors.New("profile not found")

const profilesCollection = "profiles"

// ProfileUpdate carries the mutable contact and address fields written by the
// profile-completion and account-edit flows. Address is the derived value and
// must be recomputed by the caller before the update is applied.
type ProfileUpdate struct {
	Name       string
	Phone      string
	Street     string
	Suburb     string
	City       string
	Province   string
	PostalCode string
	Address    string
}

// ProfileStore is the document-store capability for per-user profiles, one
// document per identity id.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (*entity.UserProfile, error)
	Set(ctx context.Context, profile *entity.UserProfile) error
	Update(ctx context.Context, uid string, update ProfileUpdate) error
}

type mongoProfile struct {
	UID        string    `bson:"_id"`
	Name       string    `bson:"name"`
	Email      string    `bson:"email"`
	Phone      string    `bson:"phone"`
	Street     string    `bson:"street"`
	Suburb     string    `bson:"suburb"`
	City       string    `bson:"city"`
	Province   string    `bson:"province"`
	PostalCode string    `bson:"postal_code"`
	Address    string    `bson:"address"`
	Role       string    `bson:"role"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (m *mongoProfile) toEntity() *entity.UserProfile {
	return &entity.UserProfile{
		UID:        m.UID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Street:     m.Street,
		Suburb:     m.Suburb,
		City:       m.City,
		Province:   m.Province,
		PostalCode: m.PostalCode,
		Address:    m.Address,
		Role:       m.Role,
		CreatedAt:  m.CreatedAt,
	}
}

func fromEntity(p *entity.UserProfile) *mongoProfile {
	return &mongoProfile{
		UID:        p.UID,
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Street:     p.Street,
		Suburb:     p.Suburb,
		City:       p.City,
		Province:   p.Province,
		PostalCode: p.PostalCode,
		Address:    p.Address,
		Role:       p.Role,
		CreatedAt:  p.CreatedAt,
	}
}

// ProfileRepository implements ProfileStore on MongoDB.
type ProfileRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewProfileRepository(db *mongo.Database, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger.Named("ProfileRepository"),
	}
}

func (r *ProfileRepository) Get(ctx context.Context, uid string) (*entity.UserProfile, error) {
	r.logger.Debug("Fetching profile", zap.String("uid", uid))
	var doc mongoProfile
	err := r.db.Collection(profilesCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		r.logger.Error("Database error fetching profile", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return doc.toEntity(), nil
}

// Set writes the full profile document, assigning the creation timestamp when
// the caller has not provided one.
func (r *ProfileRepository) Set(ctx context.Context, profile *entity.UserProfile) error {
	r.logger.Info("Persisting profile", zap.String("uid", profile.UID))
	doc := fromEntity(profile)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
		profile.CreatedAt = doc.CreatedAt
	}
	_, err := r.db.Collection(profilesCollection).ReplaceOne(ctx, bson.M{"_id": profile.UID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Database error persisting profile", zap.String("uid", profile.UID), zap.Error(err))
		return err
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, uid string, update ProfileUpdate) error {
	r.logger.Info("Updating profile", zap.String("uid", uid))
	set := bson.M{
		"name":        update.Name,
		"phone":       update.Phone,
		"street":      update.Street,
		"suburb":      update.Suburb,
		"city":        update.City,
		"province":    update.Province,
		"postal_code": update.PostalCode,
		"address":     update.Address,
	}
	result, err := r.db.Collection(profilesCollection).UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Database error updating profile", zap.String("uid", uid), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		r.logger.Warn("Profile not found during update attempt", zap.String("uid", uid))
		return ErrProfileNotFound
	}
	return nil
}
