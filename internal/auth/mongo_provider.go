package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	identitiesCollection = "identities"
	minPasswordLength    = 6
)

type mongoIdentity struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password_hash,omitempty"`
	FederatedProvider string             `bson:"federated_provider,omitempty"`
	FederatedSubject  string             `bson:"federated_subject,omitempty"`
	DisplayName       string             `bson:"display_name,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

func (m *mongoIdentity) toIdentity() *Identity {
	return &Identity{
		ID:          m.ID.Hex(),
		Email:       m.Email,
		DisplayName: m.DisplayName,
	}
}

// MongoProvider implements Provider on top of an identities collection with a
// unique email index. It stands in for the hosted authentication service the
// original site delegated to.
type MongoProvider struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewMongoProvider(db *mongo.Database, logger *zap.Logger) *MongoProvider {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure indexes (idempotent operation)
	coll := db.Collection(identitiesCollection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "federated_provider", Value: 1}, {Key: "federated_subject", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("Failed to create indexes for identities collection (may already exist)", zap.Error(err))
	}

	return &MongoProvider{
		db:     db,
		logger: logger.Named("MongoProvider"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *MongoProvider) CreateIdentity(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		p.logger.Error("Failed to hash password during identity creation", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	now := time.Now()
	doc := &mongoIdentity{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := p.db.Collection(identitiesCollection).InsertOne(ctx, doc); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 {
					p.logger.Warn("Duplicate email during identity creation", zap.String("email", email))
					return nil, ErrEmailInUse
				}
			}
		}
		p.logger.Error("Database error during identity creation", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	p.logger.Info("Identity created", zap.String("identityID", doc.ID.Hex()))
	return doc.toIdentity(), nil
}

func (p *MongoProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)

	var doc mongoIdentity
	err := p.db.Collection(identitiesCollection).FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		p.logger.Error("Database error fetching identity by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	if doc.PasswordHash == "" {
		// Federated-only account, no password set.
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return doc.toIdentity(), nil
}

// SignInFederated resolves a verified federated assertion to an identity,
// creating one on first sign-in. An existing password account with the same
// email is linked rather than duplicated.
func (p *MongoProvider) SignInFederated(ctx context.Context, user FederatedUser) (*Identity, error) {
	email := normalizeEmail(user.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	coll := p.db.Collection(identitiesCollection)
	now := time.Now()

	var doc mongoIdentity
	err := coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == nil {
		update := bson.M{"$set": bson.M{
			"federated_provider": user.Provider,
			"federated_subject":  user.Subject,
			"updated_at":         now,
		}}
		if doc.DisplayName == "" && user.DisplayName != "" {
			update["$set"].(bson.M)["display_name"] = user.DisplayName
			doc.DisplayName = user.DisplayName
		}
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, update); err != nil {
			p.logger.Error("Failed to link federated identity", zap.String("identityID", doc.ID.Hex()), zap.Error(err))
			return nil, err
		}
		return doc.toIdentity(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		p.logger.Error("Database error during federated sign-in", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	doc = mongoIdentity{
		ID:                primitive.NewObjectID(),
		Email:             email,
		FederatedProvider: user.Provider,
		FederatedSubject:  user.Subject,
		DisplayName:       user.DisplayName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := coll.InsertOne(ctx, &doc); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 {
					// Raced with a concurrent creation; read it back.
					if readErr := coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); readErr == nil {
						return doc.toIdentity(), nil
					}
				}
			}
		}
		p.logger.Error("Database error creating federated identity", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	p.logger.Info("Federated identity created", zap.String("identityID", doc.ID.Hex()), zap.String("provider", user.Provider))
	return doc.toIdentity(), nil
}
