package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const accountsCollection = "accounts"

type accountDoc struct {
	ID            string    `bson:"_id"`
	FullName      string    `bson:"full_name"`
	Email         string    `bson:"email"`
	Phone         string    `bson:"phone"`
	PasswordHash  string    `bson:"password_hash"`
	Role          string    `bson:"role"`
	DoctorID      *string   `bson:"doctor_id,omitempty"`
	PhoneVerified bool      `bson:"phone_verified"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toAccountDoc(a *Account) accountDoc {
	doc := accountDoc{
		ID: a.ID.String(), FullName: a.FullName, Email: a.Email, Phone: a.Phone,
		PasswordHash: a.PasswordHash, Role: a.Role, PhoneVerified: a.PhoneVerified,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
	if a.DoctorID != nil {
		s := a.DoctorID.String()
		doc.DoctorID = &s
	}
	return doc
}

func (doc accountDoc) toAccount() (*Account, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("account document %q: %w", doc.ID, err)
	}
	a := &Account{
		ID: id, FullName: doc.FullName, Email: doc.Email, Phone: doc.Phone,
		PasswordHash: doc.PasswordHash, Role: doc.Role, PhoneVerified: doc.PhoneVerified,
		CreatedAt: doc.CreatedAt.UTC(), UpdatedAt: doc.UpdatedAt.UTC(),
	}
	if doc.DoctorID != nil {
		did, err := uuid.Parse(*doc.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("account %s doctor_id: %w", doc.ID, err)
		}
		a.DoctorID = &did
	}
	return a, nil
}

type accountRepoMongo struct {
	coll *mongo.Collection
}

func NewAccountRepoMongo(database *mongo.Database) AccountRepository {
	return &accountRepoMongo{coll: database.Collection(accountsCollection)}
}

func EnsureAccountIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(accountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

func (r *accountRepoMongo) Create(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	a.CreatedAt, a.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, toAccountDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *accountRepoMongo) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var doc accountDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAccount()
}

func (r *accountRepoMongo) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *accountRepoMongo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *accountRepoMongo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *accountRepoMongo) MarkPhoneVerified(ctx context.Context, phones []string) (int, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"phone": bson.M{"$in": phones}, "phone_verified": false},
		bson.M{"$set": bson.M{"phone_verified": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}
