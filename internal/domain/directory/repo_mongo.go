package directory

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

const doctorsCollection = "doctors"

// doctorDoc is the stored document. IDs are kept as strings so documents
// stay readable in the shell.
type doctorDoc struct {
	ID                       string    `bson:"_id"`
	FullName                 string    `bson:"full_name"`
	Email                    string    `bson:"email"`
	Phone                    string    `bson:"phone"`
	Specialization           string    `bson:"specialization"`
	SpecializationKey        string    `bson:"specialization_key"`
	Experience               int       `bson:"experience"`
	AvailableFrom            int       `bson:"available_from"`
	AvailableTo              int       `bson:"available_to"`
	ApprovalStatus           string    `bson:"approval_status"`
	IsOnline                 bool      `bson:"is_online"`
	LastAvailabilityUpdateAt time.Time `bson:"last_availability_update_at"`
	CreatedAt                time.Time `bson:"created_at"`
	UpdatedAt                time.Time `bson:"updated_at"`
}

func toDoctorDoc(d *Doctor) doctorDoc {
	return doctorDoc{
		ID: d.ID.String(), FullName: d.FullName, Email: d.Email, Phone: d.Phone,
		Specialization: d.Specialization, SpecializationKey: d.SpecializationKey,
		Experience: d.Experience, AvailableFrom: d.AvailableFrom, AvailableTo: d.AvailableTo,
		ApprovalStatus: d.ApprovalStatus, IsOnline: d.IsOnline,
		LastAvailabilityUpdateAt: d.LastAvailabilityUpdateAt,
		CreatedAt:                d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func (doc doctorDoc) toDoctor() (*Doctor, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("doctor document %q: %w", doc.ID, err)
	}
	return &Doctor{
		ID: id, FullName: doc.FullName, Email: doc.Email, Phone: doc.Phone,
		Specialization: doc.Specialization, SpecializationKey: doc.SpecializationKey,
		Experience: doc.Experience, AvailableFrom: doc.AvailableFrom, AvailableTo: doc.AvailableTo,
		ApprovalStatus: doc.ApprovalStatus, IsOnline: doc.IsOnline,
		LastAvailabilityUpdateAt: doc.LastAvailabilityUpdateAt.UTC(),
		CreatedAt:                doc.CreatedAt.UTC(), UpdatedAt: doc.UpdatedAt.UTC(),
	}, nil
}

type doctorRepoMongo struct {
	coll *mongo.Collection
}

func NewDoctorRepoMongo(database *mongo.Database) DoctorRepository {
	return &doctorRepoMongo{coll: database.Collection(doctorsCollection)}
}

// EnsureDoctorIndexes creates the unique and lookup indexes the repository
// relies on.
func EnsureDoctorIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(doctorsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{
			{Key: "specialization_key", Value: 1},
			{Key: "approval_status", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		}},
	})
	if err != nil {
		return fmt.Errorf("create doctor indexes: %w", err)
	}
	return nil
}

func (r *doctorRepoMongo) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	d.CreatedAt, d.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, toDoctorDoc(d)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *doctorRepoMongo) findOne(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOneOptions]) (*Doctor, error) {
	var doc doctorDoc
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDoctor()
}

func (r *doctorRepoMongo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *doctorRepoMongo) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *doctorRepoMongo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"phone": phone},
	}}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *doctorRepoMongo) FindBySpecialization(ctx context.Context, specializationKey string) (*Doctor, error) {
	return r.findOne(ctx,
		bson.M{"specialization_key": specializationKey, "approval_status": StatusApproved},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
}

func (r *doctorRepoMongo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Doctor, int, error) {
	q := bson.M{}
	if filter.SpecializationKey != "" {
		q["specialization_key"] = filter.SpecializationKey
	}
	if filter.ApprovalStatus != "" {
		q["approval_status"] = filter.ApprovalStatus
	}

	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cursor, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []doctorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	doctors := make([]*Doctor, 0, len(docs))
	for _, doc := range docs {
		d, err := doc.toDoctor()
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, int(total), nil
}

func (r *doctorRepoMongo) updateByID(ctx context.Context, id uuid.UUID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoMongo) Update(ctx context.Context, d *Doctor) error {
	return r.updateByID(ctx, d.ID, bson.M{
		"full_name":          d.FullName,
		"phone":              d.Phone,
		"specialization":     d.Specialization,
		"specialization_key": d.SpecializationKey,
		"experience":         d.Experience,
		"available_from":     d.AvailableFrom,
		"available_to":       d.AvailableTo,
	})
}

func (r *doctorRepoMongo) SetAvailability(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"is_online":                   online,
		"last_availability_update_at": at,
	})
}

func (r *doctorRepoMongo) ResetAvailabilityIfStale(ctx context.Context, id uuid.UUID, seen, now time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "last_availability_update_at": seen},
		bson.M{"$set": bson.M{
			"is_online":                   true,
			"last_availability_update_at": now,
			"updated_at":                  time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *doctorRepoMongo) SetApprovalStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.updateByID(ctx, id, bson.M{"approval_status": status})
}

func (r *doctorRepoMongo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
