package matching

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

const reportsCollection = "disease_reports"

type reportDoc struct {
	ID                string    `bson:"_id"`
	Email             string    `bson:"email"`
	DiseaseName       string    `bson:"disease_name"`
	Organ             string    `bson:"organ"`
	Specialization    string    `bson:"specialization"`
	SpecializationKey string    `bson:"specialization_key"`
	Description       string    `bson:"description"`
	MatchedDoctorID   *string   `bson:"matched_doctor_id,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
}

func toReportDoc(r *Report) reportDoc {
	doc := reportDoc{
		ID: r.ID.String(), Email: r.Email, DiseaseName: r.DiseaseName, Organ: r.Organ,
		Specialization: r.Specialization, SpecializationKey: r.SpecializationKey,
		Description: r.Description, CreatedAt: r.CreatedAt,
	}
	if r.MatchedDoctorID != nil {
		s := r.MatchedDoctorID.String()
		doc.MatchedDoctorID = &s
	}
	return doc
}

func (doc reportDoc) toReport() (*Report, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("report document %q: %w", doc.ID, err)
	}
	r := &Report{
		ID: id, Email: doc.Email, DiseaseName: doc.DiseaseName, Organ: doc.Organ,
		Specialization: doc.Specialization, SpecializationKey: doc.SpecializationKey,
		Description: doc.Description, CreatedAt: doc.CreatedAt.UTC(),
	}
	if doc.MatchedDoctorID != nil {
		did, err := uuid.Parse(*doc.MatchedDoctorID)
		if err != nil {
			return nil, fmt.Errorf("report %s matched doctor: %w", doc.ID, err)
		}
		r.MatchedDoctorID = &did
	}
	return r, nil
}

type reportRepoMongo struct {
	coll *mongo.Collection
}

func NewReportRepoMongo(database *mongo.Database) ReportRepository {
	return &reportRepoMongo{coll: database.Collection(reportsCollection)}
}

// EnsureReportIndexes creates the email history index.
func EnsureReportIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(reportsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "specialization_key", Value: 1}, {Key: "matched_doctor_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create report indexes: %w", err)
	}
	return nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *reportRepoMongo) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	_, err := r.coll.InsertOne(ctx, toReportDoc(rep))
	return err
}

func (r *reportRepoMongo) LatestByEmail(ctx context.Context, email string) (*Report, error) {
	var doc reportDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}, options.FindOne().SetSort(newestFirst)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toReport()
}

func (r *reportRepoMongo) ListByEmail(ctx context.Context, email string, limit, offset int) ([]*Report, int, error) {
	filter := bson.M{"email": email}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(newestFirst).
		SetLimit(int64(limit)).
		SetSkip(int64(offset)))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []reportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	reports := make([]*Report, 0, len(docs))
	for _, doc := range docs {
		rep, err := doc.toReport()
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, int(total), nil
}

func (r *reportRepoMongo) AttachUnmatched(ctx context.Context, specializationKey string, doctorID uuid.UUID) (int, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"specialization_key": specializationKey, "matched_doctor_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"matched_doctor_id": doctorID.String()}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (r *reportRepoMongo) StatsBySpecialization(ctx context.Context) ([]SpecializationStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$specialization"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "matched", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$matched_doctor_id", false}}}, 1, 0,
				}},
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Specialization string `bson:"_id"`
		Total          int    `bson:"total"`
		Matched        int    `bson:"matched"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := make([]SpecializationStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, SpecializationStats{
			Specialization: row.Specialization,
			Total:          row.Total,
			Matched:        row.Matched,
			Unmatched:      row.Total - row.Matched,
		})
	}
	return stats, nil
}
