package storage

import (
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	complaintsCollection = "complaints"
	feedbackCollection   = "feedback"
	managersCollection   = "managers"
)

// MongoStore keeps complaints, feedback and managers as documents. Replies
// are embedded in their feedback document.
type MongoStore struct {
	client     *mongo.Client
	complaints *mongo.Collection
	feedback   *mongo.Collection
	managers   *mongo.Collection
}

// ConnectMongo connects to MongoDB, pings it and returns a store bound to database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	var result bson.M
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logging.Info().Str("database", database).Msg("connected to MongoDB")

	s := NewMongoStore(client.Database(database))
	s.client = client
	return s, nil
}

// NewMongoStore wraps an existing database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:     db.Client(),
		complaints: db.Collection(complaintsCollection),
		feedback:   db.Collection(feedbackCollection),
		managers:   db.Collection(managersCollection),
	}
}

// EnsureIndexes creates the unique and sort indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.complaints.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "referenceId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer.email", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create complaint indexes: %w", err)
	}
	if _, err := s.feedback.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create feedback indexes: %w", err)
	}
	if _, err := s.managers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create manager indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	c.AssignID()
	stampCreated(&c.CreatedAt, &c.UpdatedAt)
	if _, err := s.complaints.InsertOne(ctx, c); err != nil {
		return mongoWriteErr("insert complaint", err)
	}
	return nil
}

func (s *MongoStore) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.complaints.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, mongoReadErr("find complaint", err)
	}
	return &c, nil
}

func (s *MongoStore) GetComplaintByReference(ctx context.Context, referenceID string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.complaints.FindOne(ctx, bson.M{"referenceId": referenceID}).Decode(&c); err != nil {
		return nil, mongoReadErr("find complaint by reference", err)
	}
	return &c, nil
}

func (s *MongoStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	query := bson.M{}
	if filter.Email != "" {
		query["customer.email"] = filter.Email
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.complaints.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Complaint, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode complaints: %w", err)
	}
	return out, nil
}

func (s *MongoStore) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	old := c.Version
	c.Version = old + 1
	if err := s.replaceVersioned(ctx, s.complaints, c.ID, old, c); err != nil {
		c.Version = old
		return err
	}
	return nil
}

func (s *MongoStore) DeleteComplaint(ctx context.Context, id string) error {
	return deleteByID(ctx, s.complaints, id)
}

func (s *MongoStore) SaveFeedback(ctx context.Context, f *models.Feedback) error {
	f.AssignID()
	stampCreated(&f.CreatedAt, &f.UpdatedAt)
	if f.Replies == nil {
		f.Replies = []models.Reply{}
	}
	if _, err := s.feedback.InsertOne(ctx, f); err != nil {
		return mongoWriteErr("insert feedback", err)
	}
	return nil
}

func (s *MongoStore) GetFeedbackByID(ctx context.Context, id string) (*models.Feedback, error) {
	var f models.Feedback
	if err := s.feedback.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, mongoReadErr("find feedback", err)
	}
	return &f, nil
}

func (s *MongoStore) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.feedback.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Feedback, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	return out, nil
}

func (s *MongoStore) UpdateFeedback(ctx context.Context, f *models.Feedback) error {
	old := f.Version
	f.Version = old + 1
	if err := s.replaceVersioned(ctx, s.feedback, f.ID, old, f); err != nil {
		f.Version = old
		return err
	}
	return nil
}

func (s *MongoStore) DeleteFeedback(ctx context.Context, id string) error {
	return deleteByID(ctx, s.feedback, id)
}

func (s *MongoStore) SaveManager(ctx context.Context, m *models.Manager) error {
	m.AssignID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.managers.InsertOne(ctx, m); err != nil {
		return mongoWriteErr("insert manager", err)
	}
	return nil
}

func (s *MongoStore) GetManagerByEmail(ctx context.Context, email string) (*models.Manager, error) {
	var m models.Manager
	if err := s.managers.FindOne(ctx, bson.M{"email": email}).Decode(&m); err != nil {
		return nil, mongoReadErr("find manager", err)
	}
	return &m, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// replaceVersioned swaps the document only if its stored version equals old.
func (s *MongoStore) replaceVersioned(ctx context.Context, coll *mongo.Collection, id string, old int64, doc any) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": old}, doc)
	if err != nil {
		return mongoWriteErr("replace "+coll.Name(), err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check %s existence: %w", coll.Name(), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mongoReadErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func mongoWriteErr(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func stampCreated(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
