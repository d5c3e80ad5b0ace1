package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"textdocs/internal/model"
	"textdocs/internal/repository"
)

var now = func() time.Time { return time.Now().UTC() }

// fileRecord is the stored BSON shape. Field names match the collection
// written by earlier versions of the service.
type fileRecord struct {
	ID         primitive.ObjectID `bson:"_id"`
	Name       string             `bson:"name"`
	FileType   string             `bson:"fileType"`
	Content    string             `bson:"content,omitempty"`
	UploadDate time.Time          `bson:"uploadDate"`
}

func (r fileRecord) document() *model.Document {
	return &model.Document{
		ID:         r.ID.Hex(),
		Name:       r.Name,
		FileType:   r.FileType,
		Content:    r.Content,
		UploadDate: r.UploadDate.UTC(),
	}
}

var metadataProjection = bson.D{{Key: "content", Value: 0}}

// DocumentMongo is a MongoDB implementation of repository.DocumentRepository.
type DocumentMongo struct {
	coll *mongo.Collection
}

// NewDocumentMongo creates a repository over the given collection.
func NewDocumentMongo(coll *mongo.Collection) *DocumentMongo {
	return &DocumentMongo{coll: coll}
}

var _ repository.DocumentRepository = (*DocumentMongo)(nil)

// Create inserts a document with a fresh ObjectID.
func (r *DocumentMongo) Create(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	oid := primitive.NewObjectID()
	doc := model.NewDocument(in, oid.Hex(), now())
	// BSON dates carry millisecond precision.
	doc.UploadDate = doc.UploadDate.Truncate(time.Millisecond)

	rec := fileRecord{
		ID:         oid,
		Name:       doc.Name,
		FileType:   doc.FileType,
		Content:    doc.Content,
		UploadDate: doc.UploadDate,
	}
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns metadata for all documents, projecting content away on the server.
func (r *DocumentMongo) List(ctx context.Context) ([]model.DocumentMetadata, error) {
	return r.findMetadata(ctx, bson.D{})
}

// FindByID returns a document by its hex ObjectID.
func (r *DocumentMongo) FindByID(ctx context.Context, id string) (*model.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var rec fileRecord
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec.document(), nil
}

// SearchContent matches term literally and case-insensitively with a $regex filter.
func (r *DocumentMongo) SearchContent(ctx context.Context, term string) ([]model.DocumentMetadata, error) {
	if term == "" {
		return r.List(ctx)
	}
	filter := bson.D{{Key: "content", Value: primitive.Regex{
		Pattern: regexp.QuoteMeta(term),
		Options: "i",
	}}}
	return r.findMetadata(ctx, filter)
}

// Delete removes a document and returns the removed record.
func (r *DocumentMongo) Delete(ctx context.Context, id string) (*model.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var rec fileRecord
	if err := r.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec.document(), nil
}

// Ping checks the server behind the collection.
func (r *DocumentMongo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *DocumentMongo) findMetadata(ctx context.Context, filter bson.D) ([]model.DocumentMetadata, error) {
	opts := options.Find().
		SetProjection(metadataProjection).
		SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]model.DocumentMetadata, 0)
	for cur.Next(ctx) {
		var rec fileRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		items = append(items, rec.document().Metadata())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
