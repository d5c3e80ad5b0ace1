package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"textdocs/internal/model"
	"textdocs/internal/repository"
)

const ns = "textdocs.files"

func record(id primitive.ObjectID, name, content string, uploaded time.Time) bson.D {
	d := bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "fileType", Value: "text/plain"},
	}
	if content != "" {
		d = append(d, bson.E{Key: "content", Value: content})
	}
	return append(d, bson.E{Key: "uploadDate", Value: uploaded})
}

func TestDocumentMongo_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewDocumentMongo(mt.Coll)

		doc, err := repo.Create(context.Background(), model.DocumentInput{
			Name: "a.txt", FileType: "text/plain", Content: "foo bar",
		})

		require.NoError(mt, err)
		_, hexErr := primitive.ObjectIDFromHex(doc.ID)
		assert.NoError(mt, hexErr)
		assert.Equal(mt, "foo bar", doc.Content)
		assert.False(mt, doc.UploadDate.IsZero())
	})

	mt.Run("validation error", func(mt *mtest.T) {
		repo := NewDocumentMongo(mt.Coll)

		_, err := repo.Create(context.Background(), model.DocumentInput{Name: "a.txt", Content: "x"})

		assert.ErrorIs(mt, err, model.ErrValidation)
	})

	mt.Run("write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key",
		}))
		repo := NewDocumentMongo(mt.Coll)

		doc, err := repo.Create(context.Background(), model.DocumentInput{Name: "a.txt", FileType: "text/plain", Content: "x"})

		assert.Error(mt, err)
		assert.Nil(mt, doc)
	})
}

func TestDocumentMongo_List(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	uploaded := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("returns metadata", func(mt *mtest.T) {
		a, b := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			record(a, "a.txt", "", uploaded),
			record(b, "b.txt", "", uploaded),
		))
		repo := NewDocumentMongo(mt.Coll)

		items, err := repo.List(context.Background())

		require.NoError(mt, err)
		require.Len(mt, items, 2)
		assert.Equal(mt, a.Hex(), items[0].ID)
		assert.Equal(mt, "b.txt", items[1].Name)
		assert.Equal(mt, uploaded, items[1].UploadDate)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))
		repo := NewDocumentMongo(mt.Coll)

		_, err := repo.List(context.Background())
		assert.Error(mt, err)
	})
}

func TestDocumentMongo_SearchContent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matching documents", func(mt *mtest.T) {
		a := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			record(a, "a.txt", "", time.Now()),
		))
		repo := NewDocumentMongo(mt.Coll)

		items, err := repo.SearchContent(context.Background(), "world")

		require.NoError(mt, err)
		assert.Len(mt, items, 1)
	})

	mt.Run("empty term lists all", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			record(primitive.NewObjectID(), "a.txt", "", time.Now()),
			record(primitive.NewObjectID(), "b.txt", "", time.Now()),
		))
		repo := NewDocumentMongo(mt.Coll)

		items, err := repo.SearchContent(context.Background(), "")

		require.NoError(mt, err)
		assert.Len(mt, items, 2)
	})
}

func TestDocumentMongo_FindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			record(id, "a.txt", "Hello World", time.Now()),
		))
		repo := NewDocumentMongo(mt.Coll)

		doc, err := repo.FindByID(context.Background(), id.Hex())

		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), doc.ID)
		assert.Equal(mt, "Hello World", doc.Content)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewDocumentMongo(mt.Coll)

		doc, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())

		assert.ErrorIs(mt, err, repository.ErrNotFound)
		assert.Nil(mt, doc)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewDocumentMongo(mt.Coll)

		_, err := repo.FindByID(context.Background(), "xyz")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestDocumentMongo_Delete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deleted", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: record(id, "b.txt", "baz", time.Now())},
		})
		repo := NewDocumentMongo(mt.Coll)

		doc, err := repo.Delete(context.Background(), id.Hex())

		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), doc.ID)
		assert.Equal(mt, "baz", doc.Content)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})
		repo := NewDocumentMongo(mt.Coll)

		_, err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewDocumentMongo(mt.Coll)

		_, err := repo.Delete(context.Background(), "../etc")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}
