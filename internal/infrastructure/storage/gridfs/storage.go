// Package gridfs stores uploaded files in MongoDB GridFS (BLOB_BACKEND=gridfs).
package gridfs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const bucketName = "blobs"

type Storage struct {
	bucket *gridfs.Bucket
}

func New(db *mongo.Database) (*Storage, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &Storage{bucket: bucket}, nil
}

// Save uploads data under the content-address key unless a file with that name exists.
func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	exists, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := s.bucket.UploadFromStream(key, data); err != nil {
		return domain.WrapError(domain.ErrTemporary, "gridfs upload", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "gridfs open", fmt.Errorf("key=%s", key))
		}
		return nil, fmt.Errorf("gridfs open: %w", err)
	}
	return stream, nil
}

func (s *Storage) exists(ctx context.Context, key string) (bool, error) {
	cursor, err := s.bucket.Find(bson.M{"filename": key}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("gridfs find: %w", err)
	}
	defer cursor.Close(ctx)
	return cursor.Next(ctx), cursor.Err()
}
