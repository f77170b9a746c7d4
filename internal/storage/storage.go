package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ObjectRef names one object in a bucket.
type ObjectRef struct {
	Bucket string
	Key    string
}

func (o ObjectRef) String() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

// Service reads and removes objects in remote object storage.
type Service interface {
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// ParseLocation splits an s3://bucket/key location.
func ParseLocation(location string) (ObjectRef, error) {
	if !strings.HasPrefix(location, "s3://") {
		return ObjectRef{}, fmt.Errorf("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return ObjectRef{}, fmt.Errorf("invalid s3 location")
	}
	if len(parts) == 1 {
		return ObjectRef{}, fmt.Errorf("s3 key missing")
	}
	key := strings.TrimPrefix(parts[1], "/")
	if key == "" {
		return ObjectRef{}, fmt.Errorf("s3 key missing")
	}
	return ObjectRef{Bucket: parts[0], Key: key}, nil
}
