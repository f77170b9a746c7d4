package storage

import (
	"context"
	"time"
)

// Images resolves post image references. A reference of the form
// s3://<bucket>/<key> inside the configured bucket is served through a
// presigned URL and removed with its post; anything else is returned as is.
// A nil *Images passes every reference through.
type Images struct {
	svc    Service
	bucket string
	ttl    time.Duration
}

func NewImages(svc Service, bucket string, ttl time.Duration) *Images {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Images{svc: svc, bucket: bucket, ttl: ttl}
}

// Stored reports whether location names an object in the configured bucket.
func (i *Images) Stored(location string) (ObjectRef, bool) {
	if i == nil || i.svc == nil || i.bucket == "" {
		return ObjectRef{}, false
	}
	ref, err := ParseLocation(location)
	if err != nil || ref.Bucket != i.bucket {
		return ObjectRef{}, false
	}
	return ref, true
}

// URL returns the address clients should fetch the image from.
func (i *Images) URL(ctx context.Context, location string) (string, error) {
	ref, ok := i.Stored(location)
	if !ok {
		return location, nil
	}
	return i.svc.GetObjectURL(ctx, ref.Bucket, ref.Key, i.ttl)
}

// Remove deletes the stored object behind location, if there is one.
func (i *Images) Remove(ctx context.Context, location string) error {
	ref, ok := i.Stored(location)
	if !ok {
		return nil
	}
	return i.svc.DeleteObject(ctx, ref.Bucket, ref.Key)
}
