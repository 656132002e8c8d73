// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"context"
	"fmt"
)

// Archive keeps a copy of a report's ciphertext and returns a download link.
// Only ciphertext is ever archived; keys and plaintext never leave the process.
type Archive interface {
	Store(ctx context.Context, userID, reportID string, ciphertext []byte) (string, error)
}

// ObjectStore is the subset of the bucket client used by [BucketArchive].
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// BucketArchive writes ciphertexts to reports/<user_id>/<report_id>.bin.
type BucketArchive struct {
	store ObjectStore
}

// NewBucketArchive creates an Archive backed by an object store.
func NewBucketArchive(store ObjectStore) *BucketArchive {
	return &BucketArchive{store: store}
}

// Store uploads ciphertext and returns a presigned GET URL for it.
func (archive *BucketArchive) Store(ctx context.Context, userID, reportID string, ciphertext []byte) (string, error) {
	key := ArchiveKey(userID, reportID)

	if err := archive.store.Put(ctx, key, ciphertext, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("report_archive_put_failed: %w", err)
	}

	url, err := archive.store.PresignGet(ctx, key)
	if err != nil {
		return "", fmt.Errorf("report_archive_presign_failed: %w", err)
	}
	return url, nil
}

// ArchiveKey is the object key for a report's ciphertext.
func ArchiveKey(userID, reportID string) string {
	return "reports/" + userID + "/" + reportID + ".bin"
}
