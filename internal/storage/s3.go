// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// version assets. It wraps minio-go and keeps every asset of a post under
// one key prefix so a deleted post can be swept in one listing.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"postdeck/internal/slug"
)

// Client wraps a minio client bound to one bucket.
type Client struct {
	mc        *minio.Client
	bucket    string
	baseURL   string
	publicURL string // optional CDN/direct URL for assets
}

// Options configures New.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

// New creates a storage client. Returns (nil, nil) if the endpoint or
// credentials are empty, allowing the app to start without storage.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, nil
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return &Client{
		mc:        mc,
		bucket:    opts.Bucket,
		baseURL:   scheme + "://" + endpoint + "/" + opts.Bucket,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context, region string) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	return nil
}

// AssetKey returns the object key of an uploaded post asset. The original
// file name contributes a slug and its extension.
func AssetKey(postID, assetID uuid.UUID, filename string) string {
	base, ext := slug.Filename(filename)
	if base == "" {
		return fmt.Sprintf("posts/%s/assets/%s%s", postID, assetID, ext)
	}
	return fmt.Sprintf("posts/%s/assets/%s-%s%s", postID, assetID, base, ext)
}

// ThumbnailKey returns the object key of the thumbnail of an asset.
func ThumbnailKey(postID, assetID uuid.UUID) string {
	return fmt.Sprintf("posts/%s/assets/%s_thumb.jpg", postID, assetID)
}

// PostPrefix returns the key prefix under which all assets of a post live.
func PostPrefix(postID uuid.UUID) string {
	return "posts/" + postID.String() + "/"
}

// Upload stores an object and returns its public URL.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := c.mc.PutObject(ctx, c.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return c.FileURL(key), nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix and returns how many
// were removed.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	objects := c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	var n int
	for obj := range objects {
		if obj.Err != nil {
			return n, fmt.Errorf("s3 list %s/%s: %w", c.bucket, prefix, obj.Err)
		}
		if err := c.Delete(ctx, obj.Key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// FileURL returns the public URL for an object.
// Uses the configured public URL if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.baseURL + "/" + key
}
