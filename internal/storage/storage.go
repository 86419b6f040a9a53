package storage

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
)

// ObjectStorage es el contrato comun de los backends de objetos.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
	URL(key string) string
}

// objectURL arma la url publica de key. Si publicBase esta vacio se usa el estilo
// path de S3: scheme://endpoint/bucket/key.
func objectURL(publicBase, endpoint, bucket string, secure bool, key string) string {
	key = strings.TrimLeft(key, "/")
	if base := strings.TrimRight(strings.TrimSpace(publicBase), "/"); base != "" {
		return base + "/" + key
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: endpoint, Path: "/" + path.Join(bucket, key)}
	return u.String()
}
