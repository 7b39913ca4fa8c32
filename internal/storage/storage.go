// Package storage содержит бэкенды «локального хранилища» клиента:
// файл на диске, PostgreSQL и Redis. Все значения хранятся строками.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound возвращается, если ключ отсутствует в хранилище.
var ErrNotFound = errors.New("key not found")

// DefaultFile задаёт путь к файлу состояния по умолчанию.
const DefaultFile = "tavola-state.json"

// KV описывает строковое хранилище ключ-значение.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open выбирает бэкенд по схеме URI. Пустой URI означает файл по умолчанию.
// Namespace отделяет состояние разных устройств в общих бэкендах.
func Open(ctx context.Context, uri, namespace string) (KV, error) {
	if namespace == "" {
		namespace = "default"
	}
	if uri == "" {
		return NewFileStore(DefaultFile)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse state uri: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "", "file":
		path := u.Path
		if u.Scheme == "" {
			path = uri
		}
		if u.Host != "" {
			path = u.Host + path
		}
		return NewFileStore(path)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, uri, namespace)
	case "redis", "rediss":
		return NewRedisStore(ctx, uri, namespace)
	default:
		return nil, fmt.Errorf("unsupported state backend %q", u.Scheme)
	}
}
