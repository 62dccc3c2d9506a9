package usecase

import (
	"context"
)

// Get reads the value stored under key. It returns nil when the key is absent.
func Get[T any](ctx context.Context, s StorageService, key string) (*T, error) {
	var v T
	ok, err := s.GetValue(ctx, key, &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// Set stores value under key.
func Set[T any](ctx context.Context, s StorageService, key string, value T) error {
	return s.SetValue(ctx, key, value)
}
