package domain

import "context"

// Service exposes the category catalog. The allowed set constrains
// every category assignment made by the merchant resolver.
type Service interface {
	List(ctx context.Context) ([]string, error)
	AllowedSet(ctx context.Context) (map[string]struct{}, error)
	Exists(ctx context.Context, name string) (bool, error)
}
