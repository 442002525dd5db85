package services

import (
	"context"
	"strings"
)

// NationalIDRegistry answers whether a national identifier exists. Account
// verification consults it.
type NationalIDRegistry interface {
	Contains(ctx context.Context, nationalID string) (bool, error)
}

// StaticRegistry is a fixed in-memory set of identifiers.
type StaticRegistry struct {
	ids map[string]struct{}
}

func NewStaticRegistry(ids ...string) *StaticRegistry {
	r := &StaticRegistry{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			r.ids[id] = struct{}{}
		}
	}
	return r
}

func (r *StaticRegistry) Contains(ctx context.Context, nationalID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := r.ids[strings.TrimSpace(nationalID)]
	return ok, nil
}
