package resolver

import (
	"context"
	"log/slog"

	"github.com/praetorian-inc/approles/pkg/types"
)

// Directory is the subset of the directory client the built-in strategies use
type Directory interface {
	GetUser(ctx context.Context, id string) (types.Principal, error)
	GetGroup(ctx context.Context, id string) (types.Principal, error)
}

// UserStrategy resolves ids against the users collection
type UserStrategy struct {
	Directory Directory
}

func (s *UserStrategy) Kind() types.PrincipalKind {
	return types.PrincipalUser
}

func (s *UserStrategy) Priority() int {
	return 1 // Try users first
}

func (s *UserStrategy) Lookup(ctx context.Context, id string) (types.Principal, error) {
	return s.Directory.GetUser(ctx, id)
}

// GroupStrategy resolves ids against the groups collection
type GroupStrategy struct {
	Directory Directory
}

func (s *GroupStrategy) Kind() types.PrincipalKind {
	return types.PrincipalGroup
}

func (s *GroupStrategy) Priority() int {
	return 2
}

func (s *GroupStrategy) Lookup(ctx context.Context, id string) (types.Principal, error) {
	return s.Directory.GetGroup(ctx, id)
}

// NewDefault builds the user-then-group resolver
func NewDefault(dir Directory, logger *slog.Logger) *PrincipalResolver {
	return New(logger,
		&GroupStrategy{Directory: dir},
		&UserStrategy{Directory: dir},
	)
}
