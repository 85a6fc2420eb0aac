package domain

import "context"

type PlaygroundRepository interface {
	CreatePlayground(ctx context.Context, value Playground) (Playground, error)
	ListPlaygrounds(ctx context.Context, userID uint) ([]Playground, error)
	ListPlaygroundNames(ctx context.Context, userID uint) ([]string, error)
	GetPlayground(ctx context.Context, id uint) (Playground, error)
	RenamePlayground(ctx context.Context, id uint, name string) (Playground, error)
	DeletePlayground(ctx context.Context, id uint) error

	GetActionKind(ctx context.Context, id uint) (ActionKind, error)
	GetActionKindByName(ctx context.Context, name string) (ActionKind, error)
	ListActionKinds(ctx context.Context) ([]ActionKind, error)
	GetReactionKind(ctx context.Context, id uint) (ReactionKind, error)
	GetReactionKindByName(ctx context.Context, name string) (ReactionKind, error)
	ListReactionKinds(ctx context.Context) ([]ReactionKind, error)

	CreateActionInstance(ctx context.Context, value ActionInstance) (ActionInstance, error)
	ListActionInstances(ctx context.Context, playgroundID uint) ([]ActionInstance, error)
	DeleteActionInstance(ctx context.Context, playgroundID, instanceID uint) error
	CreateReactionInstance(ctx context.Context, value ReactionInstance) (ReactionInstance, error)
	ListReactionInstances(ctx context.Context, playgroundID uint) ([]ReactionInstance, error)
	UpdateReactionSettings(ctx context.Context, playgroundID, instanceID uint, settings map[string]any) (ReactionInstance, error)
	DeleteReactionInstance(ctx context.Context, playgroundID, instanceID uint) error

	CreateActionLink(ctx context.Context, triggerID, reactionID uint) (ActionLink, error)
	ListActionLinksByTrigger(ctx context.Context, triggerID uint) ([]ActionLink, error)
	DeleteActionLink(ctx context.Context, linkID uint) error
	CreateReactionLink(ctx context.Context, triggerID, reactionID uint) (ReactionLink, error)
	ListReactionLinksByTrigger(ctx context.Context, triggerID uint) ([]ReactionLink, error)
	DeleteReactionLink(ctx context.Context, linkID uint) error

	CreateUser(ctx context.Context, value User) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)
}
