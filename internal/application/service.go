package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AREA-equipe/app/internal/domain"
	"github.com/AREA-equipe/app/internal/registry"
	"golang.org/x/crypto/bcrypt"
)

const defaultPlaygroundName = "New Playground"

type PlaygroundService struct {
	repo     domain.PlaygroundRepository
	handlers *registry.HandlerRegistry
}

func NewPlaygroundService(repo domain.PlaygroundRepository, handlers *registry.HandlerRegistry) *PlaygroundService {
	if handlers == nil {
		handlers = registry.New()
	}
	return &PlaygroundService{repo: repo, handlers: handlers}
}

// CreatePlayground picks the first free default name for the owner: "New
// Playground", then "New Playground (1)" and so on. Uniqueness is computed
// here, at creation time only; renames are free to collide.
func (s *PlaygroundService) CreatePlayground(ctx context.Context, ownerUserID uint) (domain.Playground, error) {
	existing, err := s.repo.ListPlaygroundNames(ctx, ownerUserID)
	if err != nil {
		return domain.Playground{}, err
	}

	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}

	name := defaultPlaygroundName
	counter := 1
	for {
		if _, used := taken[name]; !used {
			break
		}
		name = fmt.Sprintf("%s (%d)", defaultPlaygroundName, counter)
		counter++
	}

	return s.repo.CreatePlayground(ctx, domain.Playground{UserID: ownerUserID, Name: name})
}

func (s *PlaygroundService) ListPlaygrounds(ctx context.Context, ownerUserID uint) ([]domain.Playground, error) {
	return s.repo.ListPlaygrounds(ctx, ownerUserID)
}

// GetPlayground returns the playground with its full graph: both instance
// sets and, per instance, its outbound links. A playground is a small
// user-authored graph, so the per-instance fan-out is fine here.
func (s *PlaygroundService) GetPlayground(ctx context.Context, id uint) (domain.PlaygroundGraph, error) {
	playground, err := s.repo.GetPlayground(ctx, id)
	if err != nil {
		return domain.PlaygroundGraph{}, err
	}

	actions, err := s.repo.ListActionInstances(ctx, id)
	if err != nil {
		return domain.PlaygroundGraph{}, err
	}
	reactions, err := s.repo.ListReactionInstances(ctx, id)
	if err != nil {
		return domain.PlaygroundGraph{}, err
	}

	actionLinks := make([]domain.ActionLink, 0)
	for _, action := range actions {
		links, err := s.repo.ListActionLinksByTrigger(ctx, action.ID)
		if err != nil {
			return domain.PlaygroundGraph{}, err
		}
		actionLinks = append(actionLinks, links...)
	}

	reactionLinks := make([]domain.ReactionLink, 0)
	for _, reaction := range reactions {
		links, err := s.repo.ListReactionLinksByTrigger(ctx, reaction.ID)
		if err != nil {
			return domain.PlaygroundGraph{}, err
		}
		reactionLinks = append(reactionLinks, links...)
	}

	return domain.PlaygroundGraph{
		Playground:    playground,
		Actions:       actions,
		Reactions:     reactions,
		ActionLinks:   actionLinks,
		ReactionLinks: reactionLinks,
	}, nil
}

func (s *PlaygroundService) RenamePlayground(ctx context.Context, id uint, name string) (domain.Playground, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Playground{}, fmt.Errorf("name is required: %w", domain.ErrInvalidArgument)
	}
	return s.repo.RenamePlayground(ctx, id, name)
}

func (s *PlaygroundService) DeletePlayground(ctx context.Context, id uint) error {
	return s.repo.DeletePlayground(ctx, id)
}

// AddActionInstance resolves the kind first so an unknown kind fails before
// any write, then attaches the instance and fires the kind's handler.
func (s *PlaygroundService) AddActionInstance(ctx context.Context, playgroundID, actionKindID uint, x, y float64) (domain.ActionInstance, error) {
	kind, err := s.repo.GetActionKind(ctx, actionKindID)
	if err != nil {
		return domain.ActionInstance{}, err
	}

	instance, err := s.repo.CreateActionInstance(ctx, domain.ActionInstance{
		PlaygroundID: playgroundID,
		ActionKindID: kind.ID,
		X:            x,
		Y:            y,
	})
	if err != nil {
		return domain.ActionInstance{}, err
	}

	if err := s.handlers.AttachAction(ctx, kind, instance); err != nil {
		return domain.ActionInstance{}, err
	}
	return instance, nil
}

func (s *PlaygroundService) AddReactionInstance(ctx context.Context, playgroundID, reactionKindID uint, settings map[string]any, x, y float64) (domain.ReactionInstance, error) {
	kind, err := s.repo.GetReactionKind(ctx, reactionKindID)
	if err != nil {
		return domain.ReactionInstance{}, err
	}

	instance, err := s.repo.CreateReactionInstance(ctx, domain.ReactionInstance{
		PlaygroundID:   playgroundID,
		ReactionKindID: kind.ID,
		Settings:       settings,
		X:              x,
		Y:              y,
	})
	if err != nil {
		return domain.ReactionInstance{}, err
	}

	if err := s.handlers.AttachReaction(ctx, kind, instance); err != nil {
		return domain.ReactionInstance{}, err
	}
	return instance, nil
}

func (s *PlaygroundService) RemoveActionInstance(ctx context.Context, playgroundID, instanceID uint) error {
	return s.repo.DeleteActionInstance(ctx, playgroundID, instanceID)
}

func (s *PlaygroundService) RemoveReactionInstance(ctx context.Context, playgroundID, instanceID uint) error {
	return s.repo.DeleteReactionInstance(ctx, playgroundID, instanceID)
}

func (s *PlaygroundService) UpdateReactionSettings(ctx context.Context, playgroundID, instanceID uint, settings map[string]any) (domain.ReactionInstance, error) {
	return s.repo.UpdateReactionSettings(ctx, playgroundID, instanceID, settings)
}

func (s *PlaygroundService) LinkAction(ctx context.Context, triggerID, reactionID uint) (domain.ActionLink, error) {
	return s.repo.CreateActionLink(ctx, triggerID, reactionID)
}

func (s *PlaygroundService) LinkReaction(ctx context.Context, triggerID, reactionID uint) (domain.ReactionLink, error) {
	return s.repo.CreateReactionLink(ctx, triggerID, reactionID)
}

func (s *PlaygroundService) UnlinkAction(ctx context.Context, linkID uint) error {
	return s.repo.DeleteActionLink(ctx, linkID)
}

func (s *PlaygroundService) UnlinkReaction(ctx context.Context, linkID uint) error {
	return s.repo.DeleteReactionLink(ctx, linkID)
}

func (s *PlaygroundService) ListActionKinds(ctx context.Context) ([]domain.ActionKind, error) {
	return s.repo.ListActionKinds(ctx)
}

func (s *PlaygroundService) ListReactionKinds(ctx context.Context) ([]domain.ReactionKind, error) {
	return s.repo.ListReactionKinds(ctx)
}

func (s *PlaygroundService) GetActionKindByName(ctx context.Context, name string) (domain.ActionKind, error) {
	return s.repo.GetActionKindByName(ctx, name)
}

func (s *PlaygroundService) GetReactionKindByName(ctx context.Context, name string) (domain.ReactionKind, error) {
	return s.repo.GetReactionKindByName(ctx, name)
}

func (s *PlaygroundService) BootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return errors.New("bootstrap admin email and password are required")
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	_, err = s.repo.CreateUser(ctx, domain.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash})
	return err
}

func (s *PlaygroundService) Register(ctx context.Context, email, password string) (domain.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, fmt.Errorf("email and password are required: %w", domain.ErrInvalidArgument)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	return s.repo.CreateUser(ctx, domain.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash})
}

func (s *PlaygroundService) LoginWithSession(ctx context.Context, email, password string, ttl time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	_, err = s.repo.CreateSession(ctx, domain.AuthSession{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(ttl),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	return u, plain, nil
}

func (s *PlaygroundService) LoginWithAPIToken(ctx context.Context, email, password, tokenName string, ttl *time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := time.Now().UTC().Add(*ttl)
		expiresAt = &t
	}

	name := strings.TrimSpace(tokenName)
	if name == "" {
		name = "cli"
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		UserID:    u.ID,
		Name:      name,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	return u, plain, nil
}

func (s *PlaygroundService) AuthenticateSession(ctx context.Context, token string) (domain.User, error) {
	hash := hashToken(token)
	session, err := s.repo.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.User{}, errors.New("unauthorized")
	}
	if session.ExpiresAt.Before(time.Now().UTC()) {
		_ = s.repo.DeleteSessionByTokenHash(ctx, hash)
		return domain.User{}, errors.New("session expired")
	}

	return s.repo.GetUserByID(ctx, session.UserID)
}

func (s *PlaygroundService) AuthenticateBearerToken(ctx context.Context, token string) (domain.User, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		return domain.User{}, errors.New("unauthorized")
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(time.Now().UTC()) {
		return domain.User{}, errors.New("token expired")
	}

	return s.repo.GetUserByID(ctx, apit.UserID)
}

func (s *PlaygroundService) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSessionByTokenHash(ctx, hashToken(token))
}

func (s *PlaygroundService) authenticateEmailPassword(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	return u, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}
