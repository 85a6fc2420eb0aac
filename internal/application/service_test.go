package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqliteadapter "github.com/AREA-equipe/app/internal/adapters/db/sqlite"
	"github.com/AREA-equipe/app/internal/domain"
	"github.com/AREA-equipe/app/internal/registry"
)

func newTestService(t *testing.T, handlers *registry.HandlerRegistry) *PlaygroundService {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "triggermenot_test.db")

	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewPlaygroundService(sqliteadapter.NewPlaygroundRepository(db), handlers)
}

func TestCreatePlaygroundGeneratesDefaultNames(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	want := []string{"New Playground", "New Playground (1)", "New Playground (2)", "New Playground (3)"}
	for i, expected := range want {
		p, err := service.CreatePlayground(ctx, 1)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if p.Name != expected {
			t.Fatalf("create %d: expected name %q, got %q", i, expected, p.Name)
		}
	}

	// names are scoped per owner, a second user starts over
	other, err := service.CreatePlayground(ctx, 2)
	if err != nil {
		t.Fatalf("create for second owner: %v", err)
	}
	if other.Name != "New Playground" {
		t.Fatalf("expected second owner to start at the default name, got %q", other.Name)
	}

	first, err := service.ListPlaygrounds(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := service.RenamePlayground(ctx, first[0].ID, "Lights"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	refilled, err := service.CreatePlayground(ctx, 1)
	if err != nil {
		t.Fatalf("create after rename: %v", err)
	}
	if refilled.Name != "New Playground" {
		t.Fatalf("expected freed default name to be reused, got %q", refilled.Name)
	}
}

func TestRenamePlayground(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	p, err := service.CreatePlayground(ctx, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	q, err := service.CreatePlayground(ctx, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.RenamePlayground(ctx, p.ID, "  "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for blank name, got %v", err)
	}
	if _, err := service.RenamePlayground(ctx, 9999, "Lights"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing playground, got %v", err)
	}

	renamed, err := service.RenamePlayground(ctx, p.ID, "Lights")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Lights" {
		t.Fatalf("expected renamed playground, got %q", renamed.Name)
	}

	// renames never re-check uniqueness, collisions are allowed
	dup, err := service.RenamePlayground(ctx, q.ID, "Lights")
	if err != nil {
		t.Fatalf("rename to colliding name: %v", err)
	}
	if dup.Name != "Lights" {
		t.Fatalf("expected colliding rename to win, got %q", dup.Name)
	}
}

func TestGetPlaygroundExportIsClosed(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	webhook, err := service.GetActionKindByName(ctx, "webhook")
	if err != nil {
		t.Fatalf("seeded action kind: %v", err)
	}
	logKind, err := service.GetReactionKindByName(ctx, "log")
	if err != nil {
		t.Fatalf("seeded reaction kind: %v", err)
	}

	mine, _ := service.CreatePlayground(ctx, 1)
	other, _ := service.CreatePlayground(ctx, 1)

	trigger, err := service.AddActionInstance(ctx, mine.ID, webhook.ID, 10, 20)
	if err != nil {
		t.Fatalf("add action: %v", err)
	}
	sink, err := service.AddReactionInstance(ctx, mine.ID, logKind.ID, map[string]any{"msg": "hi"}, 30, 40)
	if err != nil {
		t.Fatalf("add reaction: %v", err)
	}
	tail, err := service.AddReactionInstance(ctx, mine.ID, logKind.ID, nil, 50, 60)
	if err != nil {
		t.Fatalf("add reaction: %v", err)
	}
	if _, err := service.AddActionInstance(ctx, other.ID, webhook.ID, 0, 0); err != nil {
		t.Fatalf("add action to other playground: %v", err)
	}

	if _, err := service.LinkAction(ctx, trigger.ID, sink.ID); err != nil {
		t.Fatalf("link action: %v", err)
	}
	if _, err := service.LinkReaction(ctx, sink.ID, tail.ID); err != nil {
		t.Fatalf("link reaction: %v", err)
	}

	graph, err := service.GetPlayground(ctx, mine.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(graph.Actions) != 1 || len(graph.Reactions) != 2 {
		t.Fatalf("unexpected instance counts: %d actions, %d reactions", len(graph.Actions), len(graph.Reactions))
	}
	if len(graph.ActionLinks) != 1 || len(graph.ReactionLinks) != 1 {
		t.Fatalf("unexpected link counts: %d action links, %d reaction links", len(graph.ActionLinks), len(graph.ReactionLinks))
	}

	actionIDs := make(map[uint]struct{})
	for _, a := range graph.Actions {
		actionIDs[a.ID] = struct{}{}
	}
	reactionIDs := make(map[uint]struct{})
	for _, r := range graph.Reactions {
		reactionIDs[r.ID] = struct{}{}
	}
	for _, l := range graph.ActionLinks {
		if _, ok := actionIDs[l.TriggerID]; !ok {
			t.Fatalf("action link %d has a trigger outside the export", l.ID)
		}
		if _, ok := reactionIDs[l.ReactionID]; !ok {
			t.Fatalf("action link %d has a reaction outside the export", l.ID)
		}
	}
	for _, l := range graph.ReactionLinks {
		if _, ok := reactionIDs[l.TriggerID]; !ok {
			t.Fatalf("reaction link %d has a trigger outside the export", l.ID)
		}
		if _, ok := reactionIDs[l.ReactionID]; !ok {
			t.Fatalf("reaction link %d has a reaction outside the export", l.ID)
		}
	}
	if graph.Actions[0].X != 10 || graph.Actions[0].Y != 20 {
		t.Fatalf("expected position to survive export, got (%v, %v)", graph.Actions[0].X, graph.Actions[0].Y)
	}
}

func TestAddInstanceUnknownKindFailsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	p, _ := service.CreatePlayground(ctx, 1)
	if _, err := service.AddActionInstance(ctx, p.ID, 9999, 0, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown action kind, got %v", err)
	}
	if _, err := service.AddReactionInstance(ctx, p.ID, 9999, nil, 0, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown reaction kind, got %v", err)
	}

	graph, err := service.GetPlayground(ctx, p.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(graph.Actions) != 0 || len(graph.Reactions) != 0 {
		t.Fatalf("failed adds must not leave instances behind: %+v", graph)
	}
}

func TestAttachHandlersFireOnAdd(t *testing.T) {
	ctx := context.Background()

	var attachedActions []string
	var attachedReactions []string
	handlers := registry.New()
	handlers.RegisterAction("webhook", registry.ActionHandlerFunc(func(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error {
		attachedActions = append(attachedActions, fmt.Sprintf("%s/%d", kind.Name, instance.PlaygroundID))
		return nil
	}))
	handlers.RegisterReaction("log", registry.ReactionHandlerFunc(func(ctx context.Context, kind domain.ReactionKind, instance domain.ReactionInstance) error {
		attachedReactions = append(attachedReactions, kind.Name)
		return nil
	}))

	service := newTestService(t, handlers)
	webhook, _ := service.GetActionKindByName(ctx, "webhook")
	timer, _ := service.GetActionKindByName(ctx, "timer")
	logKind, _ := service.GetReactionKindByName(ctx, "log")

	p, _ := service.CreatePlayground(ctx, 1)
	if _, err := service.AddActionInstance(ctx, p.ID, webhook.ID, 0, 0); err != nil {
		t.Fatalf("add webhook action: %v", err)
	}
	// no handler registered for timer, attaching is still fine
	if _, err := service.AddActionInstance(ctx, p.ID, timer.ID, 0, 0); err != nil {
		t.Fatalf("add timer action: %v", err)
	}
	if _, err := service.AddReactionInstance(ctx, p.ID, logKind.ID, nil, 0, 0); err != nil {
		t.Fatalf("add log reaction: %v", err)
	}

	if len(attachedActions) != 1 || attachedActions[0] != fmt.Sprintf("webhook/%d", p.ID) {
		t.Fatalf("unexpected action attaches: %v", attachedActions)
	}
	if len(attachedReactions) != 1 || attachedReactions[0] != "log" {
		t.Fatalf("unexpected reaction attaches: %v", attachedReactions)
	}
}

func TestPlaygroundLifecycle(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	first, err := service.CreatePlayground(ctx, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Name != "New Playground" {
		t.Fatalf("expected default name, got %q", first.Name)
	}
	second, err := service.CreatePlayground(ctx, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.Name != "New Playground (1)" {
		t.Fatalf("expected suffixed name, got %q", second.Name)
	}

	webhook, _ := service.GetActionKindByName(ctx, "webhook")
	logKind, _ := service.GetReactionKindByName(ctx, "log")

	trigger, err := service.AddActionInstance(ctx, first.ID, webhook.ID, 0, 0)
	if err != nil {
		t.Fatalf("add action: %v", err)
	}
	sink, err := service.AddReactionInstance(ctx, first.ID, logKind.ID, map[string]any{"msg": "hi"}, 0, 0)
	if err != nil {
		t.Fatalf("add reaction: %v", err)
	}
	if _, err := service.LinkAction(ctx, trigger.ID, sink.ID); err != nil {
		t.Fatalf("link: %v", err)
	}

	graph, err := service.GetPlayground(ctx, first.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(graph.Actions) != 1 || len(graph.Reactions) != 1 {
		t.Fatalf("unexpected instance counts: %d actions, %d reactions", len(graph.Actions), len(graph.Reactions))
	}
	if len(graph.ActionLinks) != 1 || len(graph.ReactionLinks) != 0 {
		t.Fatalf("unexpected link counts: %d action links, %d reaction links", len(graph.ActionLinks), len(graph.ReactionLinks))
	}
	if graph.Reactions[0].Settings["msg"] != "hi" {
		t.Fatalf("expected settings in export, got %+v", graph.Reactions[0].Settings)
	}

	if err := service.DeletePlayground(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.GetPlayground(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := service.LinkAction(ctx, trigger.ID, sink.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected stale instance ids to be unlinkable, got %v", err)
	}
}

func TestBootstrapAdminRunsOnce(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	if err := service.BootstrapAdmin(ctx, "Admin@Example.com", "secret"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	// users table is no longer empty, repeated bootstraps are no-ops
	if err := service.BootstrapAdmin(ctx, "second@example.com", "other"); err != nil {
		t.Fatalf("repeated bootstrap: %v", err)
	}
	if _, _, err := service.LoginWithAPIToken(ctx, "second@example.com", "other", "cli", nil); err == nil {
		t.Fatalf("expected second bootstrap email to not exist")
	}

	u, token, err := service.LoginWithAPIToken(ctx, "admin@example.com", "secret", "cli", nil)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Email != "admin@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	authed, err := service.AuthenticateBearerToken(ctx, token)
	if err != nil {
		t.Fatalf("authenticate token: %v", err)
	}
	if authed.ID != u.ID {
		t.Fatalf("expected token to resolve the same user")
	}
	if _, err := service.AuthenticateBearerToken(ctx, "bogus"); err == nil {
		t.Fatalf("expected bogus token to fail")
	}
}

func TestSessionLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t, nil)

	if _, err := service.Register(ctx, "user@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := service.LoginWithSession(ctx, "user@example.com", "wrong", time.Hour); err == nil {
		t.Fatalf("expected wrong password to fail")
	}

	u, token, err := service.LoginWithSession(ctx, "user@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	authed, err := service.AuthenticateSession(ctx, token)
	if err != nil {
		t.Fatalf("authenticate session: %v", err)
	}
	if authed.ID != u.ID {
		t.Fatalf("expected session to resolve the same user")
	}

	if err := service.LogoutSession(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := service.AuthenticateSession(ctx, token); err == nil {
		t.Fatalf("expected session to be gone after logout")
	}

	_, expired, err := service.LoginWithSession(ctx, "user@example.com", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := service.AuthenticateSession(ctx, expired); err == nil {
		t.Fatalf("expected expired session to fail")
	}
}
