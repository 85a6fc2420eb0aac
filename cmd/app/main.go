package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sqliteadapter "github.com/AREA-equipe/app/internal/adapters/db/sqlite"
	httpadapter "github.com/AREA-equipe/app/internal/adapters/http"
	rpcadapter "github.com/AREA-equipe/app/internal/adapters/rpcjson"
	"github.com/AREA-equipe/app/internal/application"
	"github.com/AREA-equipe/app/internal/domain"
	"github.com/AREA-equipe/app/internal/registry"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "triggermenot",
		Usage: "Playground graph engine server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			playgroundsCommand(),
			actionsCommand(),
			reactionsCommand(),
			linksCommand(),
			catalogCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, ":8080", "/tmp/triggermenot.sock", "triggermenot.db", "admin@triggermenot.local", "admin")
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Value: "/tmp/triggermenot.sock", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Value: "triggermenot.db", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "bootstrap-admin-email", Value: "admin@triggermenot.local", Usage: "initial admin email"},
			&cli.StringFlag{Name: "bootstrap-admin-password", Value: "admin", Usage: "initial admin password when users are empty"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("addr"), c.String("rpc-socket"), c.String("db-path"), c.String("bootstrap-admin-email"), c.String("bootstrap-admin-password"))
		},
	}
}

func runServer(ctx context.Context, addr, rpcSocket, dbPath, bootstrapEmail, bootstrapPassword string) error {
	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := sqliteadapter.NewPlaygroundRepository(db)
	service := application.NewPlaygroundService(repo, defaultHandlers())
	if err := service.BootstrapAdmin(ctx, bootstrapEmail, bootstrapPassword); err != nil {
		return err
	}

	router := httpadapter.NewRouter(service)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(rpcSocket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", rpcSocket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func defaultHandlers() *registry.HandlerRegistry {
	handlers := registry.New()
	handlers.RegisterAction("webhook", registry.ActionHandlerFunc(func(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error {
		log.Printf("webhook trigger %d armed in playground %d", instance.ID, instance.PlaygroundID)
		return nil
	}))
	handlers.RegisterAction("timer", registry.ActionHandlerFunc(func(ctx context.Context, kind domain.ActionKind, instance domain.ActionInstance) error {
		log.Printf("timer trigger %d armed in playground %d", instance.ID, instance.PlaygroundID)
		return nil
	}))
	handlers.RegisterReaction("log", registry.ReactionHandlerFunc(func(ctx context.Context, kind domain.ReactionKind, instance domain.ReactionInstance) error {
		log.Printf("log reaction %d attached in playground %d", instance.ID, instance.PlaygroundID)
		return nil
	}))
	return handlers
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login and store CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds"},
					&cli.StringFlag{Name: "server", Value: "http://127.0.0.1:8080"},
					&cli.StringFlag{Name: "socket", Value: "/tmp/triggermenot.sock"},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					var out struct {
						Token string `json:"token"`
						Email string `json:"email"`
					}
					err := doLogin(ctx, cfg, c.String("email"), c.String("password"), c.String("token-name"), &out)
					if err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.Email)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						ID    uint   `json:"id"`
						Email string `json:"email"`
					}
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", uintToString(out.ID)}, {"email", out.Email}})
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear local CLI auth token",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func playgroundsCommand() *cli.Command {
	return &cli.Command{
		Name:  "playgrounds",
		Usage: "Playground commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playgrounds owned by the current user",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Playground
					if err := doPlaygroundsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPlaygrounds(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a playground with a generated name",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Playground
					if err := doPlaygroundsCreate(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPlayground(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show a playground with its full graph",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.PlaygroundGraph
					if err := doPlaygroundsGet(ctx, cfg, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printGraph(out)
					return nil
				},
			},
			{
				Name:  "rename",
				Usage: "Rename a playground",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Playground
					if err := doPlaygroundsRename(ctx, cfg, uint(c.Uint("id")), c.String("name"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPlayground(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a playground and everything in it",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doPlaygroundsDelete(ctx, cfg, uint(c.Uint("id"))); err != nil {
						return err
					}
					fmt.Printf("deleted playground %d\n", uint(c.Uint("id")))
					return nil
				},
			},
		},
	}
}

func actionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "actions",
		Usage: "Action instance commands",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add an action instance to a playground",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "playground-id", Required: true},
					&cli.UintFlag{Name: "kind-id", Required: true},
					&cli.FloatFlag{Name: "x"},
					&cli.FloatFlag{Name: "y"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ActionInstance
					if err := doActionsAdd(ctx, cfg, uint(c.Uint("playground-id")), uint(c.Uint("kind-id")), c.Float("x"), c.Float("y"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printActionInstances([]domain.ActionInstance{out})
					return nil
				},
			},
			{
				Name:  "remove",
				Usage: "Remove an action instance and its outgoing links",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "playground-id", Required: true},
					&cli.UintFlag{Name: "instance-id", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doActionsRemove(ctx, cfg, uint(c.Uint("playground-id")), uint(c.Uint("instance-id"))); err != nil {
						return err
					}
					fmt.Printf("removed action %d\n", uint(c.Uint("instance-id")))
					return nil
				},
			},
		},
	}
}

func reactionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reactions",
		Usage: "Reaction instance commands",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a reaction instance to a playground",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "playground-id", Required: true},
					&cli.UintFlag{Name: "kind-id", Required: true},
					&cli.StringFlag{Name: "settings", Value: "{}", Usage: "JSON settings object"},
					&cli.FloatFlag{Name: "x"},
					&cli.FloatFlag{Name: "y"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					settings, err := parseSettings(c.String("settings"))
					if err != nil {
						return err
					}
					var out domain.ReactionInstance
					if err := doReactionsAdd(ctx, cfg, uint(c.Uint("playground-id")), uint(c.Uint("kind-id")), settings, c.Float("x"), c.Float("y"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printReactionInstances([]domain.ReactionInstance{out})
					return nil
				},
			},
			{
				Name:  "set-settings",
				Usage: "Replace a reaction instance's settings",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "playground-id", Required: true},
					&cli.UintFlag{Name: "instance-id", Required: true},
					&cli.StringFlag{Name: "settings", Required: true, Usage: "JSON settings object"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					settings, err := parseSettings(c.String("settings"))
					if err != nil {
						return err
					}
					var out domain.ReactionInstance
					if err := doReactionsSettings(ctx, cfg, uint(c.Uint("playground-id")), uint(c.Uint("instance-id")), settings, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printReactionInstances([]domain.ReactionInstance{out})
					return nil
				},
			},
			{
				Name:  "remove",
				Usage: "Remove a reaction instance and its incident links",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "playground-id", Required: true},
					&cli.UintFlag{Name: "instance-id", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doReactionsRemove(ctx, cfg, uint(c.Uint("playground-id")), uint(c.Uint("instance-id"))); err != nil {
						return err
					}
					fmt.Printf("removed reaction %d\n", uint(c.Uint("instance-id")))
					return nil
				},
			},
		},
	}
}

func linksCommand() *cli.Command {
	return &cli.Command{
		Name:  "links",
		Usage: "Link commands",
		Commands: []*cli.Command{
			{
				Name:  "connect",
				Usage: "Link a trigger to a reaction instance",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "side", Value: "action", Usage: "action or reaction trigger side"},
					&cli.UintFlag{Name: "trigger-id", Required: true},
					&cli.UintFlag{Name: "reaction-id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					side, err := linkSide(c.String("side"))
					if err != nil {
						return err
					}
					var out domain.ActionLink
					if err := doLinkCreate(ctx, cfg, side, uint(c.Uint("trigger-id")), uint(c.Uint("reaction-id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLinks([]domain.ActionLink{out})
					return nil
				},
			},
			{
				Name:  "cut",
				Usage: "Delete a link by id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "side", Value: "action", Usage: "action or reaction trigger side"},
					&cli.UintFlag{Name: "link-id", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					side, err := linkSide(c.String("side"))
					if err != nil {
						return err
					}
					if err := doLinkDelete(ctx, cfg, side, uint(c.Uint("link-id"))); err != nil {
						return err
					}
					fmt.Printf("cut %s link %d\n", side, uint(c.Uint("link-id")))
					return nil
				},
			},
		},
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Catalog commands",
		Commands: []*cli.Command{
			{
				Name:  "actions",
				Usage: "List available action kinds",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.ActionKind
					if err := doCatalogActions(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printActionKinds(out)
					return nil
				},
			},
			{
				Name:  "reactions",
				Usage: "List available reaction kinds",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.ReactionKind
					if err := doCatalogReactions(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printReactionKinds(out)
					return nil
				},
			},
		},
	}
}

func parseSettings(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var settings map[string]any
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("settings must be a JSON object: %w", err)
	}
	return settings, nil
}

func linkSide(raw string) (string, error) {
	side := strings.ToLower(strings.TrimSpace(raw))
	if side != "action" && side != "reaction" {
		return "", fmt.Errorf("side must be action or reaction, got %q", raw)
	}
	return side, nil
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
