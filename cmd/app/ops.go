package main

import (
	"context"
	"fmt"
	"net/http"
)

func doLogin(ctx context.Context, cfg cliConfig, email, password, tokenName string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.login", map[string]any{
			"email":      email,
			"password":   password,
			"token_name": tokenName,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":      email,
		"password":   password,
		"mode":       "token",
		"token_name": tokenName,
	}, out)
}

func doWhoAmI(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.whoami", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/auth/whoami", nil, out)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return nil
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func doPlaygroundsList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "playgrounds.list", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/playgrounds", nil, out)
}

func doPlaygroundsCreate(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "playgrounds.create", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/playgrounds", map[string]any{}, out)
}

func doPlaygroundsGet(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "playgrounds.get", map[string]any{"token": cfg.Token, "id": uintToString(id)}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/playgrounds/"+uintToString(id), nil, out)
}

func doPlaygroundsRename(ctx context.Context, cfg cliConfig, id uint, name string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "playgrounds.rename", map[string]any{"token": cfg.Token, "id": uintToString(id), "name": name}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPatch, "/api/playgrounds/"+uintToString(id), map[string]any{"name": name}, out)
}

func doPlaygroundsDelete(ctx context.Context, cfg cliConfig, id uint) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "playgrounds.delete", map[string]any{"token": cfg.Token, "id": uintToString(id)}, nil)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodDelete, "/api/playgrounds/"+uintToString(id), nil, nil)
}

func doActionsAdd(ctx context.Context, cfg cliConfig, playgroundID, actionKindID uint, x, y float64, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "actions.add", map[string]any{
			"token":          cfg.Token,
			"playground_id":  uintToString(playgroundID),
			"action_kind_id": uintToString(actionKindID),
			"x":              x,
			"y":              y,
		}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/playgrounds/" + uintToString(playgroundID) + "/actions/" + uintToString(actionKindID)
	return client.request(ctx, http.MethodPost, path, map[string]any{"x": x, "y": y}, out)
}

func doActionsRemove(ctx context.Context, cfg cliConfig, playgroundID, instanceID uint) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "actions.remove", map[string]any{
			"token":         cfg.Token,
			"playground_id": uintToString(playgroundID),
			"instance_id":   uintToString(instanceID),
		}, nil)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/playgrounds/" + uintToString(playgroundID) + "/actions/" + uintToString(instanceID)
	return client.request(ctx, http.MethodDelete, path, nil, nil)
}

func doReactionsAdd(ctx context.Context, cfg cliConfig, playgroundID, reactionKindID uint, settings map[string]any, x, y float64, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "reactions.add", map[string]any{
			"token":            cfg.Token,
			"playground_id":    uintToString(playgroundID),
			"reaction_kind_id": uintToString(reactionKindID),
			"settings":         settings,
			"x":                x,
			"y":                y,
		}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/playgrounds/" + uintToString(playgroundID) + "/reactions/" + uintToString(reactionKindID)
	return client.request(ctx, http.MethodPost, path, map[string]any{"settings": settings, "x": x, "y": y}, out)
}

func doReactionsSettings(ctx context.Context, cfg cliConfig, playgroundID, instanceID uint, settings map[string]any, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "reactions.settings", map[string]any{
			"token":         cfg.Token,
			"playground_id": uintToString(playgroundID),
			"instance_id":   uintToString(instanceID),
			"settings":      settings,
		}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/playgrounds/" + uintToString(playgroundID) + "/reactions/" + uintToString(instanceID)
	return client.request(ctx, http.MethodPatch, path, map[string]any{"settings": settings}, out)
}

func doReactionsRemove(ctx context.Context, cfg cliConfig, playgroundID, instanceID uint) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "reactions.remove", map[string]any{
			"token":         cfg.Token,
			"playground_id": uintToString(playgroundID),
			"instance_id":   uintToString(instanceID),
		}, nil)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/playgrounds/" + uintToString(playgroundID) + "/reactions/" + uintToString(instanceID)
	return client.request(ctx, http.MethodDelete, path, nil, nil)
}

func doLinkCreate(ctx context.Context, cfg cliConfig, side string, triggerID, reactionID uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "links."+side+".create", map[string]any{
			"token":       cfg.Token,
			"trigger_id":  uintToString(triggerID),
			"reaction_id": uintToString(reactionID),
		}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	path := "/api/links/" + side + "/" + uintToString(triggerID) + "/" + uintToString(reactionID)
	return client.request(ctx, http.MethodPost, path, nil, out)
}

func doLinkDelete(ctx context.Context, cfg cliConfig, side string, linkID uint) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "links."+side+".delete", map[string]any{"token": cfg.Token, "link_id": uintToString(linkID)}, nil)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodDelete, "/api/links/"+side+"/"+uintToString(linkID), nil, nil)
}

func doCatalogActions(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.actions.list", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/catalog/actions", nil, out)
}

func doCatalogReactions(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "catalog.reactions.list", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/catalog/reactions", nil, out)
}

func uintToString(v uint) string {
	return fmt.Sprintf("%d", v)
}
