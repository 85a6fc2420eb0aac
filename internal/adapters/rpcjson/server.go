package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/AREA-equipe/app/internal/application"
	"github.com/AREA-equipe/app/internal/domain"
)

// Server exposes the playground operations over a unix socket for local
// tooling, next to the HTTP API.
type Server struct {
	service  *application.PlaygroundService
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.PlaygroundService) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "auth.login":
		return s.handleAuthLogin(ctx, req)
	case "auth.whoami":
		user, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		return result(req.ID, map[string]any{"id": user.ID, "email": user.Email})
	case "playgrounds.list":
		user, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.ListPlaygrounds(ctx, user.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "playgrounds.create":
		user, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.CreatePlayground(ctx, user.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "playgrounds.get":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			ID    string `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		id, err := domain.ParseID(p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		out, err := s.service.GetPlayground(ctx, id)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "playgrounds.rename":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			ID    string `json:"id"`
			Name  string `json:"name"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		id, err := domain.ParseID(p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		out, err := s.service.RenamePlayground(ctx, id, p.Name)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "playgrounds.delete":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token string `json:"token"`
			ID    string `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		id, err := domain.ParseID(p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		if err := s.service.DeletePlayground(ctx, id); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"success": true})
	case "actions.add":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token        string  `json:"token"`
			PlaygroundID string  `json:"playground_id"`
			ActionKindID string  `json:"action_kind_id"`
			X            float64 `json:"x"`
			Y            float64 `json:"y"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		playgroundID, err := domain.ParseID(p.PlaygroundID)
		if err != nil {
			return appError(req.ID, err)
		}
		kindID, err := domain.ParseID(p.ActionKindID)
		if err != nil {
			return appError(req.ID, err)
		}
		out, err := s.service.AddActionInstance(ctx, playgroundID, kindID, p.X, p.Y)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "actions.remove":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token        string `json:"token"`
			PlaygroundID string `json:"playground_id"`
			InstanceID   string `json:"instance_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		playgroundID, err := domain.ParseID(p.PlaygroundID)
		if err != nil {
			return appError(req.ID, err)
		}
		instanceID, err := domain.ParseID(p.InstanceID)
		if err != nil {
			return appError(req.ID, err)
		}
		if err := s.service.RemoveActionInstance(ctx, playgroundID, instanceID); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"success": true})
	case "reactions.add":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token          string         `json:"token"`
			PlaygroundID   string         `json:"playground_id"`
			ReactionKindID string         `json:"reaction_kind_id"`
			Settings       map[string]any `json:"settings"`
			X              float64        `json:"x"`
			Y              float64        `json:"y"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		playgroundID, err := domain.ParseID(p.PlaygroundID)
		if err != nil {
			return appError(req.ID, err)
		}
		kindID, err := domain.ParseID(p.ReactionKindID)
		if err != nil {
			return appError(req.ID, err)
		}
		out, err := s.service.AddReactionInstance(ctx, playgroundID, kindID, p.Settings, p.X, p.Y)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "reactions.settings":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token        string         `json:"token"`
			PlaygroundID string         `json:"playground_id"`
			InstanceID   string         `json:"instance_id"`
			Settings     map[string]any `json:"settings"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		playgroundID, err := domain.ParseID(p.PlaygroundID)
		if err != nil {
			return appError(req.ID, err)
		}
		instanceID, err := domain.ParseID(p.InstanceID)
		if err != nil {
			return appError(req.ID, err)
		}
		out, err := s.service.UpdateReactionSettings(ctx, playgroundID, instanceID, p.Settings)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "reactions.remove":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		var p struct {
			Token        string `json:"token"`
			PlaygroundID string `json:"playground_id"`
			InstanceID   string `json:"instance_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		playgroundID, err := domain.ParseID(p.PlaygroundID)
		if err != nil {
			return appError(req.ID, err)
		}
		instanceID, err := domain.ParseID(p.InstanceID)
		if err != nil {
			return appError(req.ID, err)
		}
		if err := s.service.RemoveReactionInstance(ctx, playgroundID, instanceID); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"success": true})
	case "links.action.create":
		return s.handleLink(ctx, req, func(ctx context.Context, triggerID, reactionID uint) (any, error) {
			return s.service.LinkAction(ctx, triggerID, reactionID)
		})
	case "links.reaction.create":
		return s.handleLink(ctx, req, func(ctx context.Context, triggerID, reactionID uint) (any, error) {
			return s.service.LinkReaction(ctx, triggerID, reactionID)
		})
	case "links.action.delete":
		return s.handleUnlink(ctx, req, s.service.UnlinkAction)
	case "links.reaction.delete":
		return s.handleUnlink(ctx, req, s.service.UnlinkReaction)
	case "catalog.actions.list":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.ListActionKinds(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "catalog.reactions.list":
		_, rpcResp, ok := s.authz(ctx, req)
		if !ok {
			return rpcResp
		}
		out, err := s.service.ListReactionKinds(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) handleLink(ctx context.Context, req request, create func(ctx context.Context, triggerID, reactionID uint) (any, error)) response {
	_, rpcResp, ok := s.authz(ctx, req)
	if !ok {
		return rpcResp
	}
	var p struct {
		Token      string `json:"token"`
		TriggerID  string `json:"trigger_id"`
		ReactionID string `json:"reaction_id"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	triggerID, err := domain.ParseID(p.TriggerID)
	if err != nil {
		return appError(req.ID, err)
	}
	reactionID, err := domain.ParseID(p.ReactionID)
	if err != nil {
		return appError(req.ID, err)
	}
	out, err := create(ctx, triggerID, reactionID)
	if err != nil {
		return appError(req.ID, err)
	}
	return result(req.ID, out)
}

func (s *Server) handleUnlink(ctx context.Context, req request, remove func(ctx context.Context, linkID uint) error) response {
	_, rpcResp, ok := s.authz(ctx, req)
	if !ok {
		return rpcResp
	}
	var p struct {
		Token  string `json:"token"`
		LinkID string `json:"link_id"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	linkID, err := domain.ParseID(p.LinkID)
	if err != nil {
		return appError(req.ID, err)
	}
	if err := remove(ctx, linkID); err != nil {
		return appError(req.ID, err)
	}
	return result(req.ID, map[string]any{"success": true})
}

func (s *Server) handleAuthLogin(ctx context.Context, req request) response {
	var p struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		TokenName string `json:"token_name"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	u, token, err := s.service.LoginWithAPIToken(ctx, p.Email, p.Password, p.TokenName, nil)
	if err != nil {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "invalid credentials"}, ID: req.ID}
	}
	return result(req.ID, map[string]any{"user_id": u.ID, "email": u.Email, "token": token})
}

func (s *Server) authz(ctx context.Context, req request) (domain.User, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.User{}, invalidParams(req.ID), false
	}
	user, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return domain.User{}, response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "unauthorized"}, ID: req.ID}, false
	}
	return user, response{}, true
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func result(id any, v any) response {
	return response{JSONRPC: "2.0", Result: v, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	code := 50000
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = 40400
	case errors.Is(err, domain.ErrInvalidArgument):
		code = 40000
	case errors.Is(err, domain.ErrConflict):
		code = 40900
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: fmt.Sprintf("%v", err)}, ID: id}
}
