package domain

import "time"

type Playground struct {
	ID        uint
	UserID    uint
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ActionKind struct {
	ID          uint
	Name        string
	Description string
	CreatedAt   time.Time
}

type ReactionKind struct {
	ID          uint
	Name        string
	Description string
	CreatedAt   time.Time
}

type ActionInstance struct {
	ID           uint
	PlaygroundID uint
	ActionKindID uint
	X            float64
	Y            float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ReactionInstance struct {
	ID             uint
	PlaygroundID   uint
	ReactionKindID uint
	Settings       map[string]any
	X              float64
	Y              float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ActionLink is a directed edge from an action instance to a reaction
// instance. ReactionLink chains one reaction instance into another.
// Both tables carry the same invariant: endpoints live in one playground.
type ActionLink struct {
	ID         uint
	TriggerID  uint
	ReactionID uint
	CreatedAt  time.Time
}

type ReactionLink struct {
	ID         uint
	TriggerID  uint
	ReactionID uint
	CreatedAt  time.Time
}

// PlaygroundGraph is the closed export of one playground: every link's
// endpoints are among the instances returned by the same export.
type PlaygroundGraph struct {
	Playground
	Actions       []ActionInstance
	Reactions     []ReactionInstance
	ActionLinks   []ActionLink
	ReactionLinks []ReactionLink
}

type User struct {
	ID           uint
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AuthSession struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}
