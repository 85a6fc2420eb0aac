package sqlite

import "time"

type PlaygroundModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PlaygroundModel) TableName() string { return "playgrounds" }

type ActionKindModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
	CreatedAt   time.Time
}

func (ActionKindModel) TableName() string { return "action_kinds" }

type ReactionKindModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
	CreatedAt   time.Time
}

func (ReactionKindModel) TableName() string { return "reaction_kinds" }

type ActionInstanceModel struct {
	ID           uint `gorm:"primaryKey"`
	PlaygroundID uint `gorm:"not null;index"`
	ActionKindID uint `gorm:"not null;index"`
	X            float64
	Y            float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ActionInstanceModel) TableName() string { return "playground_actions" }

type ReactionInstanceModel struct {
	ID             uint   `gorm:"primaryKey"`
	PlaygroundID   uint   `gorm:"not null;index"`
	ReactionKindID uint   `gorm:"not null;index"`
	Settings       string `gorm:"not null;default:'{}'"`
	X              float64
	Y              float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ReactionInstanceModel) TableName() string { return "playground_reactions" }

type ActionLinkModel struct {
	ID         uint `gorm:"primaryKey"`
	TriggerID  uint `gorm:"not null;index"`
	ReactionID uint `gorm:"not null;index"`
	CreatedAt  time.Time
}

func (ActionLinkModel) TableName() string { return "action_links" }

type ReactionLinkModel struct {
	ID         uint `gorm:"primaryKey"`
	TriggerID  uint `gorm:"not null;index"`
	ReactionID uint `gorm:"not null;index"`
	CreatedAt  time.Time
}

func (ReactionLinkModel) TableName() string { return "reaction_links" }

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type SessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }
