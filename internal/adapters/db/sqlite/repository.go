package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AREA-equipe/app/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type PlaygroundRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewPlaygroundRepository(db *gorm.DB) *PlaygroundRepository {
	return &PlaygroundRepository{db: db}
}

func notFound(err error, subject string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", subject, domain.ErrNotFound)
	}
	return err
}

func (r *PlaygroundRepository) CreatePlayground(ctx context.Context, value domain.Playground) (domain.Playground, error) {
	m := PlaygroundModel{UserID: value.UserID, Name: value.Name}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Playground{}, err
	}

	return toPlayground(m), nil
}

func (r *PlaygroundRepository) ListPlaygrounds(ctx context.Context, userID uint) ([]domain.Playground, error) {
	rows := make([]PlaygroundModel, 0)
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.Playground, 0, len(rows))
	for _, m := range rows {
		result = append(result, toPlayground(m))
	}
	return result, nil
}

func (r *PlaygroundRepository) ListPlaygroundNames(ctx context.Context, userID uint) ([]string, error) {
	names := make([]string, 0)
	err := r.db.WithContext(ctx).Model(&PlaygroundModel{}).
		Where("user_id = ?", userID).
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *PlaygroundRepository) GetPlayground(ctx context.Context, id uint) (domain.Playground, error) {
	var m PlaygroundModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Playground{}, notFound(err, "playground")
	}
	return toPlayground(m), nil
}

func (r *PlaygroundRepository) RenamePlayground(ctx context.Context, id uint, name string) (domain.Playground, error) {
	res := r.db.WithContext(ctx).Model(&PlaygroundModel{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return domain.Playground{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Playground{}, fmt.Errorf("playground: %w", domain.ErrNotFound)
	}

	var m PlaygroundModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Playground{}, notFound(err, "playground")
	}
	return toPlayground(m), nil
}

// DeletePlayground removes the playground, its instances and every link
// incident to those instances in one transaction. A deletion that left an
// orphaned row behind would break the closed-export guarantee.
func (r *PlaygroundRepository) DeletePlayground(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m PlaygroundModel
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err, "playground")
		}

		if err := tx.Exec(`
DELETE FROM action_links
WHERE trigger_id IN (SELECT id FROM playground_actions WHERE playground_id = ?)
   OR reaction_id IN (SELECT id FROM playground_reactions WHERE playground_id = ?)
`, id, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
DELETE FROM reaction_links
WHERE trigger_id IN (SELECT id FROM playground_reactions WHERE playground_id = ?)
   OR reaction_id IN (SELECT id FROM playground_reactions WHERE playground_id = ?)
`, id, id).Error; err != nil {
			return err
		}
		if err := tx.Where("playground_id = ?", id).Delete(&ActionInstanceModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("playground_id = ?", id).Delete(&ReactionInstanceModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&PlaygroundModel{}, id).Error
	})
}

func (r *PlaygroundRepository) GetActionKind(ctx context.Context, id uint) (domain.ActionKind, error) {
	var m ActionKindModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.ActionKind{}, notFound(err, "action kind")
	}
	return domain.ActionKind{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) GetActionKindByName(ctx context.Context, name string) (domain.ActionKind, error) {
	var m ActionKindModel
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&m).Error; err != nil {
		return domain.ActionKind{}, notFound(err, "action kind")
	}
	return domain.ActionKind{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) ListActionKinds(ctx context.Context) ([]domain.ActionKind, error) {
	rows := make([]ActionKindModel, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ActionKind, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ActionKind{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt})
	}
	return result, nil
}

func (r *PlaygroundRepository) GetReactionKind(ctx context.Context, id uint) (domain.ReactionKind, error) {
	var m ReactionKindModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.ReactionKind{}, notFound(err, "reaction kind")
	}
	return domain.ReactionKind{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) GetReactionKindByName(ctx context.Context, name string) (domain.ReactionKind, error) {
	var m ReactionKindModel
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&m).Error; err != nil {
		return domain.ReactionKind{}, notFound(err, "reaction kind")
	}
	return domain.ReactionKind{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) ListReactionKinds(ctx context.Context) ([]domain.ReactionKind, error) {
	rows := make([]ReactionKindModel, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ReactionKind, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ReactionKind{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt})
	}
	return result, nil
}

func (r *PlaygroundRepository) CreateActionInstance(ctx context.Context, value domain.ActionInstance) (domain.ActionInstance, error) {
	var m ActionInstanceModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p PlaygroundModel
		if err := tx.First(&p, value.PlaygroundID).Error; err != nil {
			return notFound(err, "playground")
		}
		m = ActionInstanceModel{PlaygroundID: value.PlaygroundID, ActionKindID: value.ActionKindID, X: value.X, Y: value.Y}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.ActionInstance{}, err
	}
	return toActionInstance(m), nil
}

func (r *PlaygroundRepository) ListActionInstances(ctx context.Context, playgroundID uint) ([]domain.ActionInstance, error) {
	rows := make([]ActionInstanceModel, 0)
	if err := r.db.WithContext(ctx).Where("playground_id = ?", playgroundID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ActionInstance, 0, len(rows))
	for _, m := range rows {
		result = append(result, toActionInstance(m))
	}
	return result, nil
}

// DeleteActionInstance matches on the (id, playground_id) pair so an
// instance id belonging to another playground cannot be deleted through a
// guessed id. Incident links go in the same transaction.
func (r *PlaygroundRepository) DeleteActionInstance(ctx context.Context, playgroundID, instanceID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m ActionInstanceModel
		if err := tx.Where("id = ? AND playground_id = ?", instanceID, playgroundID).First(&m).Error; err != nil {
			return notFound(err, "action")
		}
		if err := tx.Where("trigger_id = ?", instanceID).Delete(&ActionLinkModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ActionInstanceModel{}, instanceID).Error
	})
}

func (r *PlaygroundRepository) CreateReactionInstance(ctx context.Context, value domain.ReactionInstance) (domain.ReactionInstance, error) {
	encoded, err := encodeSettings(value.Settings)
	if err != nil {
		return domain.ReactionInstance{}, err
	}

	var m ReactionInstanceModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p PlaygroundModel
		if err := tx.First(&p, value.PlaygroundID).Error; err != nil {
			return notFound(err, "playground")
		}
		m = ReactionInstanceModel{
			PlaygroundID:   value.PlaygroundID,
			ReactionKindID: value.ReactionKindID,
			Settings:       encoded,
			X:              value.X,
			Y:              value.Y,
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.ReactionInstance{}, err
	}
	return toReactionInstance(m), nil
}

func (r *PlaygroundRepository) ListReactionInstances(ctx context.Context, playgroundID uint) ([]domain.ReactionInstance, error) {
	rows := make([]ReactionInstanceModel, 0)
	if err := r.db.WithContext(ctx).Where("playground_id = ?", playgroundID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ReactionInstance, 0, len(rows))
	for _, m := range rows {
		result = append(result, toReactionInstance(m))
	}
	return result, nil
}

func (r *PlaygroundRepository) UpdateReactionSettings(ctx context.Context, playgroundID, instanceID uint, settings map[string]any) (domain.ReactionInstance, error) {
	encoded, err := encodeSettings(settings)
	if err != nil {
		return domain.ReactionInstance{}, err
	}

	res := r.db.WithContext(ctx).Model(&ReactionInstanceModel{}).
		Where("id = ? AND playground_id = ?", instanceID, playgroundID).
		Update("settings", encoded)
	if res.Error != nil {
		return domain.ReactionInstance{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ReactionInstance{}, fmt.Errorf("reaction: %w", domain.ErrNotFound)
	}

	var m ReactionInstanceModel
	if err := r.db.WithContext(ctx).First(&m, instanceID).Error; err != nil {
		return domain.ReactionInstance{}, notFound(err, "reaction")
	}
	return toReactionInstance(m), nil
}

// DeleteReactionInstance cascades every link the instance participates in:
// action links targeting it, reaction links triggered by it and reaction
// links targeting it.
func (r *PlaygroundRepository) DeleteReactionInstance(ctx context.Context, playgroundID, instanceID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m ReactionInstanceModel
		if err := tx.Where("id = ? AND playground_id = ?", instanceID, playgroundID).First(&m).Error; err != nil {
			return notFound(err, "reaction")
		}
		if err := tx.Where("reaction_id = ?", instanceID).Delete(&ActionLinkModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trigger_id = ? OR reaction_id = ?", instanceID, instanceID).Delete(&ReactionLinkModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ReactionInstanceModel{}, instanceID).Error
	})
}

// CreateActionLink resolves both endpoints and compares their playgrounds
// inside one transaction, so an instance deleted concurrently fails the
// read instead of leaving a dangling edge.
func (r *PlaygroundRepository) CreateActionLink(ctx context.Context, triggerID, reactionID uint) (domain.ActionLink, error) {
	var m ActionLinkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trigger ActionInstanceModel
		if err := tx.First(&trigger, triggerID).Error; err != nil {
			return notFound(err, "trigger")
		}
		var reaction ReactionInstanceModel
		if err := tx.First(&reaction, reactionID).Error; err != nil {
			return notFound(err, "reaction")
		}
		if trigger.PlaygroundID != reaction.PlaygroundID {
			return fmt.Errorf("trigger and reaction are not in the same playground: %w", domain.ErrInvalidArgument)
		}
		m = ActionLinkModel{TriggerID: triggerID, ReactionID: reactionID}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.ActionLink{}, err
	}
	return domain.ActionLink{ID: m.ID, TriggerID: m.TriggerID, ReactionID: m.ReactionID, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) ListActionLinksByTrigger(ctx context.Context, triggerID uint) ([]domain.ActionLink, error) {
	rows := make([]ActionLinkModel, 0)
	if err := r.db.WithContext(ctx).Where("trigger_id = ?", triggerID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ActionLink, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ActionLink{ID: m.ID, TriggerID: m.TriggerID, ReactionID: m.ReactionID, CreatedAt: m.CreatedAt})
	}
	return result, nil
}

func (r *PlaygroundRepository) DeleteActionLink(ctx context.Context, linkID uint) error {
	res := r.db.WithContext(ctx).Delete(&ActionLinkModel{}, linkID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("link: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *PlaygroundRepository) CreateReactionLink(ctx context.Context, triggerID, reactionID uint) (domain.ReactionLink, error) {
	var m ReactionLinkModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trigger ReactionInstanceModel
		if err := tx.First(&trigger, triggerID).Error; err != nil {
			return notFound(err, "trigger")
		}
		var reaction ReactionInstanceModel
		if err := tx.First(&reaction, reactionID).Error; err != nil {
			return notFound(err, "reaction")
		}
		if trigger.PlaygroundID != reaction.PlaygroundID {
			return fmt.Errorf("trigger and reaction are not in the same playground: %w", domain.ErrInvalidArgument)
		}
		m = ReactionLinkModel{TriggerID: triggerID, ReactionID: reactionID}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.ReactionLink{}, err
	}
	return domain.ReactionLink{ID: m.ID, TriggerID: m.TriggerID, ReactionID: m.ReactionID, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) ListReactionLinksByTrigger(ctx context.Context, triggerID uint) ([]domain.ReactionLink, error) {
	rows := make([]ReactionLinkModel, 0)
	if err := r.db.WithContext(ctx).Where("trigger_id = ?", triggerID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ReactionLink, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ReactionLink{ID: m.ID, TriggerID: m.TriggerID, ReactionID: m.ReactionID, CreatedAt: m.CreatedAt})
	}
	return result, nil
}

func (r *PlaygroundRepository) DeleteReactionLink(ctx context.Context, linkID uint) error {
	res := r.db.WithContext(ctx).Delete(&ReactionLinkModel{}, linkID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("link: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *PlaygroundRepository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{Email: strings.ToLower(strings.TrimSpace(value.Email)), PasswordHash: value.PasswordHash}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}

func (r *PlaygroundRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error
	return count, err
}

func (r *PlaygroundRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&m).Error; err != nil {
		return domain.User{}, notFound(err, "user")
	}
	return domain.User{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}

func (r *PlaygroundRepository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.User{}, notFound(err, "user")
	}
	return domain.User{ID: m.ID, Email: m.Email, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}, nil
}

func (r *PlaygroundRepository) CreateSession(ctx context.Context, value domain.AuthSession) (domain.AuthSession, error) {
	m := SessionModel{UserID: value.UserID, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.AuthSession{}, err
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.AuthSession, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.AuthSession{}, notFound(err, "session")
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&SessionModel{}).Error
}

func (r *PlaygroundRepository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{UserID: value.UserID, Name: value.Name, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIToken{}, err
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *PlaygroundRepository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, notFound(err, "api token")
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func toPlayground(m PlaygroundModel) domain.Playground {
	return domain.Playground{ID: m.ID, UserID: m.UserID, Name: m.Name, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func toActionInstance(m ActionInstanceModel) domain.ActionInstance {
	return domain.ActionInstance{
		ID:           m.ID,
		PlaygroundID: m.PlaygroundID,
		ActionKindID: m.ActionKindID,
		X:            m.X,
		Y:            m.Y,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toReactionInstance(m ReactionInstanceModel) domain.ReactionInstance {
	return domain.ReactionInstance{
		ID:             m.ID,
		PlaygroundID:   m.PlaygroundID,
		ReactionKindID: m.ReactionKindID,
		Settings:       decodeSettings(m.Settings),
		X:              m.X,
		Y:              m.Y,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func encodeSettings(settings map[string]any) (string, error) {
	if settings == nil {
		return "{}", nil
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("settings are not serializable: %w", domain.ErrInvalidArgument)
	}
	return string(b), nil
}

func decodeSettings(raw string) map[string]any {
	settings := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return settings
	}
	_ = json.Unmarshal([]byte(raw), &settings)
	return settings
}
