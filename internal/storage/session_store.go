package storage

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"veo-director/internal/session"
	"veo-director/internal/types"
)

// SessionStore mirrors session snapshots into sqlite.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// SaveSession upserts the session row and replaces its scenes. A snapshot
// older than the stored one is ignored.
func (s *SessionStore) SaveSession(ctx context.Context, state types.SessionState) error {
	if s.db == nil {
		return errors.New("database not initialized")
	}
	rec := toRecord(state)
	scenes := rec.Scenes
	rec.Scenes = nil

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored SessionRecord
		err := tx.Select("version").Where("id = ?", rec.ID).Take(&stored).Error
		switch {
		case err == nil:
			if stored.Version > rec.Version {
				return nil
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err = tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return err
		}

		ids := lo.Map(scenes, func(sc SceneRecord, _ int) string { return sc.ID })
		stale := tx.Where("session_id = ?", rec.ID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		if err = stale.Delete(&SceneRecord{}).Error; err != nil {
			return err
		}
		if len(scenes) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&scenes).Error
	})
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database not initialized")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&SceneRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&SessionRecord{}).Error
	})
}

// LoadSessions returns every stored session, oldest first, scenes in storyboard order.
func (s *SessionStore) LoadSessions(ctx context.Context) ([]types.SessionState, error) {
	if s.db == nil {
		return nil, errors.New("database not initialized")
	}
	var records []SessionRecord
	err := s.db.WithContext(ctx).
		Preload("Scenes", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r SessionRecord, _ int) types.SessionState { return r.toState() }), nil
}

// MarkStaleSessions fails every scene left generating and clears the busy
// flags of every session. Call it at startup, before LoadSessions.
func (s *SessionStore) MarkStaleSessions(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, errors.New("database not initialized")
	}
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scenes := tx.Model(&SceneRecord{}).
			Where("status = ?", string(types.SceneStatusGenerating)).
			Updates(map[string]interface{}{
				"status": string(types.SceneStatusFailed),
				"video":  nil,
				"error":  session.InterruptedMessage,
			})
		if scenes.Error != nil {
			return scenes.Error
		}
		affected = scenes.RowsAffected

		return tx.Model(&SessionRecord{}).
			Where("is_analyzing = ? OR is_stitching = ?", true, true).
			Updates(map[string]interface{}{
				"is_analyzing": false,
				"is_stitching": false,
			}).Error
	})
	return affected, err
}
