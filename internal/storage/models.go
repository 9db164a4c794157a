package storage

import (
	"time"

	"veo-director/internal/types"
)

type SessionRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	VideoFileName string `gorm:"size:255"`
	VideoMimeType string `gorm:"size:64"`
	VideoSize     int64
	VideoPath     string               `gorm:"size:1024"`
	Analysis      *types.VideoAnalysis `gorm:"serializer:json"`
	Style         string               `gorm:"size:32"`
	IsAnalyzing   bool
	IsStitching   bool
	Error         string
	Version       uint64
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
	Scenes        []SceneRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (SessionRecord) TableName() string { return "sessions" }

type SceneRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	SessionID      string `gorm:"index;size:36"`
	Position       int
	Timestamp      string `gorm:"size:64"`
	Prompt         string
	Seconds        int
	Status         string                `gorm:"size:16;index"`
	Video          *types.ResourceHandle `gorm:"serializer:json"`
	ReferenceImage string
	Error          string
}

func (SceneRecord) TableName() string { return "scenes" }

func toRecord(state types.SessionState) SessionRecord {
	rec := SessionRecord{
		ID:          state.ID,
		Analysis:    state.Analysis,
		Style:       string(state.Style),
		IsAnalyzing: state.IsAnalyzing,
		IsStitching: state.IsStitching,
		Error:       state.Error,
		Version:     state.Version,
		CreatedAt:   state.CreatedAt,
		UpdatedAt:   state.UpdatedAt,
	}
	if v := state.Video; v != nil {
		rec.VideoFileName = v.FileName
		rec.VideoMimeType = v.MimeType
		rec.VideoSize = v.Size
		rec.VideoPath = v.Path
	}
	for i, sc := range state.Scenes {
		rec.Scenes = append(rec.Scenes, SceneRecord{
			ID:             sc.ID,
			SessionID:      state.ID,
			Position:       i,
			Timestamp:      sc.Timestamp,
			Prompt:         sc.Prompt,
			Seconds:        sc.Seconds,
			Status:         string(sc.Status),
			Video:          sc.Video,
			ReferenceImage: sc.ReferenceImage,
			Error:          sc.Error,
		})
	}
	return rec
}

func (r SessionRecord) toState() types.SessionState {
	state := types.SessionState{
		ID:          r.ID,
		Analysis:    r.Analysis,
		Scenes:      make([]types.Scene, 0, len(r.Scenes)),
		Style:       types.Style(r.Style),
		IsAnalyzing: r.IsAnalyzing,
		IsStitching: r.IsStitching,
		Error:       r.Error,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.VideoFileName != "" || r.VideoPath != "" {
		state.Video = &types.VideoSource{
			FileName: r.VideoFileName,
			MimeType: r.VideoMimeType,
			Size:     r.VideoSize,
			Path:     r.VideoPath,
		}
	}
	for _, sc := range r.Scenes {
		state.Scenes = append(state.Scenes, types.Scene{
			ID:             sc.ID,
			Timestamp:      sc.Timestamp,
			Prompt:         sc.Prompt,
			Seconds:        sc.Seconds,
			Status:         types.SceneStatus(sc.Status),
			Video:          sc.Video,
			ReferenceImage: sc.ReferenceImage,
			Error:          sc.Error,
		})
	}
	state.TotalSeconds = types.StoryboardSeconds(state.Scenes)
	return state
}
