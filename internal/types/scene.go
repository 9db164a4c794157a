package types

import "time"

// DefaultSceneSeconds is the length Veo renders per scene.
const DefaultSceneSeconds = 8

type SceneStatus string

const (
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusGenerating SceneStatus = "generating"
	SceneStatusCompleted  SceneStatus = "completed"
	SceneStatusFailed     SceneStatus = "failed"
)

// ResourceHandle addresses a generated clip stored for the lifetime of a session.
type ResourceHandle struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

type Scene struct {
	ID             string          `json:"id"`
	Timestamp      string          `json:"timestamp"`
	Prompt         string          `json:"prompt"`
	Seconds        int             `json:"seconds"`
	Status         SceneStatus     `json:"status"`
	Video          *ResourceHandle `json:"video,omitempty"`
	ReferenceImage string          `json:"reference_image,omitempty"` // reserved
	Error          string          `json:"error,omitempty"`
}

func (s Scene) HasVideo() bool {
	return s.Video != nil
}

// StoryboardSeconds is the running time of the storyboard.
func StoryboardSeconds(scenes []Scene) int {
	total := 0
	for _, s := range scenes {
		total += s.Seconds
	}
	return total
}
