package types

import "time"

// VideoSource is the uploaded clip a session analyses.
type VideoSource struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Path     string `json:"-"`
}

// SessionState is the full observable state of one workflow.
// IsAnalyzing gates analysis and scripting; IsStitching gates the batch job.
type SessionState struct {
	ID       string         `json:"id"`
	Video    *VideoSource   `json:"video,omitempty"`
	Analysis *VideoAnalysis `json:"analysis,omitempty"`
	Scenes   []Scene        `json:"scenes"`
	Style    Style          `json:"style"`
	// TotalSeconds is derived from the scenes on every transition.
	TotalSeconds int       `json:"total_seconds"`
	IsAnalyzing  bool      `json:"is_analyzing"`
	IsStitching  bool      `json:"is_stitching"`
	Error        string    `json:"error,omitempty"`
	Version      uint64    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to observers.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Video != nil {
		v := *s.Video
		out.Video = &v
	}
	if s.Analysis != nil {
		a := *s.Analysis
		out.Analysis = &a
	}
	out.Scenes = make([]Scene, len(s.Scenes))
	for i, scene := range s.Scenes {
		if scene.Video != nil {
			h := *scene.Video
			scene.Video = &h
		}
		out.Scenes[i] = scene
	}
	return out
}

func (s SessionState) SceneIndex(id string) int {
	for i := range s.Scenes {
		if s.Scenes[i].ID == id {
			return i
		}
	}
	return -1
}
