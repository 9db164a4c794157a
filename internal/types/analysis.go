package types

// VideoAnalysis is the structured description returned by the analysis model.
// It is produced once per analysis call and never mutated afterwards.
type VideoAnalysis struct {
	Environment EnvironmentAnalysis `json:"environment"`
	Character   CharacterAnalysis   `json:"character"`
	Audio       AudioAnalysis       `json:"audio"`
	Camera      CameraAnalysis      `json:"camera"`
	ArtStyle    ArtStyleAnalysis    `json:"art_style"`
}

type EnvironmentAnalysis struct {
	Space           string `json:"space"`
	Time            string `json:"time"`
	WeatherLighting string `json:"weather_lighting"`
}

type CharacterAnalysis struct {
	Demographics   string `json:"demographics"`
	Outfit         string `json:"outfit"`
	EmotionGesture string `json:"emotion_gesture"`
	MainAction     string `json:"main_action"`
}

type AudioAnalysis struct {
	Dialogue         string `json:"dialogue"`
	EnvironmentSound string `json:"environment_sound"`
	Music            string `json:"music"`
}

type CameraAnalysis struct {
	Angle    string `json:"angle"`
	Movement string `json:"movement"`
	Pacing   string `json:"pacing"`
	Style    string `json:"style"`
}

type ArtStyleAnalysis struct {
	StyleType     string `json:"style_type"`
	ColorTone     string `json:"color_tone"`
	LightingStyle string `json:"lighting_style"`
}

// AnalysisFields lists the five sub-records and their fields in schema order.
// Gateways build their response schemas from it.
var AnalysisFields = []struct {
	Name   string
	Fields []string
}{
	{Name: "environment", Fields: []string{"space", "time", "weather_lighting"}},
	{Name: "character", Fields: []string{"demographics", "outfit", "emotion_gesture", "main_action"}},
	{Name: "audio", Fields: []string{"dialogue", "environment_sound", "music"}},
	{Name: "camera", Fields: []string{"angle", "movement", "pacing", "style"}},
	{Name: "art_style", Fields: []string{"style_type", "color_tone", "lighting_style"}},
}

// SceneDescriptor is one raw storyboard entry returned by the scripting model.
type SceneDescriptor struct {
	Timestamp string `json:"timestamp"`
	VeoPrompt string `json:"veo_prompt"`
}
