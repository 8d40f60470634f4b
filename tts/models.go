package tts

// VoiceOption describes one selectable synthesizer voice.
type VoiceOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Language    string `json:"language"`
	Description string `json:"description,omitempty"`
}

// SpeechRequest is the input to one synthesis call.
type SpeechRequest struct {
	Text    string
	VoiceID string
	Format  string
}

// SpeechResult carries the synthesized audio bytes and their metadata.
type SpeechResult struct {
	VoiceID  string
	Audio    []byte
	MimeType string
	Provider string
}
