package hume

import "encoding/json"

// Frame types sent and received on the EVI chat socket.
const (
	TypeAudioInput    = "audio_input"
	TypeTranscription = "transcription"
	TypeUserMessage   = "user_message"
	TypeError         = "error"
)

type audioInput struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type envelope struct {
	Type string `json:"type"`
}

type transcriptionFrame struct {
	Text string `json:"text"`
}

type userMessageFrame struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Models struct {
		Prosody *struct {
			Scores map[string]float64 `json:"scores"`
		} `json:"prosody"`
	} `json:"models"`
}

type errorFrame struct {
	Code    string `json:"code"`
	Slug    string `json:"slug"`
	Message string `json:"message"`
}

func decode[T any](raw []byte) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
