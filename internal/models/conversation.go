package models

import "time"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type ConversationTurn struct {
	Speaker Speaker   `json:"type"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// AudioBlob is recorded audio as received from a capture device.
type AudioBlob struct {
	Data     []byte
	MIMEType string
}

// TurnResult is what one processed utterance yields.
type TurnResult struct {
	Transcript    string `json:"transcript"`
	Response      string `json:"response"`
	Audio         []byte `json:"-"`
	AudioMIMEType string `json:"audio_mime_type"`
}
