package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r may be stored on a conversation message.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single conversation turn.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the LLM passthrough request.
type ChatRequest struct {
	UserMessage string `json:"userMessage"`
	Model       string `json:"model,omitempty"`
}

// ChatResponse is the LLM passthrough response.
type ChatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// TranscribeRequest points the speech-to-text gateway at remote audio.
type TranscribeRequest struct {
	AudioURL string `json:"audioUrl"`
}

// TranscribeResponse carries transcript text.
type TranscribeResponse struct {
	Text   string `json:"text"`
	Status string `json:"status"`
}

// SpeakRequest is the text-to-speech request.
type SpeakRequest struct {
	Text string `json:"text"`
}

// TokenEvent represents a streaming token event.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DoneEvent closes a chat stream with the full reply.
type DoneEvent struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}
