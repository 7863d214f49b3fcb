package models

import "time"

// ChatThread is a two-party conversation created when a match is accepted.
type ChatThread struct {
	ID    string `json:"_id"`
	UserA string `json:"userA"`
	UserB string `json:"userB"`
}

// ChatMessage is a single message within a thread.
type ChatMessage struct {
	ID     string    `json:"_id"`
	Thread string    `json:"thread"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}
