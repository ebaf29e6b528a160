package model

// Sender distinguishes inbound chat text from system replies.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is one entry of the confirmation log: the raw inbound message
// plus the bot's confirmations and error replies.
type ChatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    Sender `json:"sender"`
	Timestamp int64  `json:"timestamp"`
}
