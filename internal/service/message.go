package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"smartline/internal/model"
	"smartline/internal/storage"
)

// MessageService keeps the chat-style confirmation log: inbound messages and
// the bot's replies.
type MessageService struct {
	store storage.Gateway
	now   func() time.Time
}

func NewMessageService(store storage.Gateway) *MessageService {
	return &MessageService{store: store, now: time.Now}
}

func (s *MessageService) Append(ctx context.Context, sender model.Sender, text string) (model.ChatMessage, error) {
	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now().UnixMilli(),
	}
	doc, err := storage.ToRecord(msg)
	if err != nil {
		return model.ChatMessage{}, err
	}
	if err := s.store.Write(ctx, storage.Insert{Kind: storage.EntityMessages, Record: doc}); err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

// List returns the log in chronological order.
func (s *MessageService) List(ctx context.Context) ([]model.ChatMessage, error) {
	records, err := s.store.Read(ctx, storage.EntityMessages)
	if err != nil {
		return nil, err
	}
	messages, err := storage.Decode[model.ChatMessage](records)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })
	return messages, nil
}
