package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/predictprotocol/walletauth/ports"
)

const (
	LoginTopic  = "walletauth.login"
	LogoutTopic = "walletauth.logout"
)

// LoginEvent represents a successful wallet authentication
type LoginEvent struct {
	Address string `json:"address"`
	UserID  string `json:"user_id"`
}

// LogoutEvent represents a logout
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address string, userID string) error {
	return p.publish(LoginTopic, uuid.New().String(), LoginEvent{
		Address: address,
		UserID:  userID,
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(LogoutTopic, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

func (p *WatermillPublisher) publish(topic, msgID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.publisher.Publish(topic, message.NewMessage(msgID, payload)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
