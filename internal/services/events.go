package services

import (
	"log"
	"time"

	"userapi/internal/models"
)

// Lifecycle event names published on user changes.
const (
	EventUserRegistered = "user.registered"
	EventUserDeleted    = "user.deleted"
)

// EventPublisher delivers user lifecycle events to a broker.
type EventPublisher interface {
	PublishUserEvent(event map[string]interface{}) error
}

func publish(p EventPublisher, name string, user *models.User) {
	if p == nil {
		return
	}
	event := map[string]interface{}{
		"event":   name,
		"user_id": user.ID,
		"email":   user.Email,
		"at":      time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.PublishUserEvent(event); err != nil {
		log.Printf("Failed to publish %s for user %s: %v", name, user.ID, err)
	}
}
