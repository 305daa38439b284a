// internal/chat/pipeline/models.go
package pipeline

import (
	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/chat/resolver"
	"commerce-chat/internal/models"
)

// Output is the fully rendered reply for one chat turn.
type Output struct {
	ConversationID    string                     `json:"conversationId"`
	ReplyText         string                     `json:"replyText"`
	CallToAction      string                     `json:"callToAction,omitempty"`
	ProductCarousel   []models.ProductCard       `json:"productCarousel"`
	FollowUpQuestions []string                   `json:"followUpQuestions"`
	Intent            string                     `json:"intent"`
	Sources           []models.Citation          `json:"sources"`
	Components        []components.ChatComponent `json:"components"`
	FallbackUsed      bool                       `json:"fallbackUsed,omitempty"`
	CacheHit          bool                       `json:"-"`
	Resolution        resolver.Metadata          `json:"-"`
}

// cacheKeyInput is the normalized probe hashed into the reply cache key.
type cacheKeyInput struct {
	TenantID string `json:"tenantId"`
	Message  string `json:"message"`
	Locale   string `json:"locale"`
}
