// internal/models/chat.go
package models

// ChatRequest is the inbound chat turn.
type ChatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	TenantID       string `json:"tenantId"`
	Message        string `json:"message"`
	Locale         string `json:"locale,omitempty"`
}

// Citation is a source reference attached to a reply.
type Citation struct {
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet,omitempty"`
	URL        string  `json:"url,omitempty"`
	SourceType string  `json:"sourceType"` // "catalog" or "knowledge"
	Relevance  float64 `json:"relevance"`
}

// KnowledgeSource is a hit from the knowledge index.
type KnowledgeSource struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category,omitempty"`
	URL      string  `json:"url,omitempty"`
	Score    float64 `json:"score"`
}
