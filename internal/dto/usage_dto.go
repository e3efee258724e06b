package dto

import "github.com/google/uuid"

// ReportUsageRequest is the "usage observed" event from the chat/streaming
// collaborator, delivered over HTTP or NATS. Rates are decimal strings; empty
// means the model is unpriced and the usage is recorded at zero cost.
type ReportUsageRequest struct {
	UserId               uuid.UUID  `json:"user_id" validate:"required"`
	ModelId              string     `json:"model_id" validate:"required"`
	PromptTokens         int64      `json:"prompt_tokens" validate:"gte=0"`
	CompletionTokens     int64      `json:"completion_tokens" validate:"gte=0"`
	CostPerMillionInput  string     `json:"cost_per_million_input,omitempty"`
	CostPerMillionOutput string     `json:"cost_per_million_output,omitempty"`
	MessageId            *uuid.UUID `json:"message_id,omitempty"`
	Class                string     `json:"class" validate:"omitempty,oneof=usage self_usage"`
}
