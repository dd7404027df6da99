package domain

import "time"

// SearchExecuted is emitted after the first page of a generation arrived.
type SearchExecuted struct {
	EventID      string    `json:"event_id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	Generation   uint64    `json:"generation"`
	Category     Category  `json:"category"`
	SearchText   string    `json:"search_text,omitempty"`
	Sort         SortMode  `json:"sort"`
	SortFallback bool      `json:"sort_fallback"`
	ResultCount  int       `json:"result_count"`
	HasMore      bool      `json:"has_more"`
	OccurredAt   time.Time `json:"occurred_at"`
}
