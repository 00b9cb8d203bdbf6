package storage

import "time"

type InternalDeadline struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartAt     string    `json:"startAt"`
	EndAt       string    `json:"endAt"`
	Status      int       `json:"status"`
	DelayReason string    `json:"delayReason"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type DeadlineItem struct {
	Name        string `json:"name"`
	StartAt     string `json:"startAt"`
	EndAt       string `json:"endAt"`
	Status      int    `json:"status"`
	DelayReason string `json:"delayReason,omitempty"`
}

type DeadlinesPayload struct {
	OrderID int64          `json:"orderId"`
	Items   []DeadlineItem `json:"items"`
}
