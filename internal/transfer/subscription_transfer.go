package transfer

import "time"

type SubscriptionEvent struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	CreatedAt int64  `json:"created_at"`
	Object    struct {
		ID       string `json:"id"`
		Object   string `json:"object"`
		Customer struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"customer"`
		Status                 string    `json:"status"`
		CurrentPeriodStartDate time.Time `json:"current_period_start_date"`
		CurrentPeriodEndDate   time.Time `json:"current_period_end_date"`
	} `json:"object"`
}
