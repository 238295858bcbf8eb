package domain

import "time"

// Contact is the slice of the user record the notification worker needs.
// Events carry it inline so the worker never has to resolve users itself.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type OrderCreatedEvent struct {
	Order     Order     `json:"order"`
	Customer  Contact   `json:"customer"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	Order     Order     `json:"order"`
	Customer  Contact   `json:"customer"`
	Timestamp time.Time `json:"timestamp"`
}
