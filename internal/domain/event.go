package domain

import (
	"encoding/json"
	"time"
)

const (
	TopicAdminRequests = "admin:requests"
	TopicMarket        = "market"
	TopicAuth          = "auth"
)

func UserTopic(userID string) string {
	return "user:" + userID
}

const (
	EventBalanceChanged       = "balance.changed"
	EventDepositChanged       = "deposit.changed"
	EventWithdrawalChanged    = "withdrawal.changed"
	EventExchangeChanged      = "exchange.changed"
	EventMarketUpdated        = "market.updated"
	EventPaymentMethodUpdated = "payment_method.updated"
	EventSessionSignedIn      = "session.signed_in"
	EventSessionSignedOut     = "session.signed_out"
)

// Event is a change notification delivered to subscribers of Topic.
type Event struct {
	Topic     string          `json:"topic"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(topic, typ string, data any) Event {
	raw, _ := json.Marshal(data)
	return Event{Topic: topic, Type: typ, Data: raw, Timestamp: time.Now().UTC()}
}
