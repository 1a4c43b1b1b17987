package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Domain payloads carried in Envelope.Data
// -----------------------------------------------------------------------------

// ClientUpdate is the payload of a client_update message.
type ClientUpdate struct {
	Action string     `json:"action"` // "created", "updated", "deleted", "risk_updated"
	Client ClientInfo `json:"client"`
}

// ClientInfo describes the client entity an update refers to.
type ClientInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	RiskLevel string `json:"risk_level"` // "low", "medium", "high", "critical"
}

// TransactionUpdate is the payload of a transaction_update message.
type TransactionUpdate struct {
	Action      string          `json:"action"` // "created", "flagged", "approved", "rejected", "completed", "failed"
	Transaction TransactionInfo `json:"transaction"`
}

// TransactionInfo describes the transaction an update refers to.
type TransactionInfo struct {
	Amount     Amount  `json:"amount"`
	Currency   string  `json:"currency"`
	Type       string  `json:"type"`
	ClientName string  `json:"client_name"`
	Reason     string  `json:"reason"`
}

// AlertUpdate is the payload of an alert_update message.
type AlertUpdate struct {
	Action string    `json:"action"` // "created", "triggered", "escalated", "acknowledged", "resolved"
	Alert  AlertInfo `json:"alert"`
}

// AlertInfo describes the alert an update refers to.
type AlertInfo struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "low", "medium", "high", "critical"
}

// ReportUpdate is the payload of a report_update message.
type ReportUpdate struct {
	Action string     `json:"action"` // "generated", "completed", "scheduled", "failed"
	Report ReportInfo `json:"report"`
}

// ReportInfo describes the report an update refers to.
type ReportInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Error string `json:"error"`
}

// SystemEvent is the payload of a system_event message. Older servers send the
// event kind as event_type instead of action.
type SystemEvent struct {
	Action    string `json:"action"`
	EventType string `json:"event_type"`
	Message   string `json:"message"`
}

// Kind returns the event kind, preferring action over event_type.
func (e SystemEvent) Kind() string {
	if e.Action != "" {
		return e.Action
	}
	return e.EventType
}

// Amount is a monetary amount. Servers send it either as a JSON number or as
// a numeric string; any other value decodes as zero instead of failing the
// surrounding payload.
type Amount float64

// UnmarshalJSON accepts 150000, 150000.5 and "150000.00".
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*a = 0
			return nil
		}
		s = strings.TrimSpace(str)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}
