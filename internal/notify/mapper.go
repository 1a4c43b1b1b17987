package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rickgao/livenotify/internal/model"
)

// Map derives the user-facing content of a notification from an envelope.
// It never fails: unknown actions fall back to "<Entity> has been updated" at
// info severity, and entity fields of an unexpected type only degrade the
// body. ID and timestamps are left for the caller to fill.
func Map(env model.Envelope) model.Notification {
	var n model.Notification
	switch env.Topic() {
	case model.TopicClientUpdate:
		n = mapClient(env.Data)
	case model.TopicTransactionUpdate:
		n = mapTransaction(env.Data)
	case model.TopicAlertUpdate:
		n = mapAlert(env.Data)
	case model.TopicReportUpdate:
		n = mapReport(env.Data)
	case model.TopicSystemEvent:
		n = mapSystem(env.Data)
	default:
		n = updated(entityName(env.Topic()), "")
	}
	n.Topic = env.Topic()
	return n
}

// updated is the fallback for unrecognized actions.
func updated(entity, action string) model.Notification {
	return model.Notification{
		Action:   action,
		Severity: model.SeverityInfo,
		Title:    entity + " Updated",
		Body:     entity + " has been updated",
	}
}

func note(action string, sev model.Severity, title, body string) model.Notification {
	return model.Notification{Action: action, Severity: sev, Title: title, Body: body}
}

// ----------------------------------------------------------------------------
// Per-topic rules
// ----------------------------------------------------------------------------

func mapClient(data json.RawMessage) model.Notification {
	var p model.ClientUpdate
	decodePayload(data, &p)
	name := orDefault(p.Client.Name, "A client")

	switch p.Action {
	case "created":
		return note(p.Action, model.SeverityInfo, "New Client", name+" has been added")
	case "updated":
		return note(p.Action, model.SeverityInfo, "Client Updated", name+" has been updated")
	case "deleted":
		return note(p.Action, model.SeverityWarning, "Client Removed", name+" has been removed")
	case "risk_updated":
		level := strings.ToLower(p.Client.RiskLevel)
		sev := model.SeverityInfo
		if level == "high" || level == "critical" {
			sev = model.SeverityWarning
		}
		return note(p.Action, sev, "Client Risk Updated",
			fmt.Sprintf("%s risk level changed to %s", name, orDefault(level, "unknown")))
	default:
		return updated("Client", p.Action)
	}
}

func mapTransaction(data json.RawMessage) model.Notification {
	var p model.TransactionUpdate
	decodePayload(data, &p)
	subject := "Transaction of " + formatAmount(float64(p.Transaction.Amount), p.Transaction.Currency)
	if p.Transaction.ClientName != "" {
		subject += " for " + p.Transaction.ClientName
	}

	switch p.Action {
	case "created":
		return note(p.Action, model.SeverityInfo, "New Transaction", subject+" has been created")
	case "flagged":
		body := subject + " has been flagged for review"
		if p.Transaction.Reason != "" {
			body += ": " + p.Transaction.Reason
		}
		return note(p.Action, model.SeverityWarning, "Transaction Flagged", body)
	case "approved":
		return note(p.Action, model.SeverityInfo, "Transaction Approved", subject+" has been approved")
	case "rejected":
		return note(p.Action, model.SeverityWarning, "Transaction Rejected", subject+" has been rejected")
	case "completed":
		return note(p.Action, model.SeverityInfo, "Transaction Completed", subject+" has been completed")
	case "failed":
		return note(p.Action, model.SeverityError, "Transaction Failed", subject+" has failed")
	default:
		return updated("Transaction", p.Action)
	}
}

func mapAlert(data json.RawMessage) model.Notification {
	var p model.AlertUpdate
	decodePayload(data, &p)
	title := orDefault(p.Alert.Title, "Alert")

	switch p.Action {
	case "created", "triggered":
		return note(p.Action, alertSeverity(p.Alert.Severity), "New Alert: "+title,
			orDefault(p.Alert.Message, title+" has been triggered"))
	case "escalated":
		sev := model.SeverityWarning
		if alertSeverity(p.Alert.Severity) == model.SeverityError {
			sev = model.SeverityError
		}
		return note(p.Action, sev, "Alert Escalated", title+" has been escalated")
	case "acknowledged":
		return note(p.Action, model.SeverityInfo, "Alert Acknowledged", title+" has been acknowledged")
	case "resolved":
		return note(p.Action, model.SeverityInfo, "Alert Resolved", title+" has been resolved")
	default:
		return updated("Alert", p.Action)
	}
}

// alertSeverity maps the alert's own severity scale onto notification severity.
func alertSeverity(s string) model.Severity {
	switch strings.ToLower(s) {
	case "critical", "high":
		return model.SeverityError
	case "medium":
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

func mapReport(data json.RawMessage) model.Notification {
	var p model.ReportUpdate
	decodePayload(data, &p)
	name := orDefault(p.Report.Name, "Your report")

	switch p.Action {
	case "generated", "completed":
		return note(p.Action, model.SeverityInfo, "Report Ready", name+" is ready")
	case "scheduled":
		return note(p.Action, model.SeverityInfo, "Report Scheduled", name+" has been scheduled")
	case "failed":
		body := name + " failed to generate"
		if p.Report.Error != "" {
			body += ": " + p.Report.Error
		}
		return note(p.Action, model.SeverityError, "Report Failed", body)
	default:
		return updated("Report", p.Action)
	}
}

func mapSystem(data json.RawMessage) model.Notification {
	var p model.SystemEvent
	decodePayload(data, &p)
	kind := p.Kind()

	switch kind {
	case "maintenance":
		return note(kind, model.SeverityWarning, "Scheduled Maintenance",
			orDefault(p.Message, "System maintenance has been scheduled"))
	case "security_breach":
		return note(kind, model.SeverityError, "Security Alert",
			orDefault(p.Message, "A security incident has been detected"))
	case "outage":
		return note(kind, model.SeverityError, "Service Outage",
			orDefault(p.Message, "The service is currently unavailable"))
	case "service_degraded":
		return note(kind, model.SeverityWarning, "Service Degraded",
			orDefault(p.Message, "The service is experiencing degraded performance"))
	case "announcement":
		return note(kind, model.SeverityInfo, "Announcement",
			orDefault(p.Message, "A new announcement is available"))
	default:
		return updated("System", kind)
	}
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// decodePayload fills v as far as data allows. encoding/json skips a field
// whose JSON type does not match and keeps decoding the rest, so a readable
// action survives a mistyped entity field. Such type errors are ignored; a
// payload that is not an object leaves v zero.
func decodePayload(data json.RawMessage, v any) {
	_ = json.Unmarshal(data, v)
}

// formatAmount renders an amount without exponent or trailing zeros.
func formatAmount(amount float64, currency string) string {
	s := strconv.FormatFloat(amount, 'f', -1, 64)
	if currency != "" {
		s += " " + strings.ToUpper(currency)
	}
	return s
}

// entityName turns a topic such as "invoice_update" into "Invoice".
func entityName(topic string) string {
	word, _, _ := strings.Cut(topic, "_")
	if word == "" {
		return "Record"
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
