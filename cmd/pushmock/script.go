package main

import (
	"time"

	"github.com/rickgao/livenotify/internal/model"
)

type event struct {
	topic   string
	payload any
}

var sampleEvents = []event{
	{model.TopicClientUpdate, model.ClientUpdate{
		Action: "created",
		Client: model.ClientInfo{Name: "Acme Holdings", Email: "ops@acme.test", Status: "active", RiskLevel: "low"},
	}},
	{model.TopicTransactionUpdate, model.TransactionUpdate{
		Action:      "flagged",
		Transaction: model.TransactionInfo{Amount: 25000, Currency: "usd", Type: "wire", ClientName: "Acme Holdings", Reason: "amount above threshold"},
	}},
	{model.TopicAlertUpdate, model.AlertUpdate{
		Action: "triggered",
		Alert:  model.AlertInfo{Title: "Velocity check", Message: "5 transfers in 10 minutes", Severity: "high"},
	}},
	{model.TopicReportUpdate, model.ReportUpdate{
		Action: "completed",
		Report: model.ReportInfo{Name: "Daily SAR summary", Type: "compliance"},
	}},
	{model.TopicClientUpdate, model.ClientUpdate{
		Action: "risk_updated",
		Client: model.ClientInfo{Name: "Acme Holdings", RiskLevel: "critical"},
	}},
	{model.TopicTransactionUpdate, model.TransactionUpdate{
		Action:      "approved",
		Transaction: model.TransactionInfo{Amount: 25000, Currency: "usd", ClientName: "Acme Holdings"},
	}},
	{model.TopicSystemEvent, model.SystemEvent{
		EventType: "maintenance",
		Message:   "Scheduled maintenance at 02:00 UTC",
	}},
	{model.TopicReportUpdate, model.ReportUpdate{
		Action: "failed",
		Report: model.ReportInfo{Name: "Weekly exposure", Error: "upstream timeout"},
	}},
}

// script yields the envelopes one connection receives. Every dupEvery-th
// envelope is replayed verbatim and every staleEvery-th carries a timestamp
// older than the previous one for its topic, so both must be suppressed by
// the client.
type script struct {
	now        func() time.Time
	dupEvery   int
	staleEvery int

	n    int
	last map[string]model.Envelope
	prev *model.Envelope
}

func newScript(now func() time.Time, dupEvery, staleEvery int) *script {
	return &script{
		now:        now,
		dupEvery:   dupEvery,
		staleEvery: staleEvery,
		last:       make(map[string]model.Envelope),
	}
}

// next returns the next envelope and a label describing it.
func (s *script) next() (model.Envelope, string, error) {
	s.n++

	if s.dupEvery > 0 && s.prev != nil && s.n%s.dupEvery == 0 {
		return *s.prev, "duplicate", nil
	}

	ev := sampleEvents[s.n%len(sampleEvents)]
	ts := s.now().UTC()
	kind := "fresh"
	if last, ok := s.last[ev.topic]; ok && s.staleEvery > 0 && s.n%s.staleEvery == 0 {
		if prevTS, err := time.Parse(time.RFC3339Nano, last.Timestamp); err == nil {
			ts = prevTS.Add(-time.Second)
			kind = "stale"
		}
	}

	env, err := model.NewEnvelope(ev.topic, ev.payload, ts.Format(time.RFC3339Nano))
	if err != nil {
		return model.Envelope{}, "", err
	}
	if kind == "fresh" {
		s.last[ev.topic] = env
	}
	s.prev = &env
	return env, kind, nil
}
