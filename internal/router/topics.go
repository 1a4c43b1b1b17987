package router

import "github.com/rickgao/livenotify/internal/model"

// SubscribeClientUpdates subscribes h to client_update.
func (r *Registry) SubscribeClientUpdates(h Handler) func() {
	return r.Subscribe(model.TopicClientUpdate, h)
}

// SubscribeTransactionUpdates subscribes h to transaction_update.
func (r *Registry) SubscribeTransactionUpdates(h Handler) func() {
	return r.Subscribe(model.TopicTransactionUpdate, h)
}

// SubscribeAlertUpdates subscribes h to alert_update.
func (r *Registry) SubscribeAlertUpdates(h Handler) func() {
	return r.Subscribe(model.TopicAlertUpdate, h)
}

// SubscribeReportUpdates subscribes h to report_update.
func (r *Registry) SubscribeReportUpdates(h Handler) func() {
	return r.Subscribe(model.TopicReportUpdate, h)
}

// SubscribeSystemEvents subscribes h to system_event.
func (r *Registry) SubscribeSystemEvents(h Handler) func() {
	return r.Subscribe(model.TopicSystemEvent, h)
}
