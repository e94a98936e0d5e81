package service

// Notifier propagates mutations to live subscribers so dashboards and map
// views re-fetch promptly. Delivery is best-effort; consumers treat every
// event as "something changed, re-read".
type Notifier interface {
	// PublishBusChanged announces a change to one bus. An empty busID
	// means a fleet-wide change with no single bus to point at.
	PublishBusChanged(busID string)
	PublishLocationCreated(busID string)
}

// NopNotifier is used in tests and when running without the realtime feed.
type NopNotifier struct{}

func (NopNotifier) PublishBusChanged(string)      {}
func (NopNotifier) PublishLocationCreated(string) {}
