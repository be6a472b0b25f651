package protocol

import "context"

// TriggerCallback receives trigger data from an ingress adapter.
type TriggerCallback func(ctx context.Context, data map[string]any) error

// TriggerSource is an external ingress feeding trigger events into the
// dispatcher, such as the redis queue consumer.
type TriggerSource interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
