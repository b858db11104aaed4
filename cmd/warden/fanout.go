package main

import (
	"context"
	"time"

	"github.com/platinummonkey/warden/pkg/async"
	"github.com/platinummonkey/warden/pkg/automation"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/webhooks"
)

const fanoutTimeout = 30 * time.Second

// fanout publishes each event through the base publisher and then, off
// the request path, delivers it to subscribed webhooks and fires matching
// automation rules. Fan-out failures are logged; the publish itself never
// fails because of them.
type fanout struct {
	base       events.Publisher
	dispatcher *webhooks.Dispatcher
	automation *automation.Service
	log        *observability.Logger
}

func newFanout(base events.Publisher, dispatcher *webhooks.Dispatcher, automationService *automation.Service, log *observability.Logger) *fanout {
	return &fanout{
		base:       base,
		dispatcher: dispatcher,
		automation: automationService,
		log:        log,
	}
}

// Publish forwards the event and schedules the side-channel deliveries
func (f *fanout) Publish(ctx context.Context, event *events.Event) error {
	if err := f.base.Publish(ctx, event); err != nil {
		return err
	}

	name := event.Name
	orgID := event.OrganizationID
	input := map[string]interface{}{
		"event":           name,
		"organization_id": orgID,
	}
	for k, v := range event.Data {
		input[k] = v
	}

	async.SafeGo(context.Background(), fanoutTimeout, "webhook dispatch", f.log, func(ctx context.Context) error {
		return f.dispatcher.Dispatch(ctx, orgID, name, event.Data)
	})
	async.SafeGo(context.Background(), fanoutTimeout, "automation dispatch", f.log, func(ctx context.Context) error {
		return f.automation.Fire(ctx, orgID, name, input)
	})

	return nil
}

// Close closes the base publisher
func (f *fanout) Close() error {
	return f.base.Close()
}
