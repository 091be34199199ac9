package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/store"
	syncpkg "github.com/fleetsync/fleetsync/internal/sync"
)

// Consumer is the standing worker draining the queue. Instance events are
// applied directly to the store; deployment events are routed to the
// handler responsible for the mapping's type. A failing event is logged
// and dropped, never retried and never fatal to the loop.
type Consumer struct {
	queue   *Queue
	store   store.Store
	factory *syncpkg.Factory
	locks   *keylock.KeyedMutex
	log     logr.Logger
	now     func() time.Time
}

// NewConsumer builds a Consumer.
func NewConsumer(queue *Queue, s store.Store, factory *syncpkg.Factory, locks *keylock.KeyedMutex, log logr.Logger) *Consumer {
	return &Consumer{
		queue:   queue,
		store:   s,
		factory: factory,
		locks:   locks,
		log:     log.WithName("event-consumer"),
		now:     time.Now,
	}
}

// Run blocks until ctx is cancelled or the queue is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.queue.Events():
			if !ok {
				return nil
			}
			c.consume(ctx, ev)
		}
	}
}

func (c *Consumer) consume(ctx context.Context, ev Event) {
	start := c.now()
	err := c.handle(ctx, ev)
	recordEvent(string(ev.Kind), start, err)
	if err != nil {
		c.log.Error(err, "dropping event", "kind", ev.Kind)
	}
}

func (c *Consumer) handle(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	switch ev.Kind {
	case KindInstance:
		return c.handleInstanceEvent(ctx, ev.Instance)
	case KindDeployment:
		return c.handleDeploymentEvent(ctx, ev.Deployment)
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// handleInstanceEvent purges the named autoscaling groups and upserts the
// pre-resolved instances, serializing on each touched resource group so a
// concurrent sync of the same group cannot interleave.
func (c *Consumer) handleInstanceEvent(ctx context.Context, ev *InstanceEvent) error {
	var errs []error
	for _, group := range ev.PurgeGroups {
		if err := c.purgeGroup(ctx, ev, group); err != nil {
			errs = append(errs, err)
		}
	}
	for i := range ev.Instances {
		if err := c.upsertInstance(ctx, ev, &ev.Instances[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Consumer) purgeGroup(ctx context.Context, ev *InstanceEvent, group string) error {
	unlock := c.locks.Lock("asg:" + ev.InfraMappingID + ":" + group)
	defer unlock()
	return c.store.DeleteByGroup(ctx, ev.AppID, ev.InfraMappingID, group)
}

func (c *Consumer) upsertInstance(ctx context.Context, ev *InstanceEvent, inst *model.Instance) error {
	if err := inst.Info.Validate(); err != nil {
		return fmt.Errorf("rejecting instance %s: %w", inst.Key.Value, err)
	}
	if key := instanceLockKey(ev.InfraMappingID, inst); key != "" {
		unlock := c.locks.Lock(key)
		defer unlock()
	}
	return c.store.Upsert(ctx, inst)
}

// instanceLockKey computes the serialization key for one shipped instance,
// matching the key its handler's sync pass locks: the un-revisioned family
// for container payloads, the autoscaling group otherwise. Rows with no
// resource group need no lock.
func instanceLockKey(infraMappingID string, inst *model.Instance) string {
	group := inst.ResourceGroup()
	if group == "" {
		return ""
	}
	switch inst.Info.Kind {
	case model.InfoKubernetesPod, model.InfoECSTask:
		return "container:" + infraMappingID + ":" + model.FamilyName(inst.Info.Kind, group)
	case model.InfoPCFInstance:
		return "pcf:" + infraMappingID + ":" + group
	default:
		return "asg:" + infraMappingID + ":" + group
	}
}

// handleDeploymentEvent routes each mapping's summaries to the handler
// for that mapping's type. Summaries for unknown mappings are dropped
// with the event's other failures.
func (c *Consumer) handleDeploymentEvent(ctx context.Context, ev *DeploymentEvent) error {
	byMapping := make(map[string][]model.DeploymentSummary)
	var order []string
	for _, summary := range ev.Summaries {
		if _, ok := byMapping[summary.InfraMappingID]; !ok {
			order = append(order, summary.InfraMappingID)
		}
		byMapping[summary.InfraMappingID] = append(byMapping[summary.InfraMappingID], summary)
	}

	var errs []error
	for _, mappingID := range order {
		summaries := byMapping[mappingID]
		mapping, err := c.store.GetMapping(ctx, summaries[0].AppID, mappingID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if mapping == nil {
			errs = append(errs, fmt.Errorf("infrastructure mapping %s not found", mappingID))
			continue
		}
		handler, err := c.factory.Resolve(mapping.Type)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if handler == nil {
			continue
		}
		if err := handler.HandleNewDeployment(ctx, summaries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
