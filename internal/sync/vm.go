package sync

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/store"
)

// VMHandler reconciles plain host mappings: EC2 instances tracked
// individually plus members of any autoscaling groups that earlier
// deployments attached to the mapping.
type VMHandler struct {
	groupSyncer
	store store.Store
	hosts HostQuerier
	log   logr.Logger
	now   func() time.Time
}

// NewVMHandler builds a VMHandler.
func NewVMHandler(s store.Store, locks *keylock.KeyedMutex, hosts HostQuerier, log logr.Logger) *VMHandler {
	log = log.WithName("vm-handler")
	now := time.Now
	return &VMHandler{
		groupSyncer: groupSyncer{store: s, locks: locks, hosts: hosts, log: log, now: now, handler: "vm"},
		store:       s,
		hosts:       hosts,
		log:         log,
		now:         now,
	}
}

// SyncInstances removes stored hosts the provider no longer reports as
// running and diffs each autoscaling group the mapping spans.
func (h *VMHandler) SyncInstances(ctx context.Context, appID, infraMappingID string) (err error) {
	defer func(start time.Time) { recordPass("vm", start, err) }(h.now())

	mapping, err := loadMapping(ctx, h.store, appID, infraMappingID, model.MappingAWSSSH)
	if err != nil {
		return err
	}

	instances, err := h.store.ListByInfraMapping(ctx, appID, infraMappingID)
	if err != nil {
		return err
	}

	groups := make(map[string]struct{})
	var plain []model.Instance
	for _, inst := range instances {
		switch inst.Info.Kind {
		case model.InfoASGHost:
			groups[inst.Info.ASGHost.AutoScalingGroupName] = struct{}{}
		case model.InfoEC2Host:
			plain = append(plain, inst)
		case model.InfoPhysicalHost:
			// Physical hosts have no provider to report them gone; they are
			// removed through deployment events only.
		}
	}

	var errs []error
	if err := h.syncPlainHosts(ctx, mapping, plain); err != nil {
		errs = append(errs, err)
	}
	for group := range groups {
		if err := h.syncGroup(ctx, mapping, group, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// syncPlainHosts deletes stored EC2 hosts whose instance id is no longer
// in the provider's running set.
func (h *VMHandler) syncPlainHosts(ctx context.Context, mapping *model.InfraMapping, stored []model.Instance) error {
	if len(stored) == 0 {
		return nil
	}

	ids := make([]string, 0, len(stored))
	for _, inst := range stored {
		ids = append(ids, inst.Info.Host.InstanceID)
	}

	// The running query filters by id, so gone hosts simply drop out of
	// the result; any error here is transient and must not be read as
	// "nothing is running".
	running, err := h.hosts.RunningInstances(ctx, ids)
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(running))
	for _, host := range running {
		live[host.InstanceID] = struct{}{}
	}

	var gone []string
	for _, inst := range stored {
		if _, ok := live[inst.Info.Host.InstanceID]; !ok {
			gone = append(gone, inst.ID)
		}
	}
	if err := h.store.DeleteByIDs(ctx, mapping.AppID, gone); err != nil {
		return err
	}
	recordWrites("vm", 0, 0, len(gone))
	return nil
}

// HandleNewDeployment resyncs each touched mapping. Plain host deployments
// carry no deployment key; the producer resolves their instances
// synchronously and delivers them through the instance event path instead.
func (h *VMHandler) HandleNewDeployment(ctx context.Context, summaries []model.DeploymentSummary) error {
	var errs []error
	seen := make(map[string]struct{})
	for _, summary := range summaries {
		if _, ok := seen[summary.InfraMappingID]; ok {
			continue
		}
		seen[summary.InfraMappingID] = struct{}{}
		if err := h.SyncInstances(ctx, summary.AppID, summary.InfraMappingID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetDeploymentInfo returns nil: plain host phases carry no resource
// group for deferred resolution.
func (h *VMHandler) GetDeploymentInfo(model.PhaseExecutionSummary) ([]model.DeploymentInfo, error) {
	return nil, nil
}
