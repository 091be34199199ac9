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

// AMIHandler reconciles immutable-image mappings deployed as autoscaling
// group rollovers: each deployment creates a fresh group and drains the
// previous ones, so both the new group and the old, still-draining groups
// must be reconciled.
type AMIHandler struct {
	groupSyncer
	store  store.Store
	ledger *Ledger
	log    logr.Logger
	now    func() time.Time
}

// NewAMIHandler builds an AMIHandler.
func NewAMIHandler(s store.Store, locks *keylock.KeyedMutex, ledger *Ledger, hosts HostQuerier, log logr.Logger) *AMIHandler {
	log = log.WithName("ami-handler")
	now := time.Now
	return &AMIHandler{
		groupSyncer: groupSyncer{store: s, locks: locks, hosts: hosts, log: log, now: now, handler: "ami"},
		store:       s,
		ledger:      ledger,
		log:         log,
		now:         now,
	}
}

// SyncInstances diffs every autoscaling group the stored inventory spans.
func (h *AMIHandler) SyncInstances(ctx context.Context, appID, infraMappingID string) (err error) {
	defer func(start time.Time) { recordPass("ami", start, err) }(h.now())

	mapping, err := loadMapping(ctx, h.store, appID, infraMappingID, model.MappingAWSAMI)
	if err != nil {
		return err
	}

	instances, err := h.store.ListByInfraMapping(ctx, appID, infraMappingID)
	if err != nil {
		return err
	}

	groups := make(map[string]struct{})
	for _, inst := range instances {
		if inst.Info.Kind == model.InfoASGHost {
			groups[inst.Info.ASGHost.AutoScalingGroupName] = struct{}{}
		}
	}

	var errs []error
	for group := range groups {
		if err := h.syncGroup(ctx, mapping, group, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleNewDeployment records each deployment in the ledger keyed on the
// new autoscaling group, then reconciles the new group and the old groups
// it drained. Redelivery finds the existing ledger entry and still
// resyncs, which is idempotent.
func (h *AMIHandler) HandleNewDeployment(ctx context.Context, summaries []model.DeploymentSummary) error {
	var errs []error
	for _, summary := range summaries {
		if summary.Info.Kind != model.DeployInfoASG || summary.Info.ASG == nil {
			h.log.Info("dropping deployment summary without autoscaling group detail",
				"infraMappingID", summary.InfraMappingID)
			continue
		}

		mapping, err := loadMapping(ctx, h.store, summary.AppID, summary.InfraMappingID, model.MappingAWSAMI)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		recorded, wasNew, err := h.ledger.RecordIfAbsent(ctx, summary.AppID, summary.InfraMappingID,
			summary.Key, summary.Info, summary.Provenance)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !wasNew {
			h.log.V(1).Info("deployment already recorded, resyncing",
				"infraMappingID", summary.InfraMappingID, "group", recorded.Info.ASG.NewAutoScalingGroup)
		}

		info := recorded.Info.ASG
		if err := h.syncGroup(ctx, mapping, info.NewAutoScalingGroup, recorded); err != nil {
			errs = append(errs, err)
		}
		for _, old := range info.OldAutoScalingGroups {
			if err := h.syncGroup(ctx, mapping, old, nil); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// GetDeploymentInfo extracts the autoscaling group rollover from a phase.
func (h *AMIHandler) GetDeploymentInfo(phase model.PhaseExecutionSummary) ([]model.DeploymentInfo, error) {
	if phase.NewAutoScalingGroup == "" {
		return nil, nil
	}
	return []model.DeploymentInfo{{
		Kind: model.DeployInfoASG,
		ASG: &model.ASGDeploymentInfo{
			NewAutoScalingGroup:  phase.NewAutoScalingGroup,
			OldAutoScalingGroups: phase.OldAutoScalingGroups,
		},
	}}, nil
}
