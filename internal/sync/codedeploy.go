package sync

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/provider"
	"github.com/fleetsync/fleetsync/internal/provider/aws"
	"github.com/fleetsync/fleetsync/internal/store"
)

// CodeDeployHandler reconciles blue/green CodeDeploy mappings. Hosts reach
// the inventory through two code paths: deployment-scoped discovery when a
// deployment completes, and the generic running check during periodic
// sync. A sync pass unions both live views so neither path deletes hosts
// the other still vouches for.
type CodeDeployHandler struct {
	store  store.Store
	locks  *keylock.KeyedMutex
	ledger *Ledger
	hosts  HostQuerier
	log    logr.Logger
	now    func() time.Time
}

// NewCodeDeployHandler builds a CodeDeployHandler.
func NewCodeDeployHandler(s store.Store, locks *keylock.KeyedMutex, ledger *Ledger, hosts HostQuerier, log logr.Logger) *CodeDeployHandler {
	return &CodeDeployHandler{
		store:  s,
		locks:  locks,
		ledger: ledger,
		hosts:  hosts,
		log:    log.WithName("codedeploy-handler"),
		now:    time.Now,
	}
}

// SyncInstances deletes stored hosts that neither the running check nor
// any of their recorded deployments still report.
func (h *CodeDeployHandler) SyncInstances(ctx context.Context, appID, infraMappingID string) (err error) {
	defer func(start time.Time) { recordPass("codedeploy", start, err) }(h.now())

	mapping, err := loadMapping(ctx, h.store, appID, infraMappingID, model.MappingAWSCodeDeploy)
	if err != nil {
		return err
	}

	unlock := h.locks.Lock("codedeploy:" + infraMappingID)
	defer unlock()

	instances, err := h.store.ListByInfraMapping(ctx, appID, infraMappingID)
	if err != nil {
		return err
	}
	var stored []model.Instance
	deployments := make(map[string]struct{})
	for _, inst := range instances {
		if inst.Info.Kind != model.InfoEC2Host {
			continue
		}
		stored = append(stored, inst)
		if id := inst.Info.Host.DeploymentID; id != "" {
			deployments[id] = struct{}{}
		}
	}
	if len(stored) == 0 {
		return nil
	}

	ids := make([]string, 0, len(stored))
	for _, inst := range stored {
		ids = append(ids, inst.Info.Host.InstanceID)
	}

	// The running query filters by id; gone hosts drop out of the result,
	// so any error here is transient and aborts the pass.
	running, err := h.hosts.RunningInstances(ctx, ids)
	if err != nil {
		return err
	}
	live := make(map[string]struct{}, len(running))
	for _, host := range running {
		live[host.InstanceID] = struct{}{}
	}

	// Union in the instances each recorded deployment still targets, so a
	// host the running check missed but a deployment vouches for survives.
	for id := range deployments {
		targeted, err := h.hosts.DeploymentInstances(ctx, id)
		if err != nil {
			if provider.IsNotFound(err) {
				continue
			}
			h.log.Error(err, "skipping deployment-scoped check this pass", "deploymentID", id)
			return err
		}
		for _, host := range targeted {
			live[host.InstanceID] = struct{}{}
		}
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
	recordWrites("codedeploy", 0, 0, len(gone))
	return nil
}

// HandleNewDeployment records each deployment in the ledger keyed on its
// CodeDeploy deployment id, then upserts the EC2 instances that deployment
// targets with the deployment's provenance.
func (h *CodeDeployHandler) HandleNewDeployment(ctx context.Context, summaries []model.DeploymentSummary) error {
	var errs []error
	for _, summary := range summaries {
		if summary.Info.Kind != model.DeployInfoCodeDeploy || summary.Info.CodeDeploy == nil {
			h.log.Info("dropping deployment summary without codedeploy detail",
				"infraMappingID", summary.InfraMappingID)
			continue
		}
		if err := h.handleDeployment(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *CodeDeployHandler) handleDeployment(ctx context.Context, summary model.DeploymentSummary) error {
	mapping, err := loadMapping(ctx, h.store, summary.AppID, summary.InfraMappingID, model.MappingAWSCodeDeploy)
	if err != nil {
		return err
	}

	recorded, wasNew, err := h.ledger.RecordIfAbsent(ctx, summary.AppID, summary.InfraMappingID,
		summary.Key, summary.Info, summary.Provenance)
	if err != nil {
		return err
	}
	deploymentID := recorded.Info.CodeDeploy.DeploymentID
	if !wasNew {
		h.log.V(1).Info("deployment already recorded, resyncing",
			"infraMappingID", summary.InfraMappingID, "deploymentID", deploymentID)
	}

	unlock := h.locks.Lock("codedeploy:" + mapping.ID)
	defer unlock()

	targeted, err := h.hosts.DeploymentInstances(ctx, deploymentID)
	if err != nil {
		if provider.IsNotFound(err) {
			h.log.Info("deployment reports no running instances", "deploymentID", deploymentID)
			return nil
		}
		return err
	}

	added := 0
	for _, host := range targeted {
		inst := newInstance(mapping,
			model.HostKey(host.HostName()),
			model.InstanceInfo{Kind: model.InfoEC2Host, Host: hostInfoFromDescriptor(host, deploymentID)},
			recorded.Provenance, h.now())
		if err := h.store.Upsert(ctx, inst); err != nil {
			return err
		}
		added++
	}
	recordWrites("codedeploy", added, 0, 0)
	return nil
}

func hostInfoFromDescriptor(host aws.HostDescriptor, deploymentID string) *model.HostInfo {
	return &model.HostInfo{
		InstanceID:     host.InstanceID,
		HostName:       host.HostName(),
		PublicDNSName:  host.PublicDNSName,
		PrivateDNSName: host.PrivateDNSName,
		DeploymentID:   deploymentID,
	}
}

// GetDeploymentInfo extracts the CodeDeploy deployment id from a phase.
func (h *CodeDeployHandler) GetDeploymentInfo(phase model.PhaseExecutionSummary) ([]model.DeploymentInfo, error) {
	if phase.CodeDeployDeploymentID == "" {
		return nil, nil
	}
	return []model.DeploymentInfo{{
		Kind:       model.DeployInfoCodeDeploy,
		CodeDeploy: &model.CodeDeployDeploymentInfo{DeploymentID: phase.CodeDeployDeploymentID},
	}}, nil
}
