package sync

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/provider"
	"github.com/fleetsync/fleetsync/internal/provider/aws"
	"github.com/fleetsync/fleetsync/internal/reconcile"
	"github.com/fleetsync/fleetsync/internal/store"
)

// groupSyncer reconciles autoscaling group membership. Shared by the VM
// and AMI handlers, which differ in how groups become known but not in
// how a group is converged.
type groupSyncer struct {
	store   store.Store
	locks   *keylock.KeyedMutex
	hosts   HostQuerier
	log     logr.Logger
	now     func() time.Time
	handler string
}

// syncGroup reconciles one autoscaling group under its per-group lock.
// summary, when non-nil, supplies provenance for newly discovered
// members; otherwise provenance is inferred from a sibling or falls back
// to the auto-scaled sentinel. A group the provider reports gone is
// treated as having zero live members; a transient query failure skips
// the group so the next pass retries it.
func (g *groupSyncer) syncGroup(ctx context.Context, mapping *model.InfraMapping, groupName string, summary *model.DeploymentSummary) error {
	unlock := g.locks.Lock("asg:" + mapping.ID + ":" + groupName)
	defer unlock()

	latest, err := g.hosts.GroupInstances(ctx, groupName)
	if err != nil {
		if !provider.IsNotFound(err) {
			g.log.Error(err, "skipping autoscaling group this pass", "group", groupName)
			return err
		}
		latest = nil
	}

	stored, err := g.groupMembers(ctx, mapping, groupName)
	if err != nil {
		return err
	}

	latestByHost := make(map[string]aws.HostDescriptor, len(latest))
	for _, host := range latest {
		latestByHost[host.HostName()] = host
	}
	currentByHost := make(map[string]model.Instance, len(stored))
	for _, inst := range stored {
		currentByHost[inst.Key.Value] = inst
	}

	diff := reconcile.Diff(latestByHost, currentByHost)

	prov := groupProvenance(summary, stored)
	for _, hostName := range diff.ToAdd {
		host := latestByHost[hostName]
		inst := newInstance(mapping,
			model.HostKey(hostName),
			model.InstanceInfo{Kind: model.InfoASGHost, ASGHost: &model.ASGHostInfo{
				InstanceID:           host.InstanceID,
				HostName:             hostName,
				AutoScalingGroupName: groupName,
			}},
			prov, g.now())
		if err := g.store.Upsert(ctx, inst); err != nil {
			return err
		}
	}

	// Group membership is the only mutable field of an ASG host and it
	// cannot change while the key stays the same, so ToUpdate needs no
	// writes.

	var gone []string
	for _, hostName := range diff.ToDelete {
		gone = append(gone, currentByHost[hostName].ID)
	}
	if err := g.store.DeleteByIDs(ctx, mapping.AppID, gone); err != nil {
		return err
	}

	recordWrites(g.handler, len(diff.ToAdd), 0, len(gone))
	return nil
}

func (g *groupSyncer) groupMembers(ctx context.Context, mapping *model.InfraMapping, groupName string) ([]model.Instance, error) {
	instances, err := g.store.ListByInfraMapping(ctx, mapping.AppID, mapping.ID)
	if err != nil {
		return nil, err
	}
	var members []model.Instance
	for _, inst := range instances {
		if inst.Info.Kind == model.InfoASGHost && inst.Info.ASGHost.AutoScalingGroupName == groupName {
			members = append(members, inst)
		}
	}
	return members, nil
}

// groupProvenance resolves provenance for new group members: the
// deployment summary when one accompanies the pass, otherwise a sibling
// donor, otherwise the auto-scaled sentinel.
func groupProvenance(summary *model.DeploymentSummary, siblings []model.Instance) model.Provenance {
	if summary != nil {
		return summary.Provenance
	}
	if donor := inferProvenance(siblings); donor != nil {
		return *donor
	}
	return autoScaledProvenance()
}
