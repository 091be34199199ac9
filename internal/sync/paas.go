package sync

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/model"
	"github.com/fleetsync/fleetsync/internal/provider"
	"github.com/fleetsync/fleetsync/internal/reconcile"
	"github.com/fleetsync/fleetsync/internal/store"
)

// errNoPaaSClient is returned when a platform mapping exists but no
// platform controller endpoint was configured.
var errNoPaaSClient = errors.New("no platform controller configured")

// PaaSHandler reconciles platform-application mappings. Each application
// is reconciled in isolation: a failing application query aborts that
// application's pass only, never its siblings in the same call, and an
// application the platform no longer knows simply has zero live
// instances.
type PaaSHandler struct {
	store  store.Store
	locks  *keylock.KeyedMutex
	ledger *Ledger
	apps   AppQuerier
	log    logr.Logger
	now    func() time.Time
}

// NewPaaSHandler builds a PaaSHandler.
func NewPaaSHandler(s store.Store, locks *keylock.KeyedMutex, ledger *Ledger, apps AppQuerier, log logr.Logger) *PaaSHandler {
	return &PaaSHandler{
		store:  s,
		locks:  locks,
		ledger: ledger,
		apps:   apps,
		log:    log.WithName("paas-handler"),
		now:    time.Now,
	}
}

// SyncInstances reconciles every application the stored inventory spans.
func (h *PaaSHandler) SyncInstances(ctx context.Context, appID, infraMappingID string) (err error) {
	defer func(start time.Time) { recordPass("paas", start, err) }(h.now())

	mapping, err := loadMapping(ctx, h.store, appID, infraMappingID, model.MappingPCF)
	if err != nil {
		return err
	}
	if h.apps == nil {
		return errNoPaaSClient
	}

	instances, err := h.store.ListByInfraMapping(ctx, appID, infraMappingID)
	if err != nil {
		return err
	}
	applications := make(map[string]struct{})
	for _, inst := range instances {
		if inst.Info.Kind == model.InfoPCFInstance {
			applications[inst.Info.PCF.ApplicationName] = struct{}{}
		}
	}

	var errs []error
	for application := range applications {
		if err := h.syncApplication(ctx, mapping, application, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandleNewDeployment records each deployment in the ledger keyed on the
// application name, then reconciles every application the deployment
// names with its provenance.
func (h *PaaSHandler) HandleNewDeployment(ctx context.Context, summaries []model.DeploymentSummary) error {
	var errs []error
	for _, summary := range summaries {
		if summary.Info.Kind != model.DeployInfoPCF || summary.Info.PCF == nil {
			h.log.Info("dropping deployment summary without application detail",
				"infraMappingID", summary.InfraMappingID)
			continue
		}

		mapping, err := loadMapping(ctx, h.store, summary.AppID, summary.InfraMappingID, model.MappingPCF)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if h.apps == nil {
			errs = append(errs, errNoPaaSClient)
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
				"infraMappingID", summary.InfraMappingID, "key", recorded.Key.Value)
		}

		for _, application := range recorded.Info.PCF.ApplicationNames {
			if err := h.syncApplication(ctx, mapping, application, recorded); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// syncApplication reconciles one application under its per-application
// lock. An application the platform reports gone has zero live instances;
// a transient failure skips the application so the next pass retries it.
func (h *PaaSHandler) syncApplication(ctx context.Context, mapping *model.InfraMapping, application string, summary *model.DeploymentSummary) error {
	unlock := h.locks.Lock("pcf:" + mapping.ID + ":" + application)
	defer unlock()

	live, err := h.apps.ApplicationInstances(ctx, mapping.Organization, mapping.Space, application)
	if err != nil {
		if !provider.IsNotFound(err) {
			h.log.Error(err, "skipping application this pass", "application", application)
			return err
		}
		live = nil
	}

	instances, err := h.store.ListByInfraMapping(ctx, mapping.AppID, mapping.ID)
	if err != nil {
		return err
	}
	var stored []model.Instance
	for _, inst := range instances {
		if inst.Info.Kind == model.InfoPCFInstance && inst.Info.PCF.ApplicationName == application {
			stored = append(stored, inst)
		}
	}

	latestByKey := make(map[string]model.InstanceInfo, len(live))
	for _, ai := range live {
		key := model.PCFInstanceKey(ai.ApplicationGUID, ai.Index)
		latestByKey[key.Value] = model.InstanceInfo{Kind: model.InfoPCFInstance, PCF: &model.PCFInstanceInfo{
			ApplicationName: ai.ApplicationName,
			ApplicationGUID: ai.ApplicationGUID,
			InstanceIndex:   ai.Index,
			Organization:    mapping.Organization,
			Space:           mapping.Space,
		}}
	}
	currentByKey := make(map[string]model.Instance, len(stored))
	for _, inst := range stored {
		currentByKey[inst.Key.Value] = inst
	}

	diff := reconcile.Diff(latestByKey, currentByKey)

	prov := paasProvenance(summary, stored)
	for _, key := range diff.ToAdd {
		info := latestByKey[key]
		inst := newInstance(mapping,
			model.PCFInstanceKey(info.PCF.ApplicationGUID, info.PCF.InstanceIndex),
			info, prov, h.now())
		if err := h.store.Upsert(ctx, inst); err != nil {
			return err
		}
	}

	var gone []string
	for _, key := range diff.ToDelete {
		gone = append(gone, currentByKey[key].ID)
	}
	if err := h.store.DeleteByIDs(ctx, mapping.AppID, gone); err != nil {
		return err
	}
	recordWrites("paas", len(diff.ToAdd), 0, len(gone))
	return nil
}

// paasProvenance resolves provenance for new application instances: the
// deployment summary when one accompanies the pass, otherwise an
// application sibling, otherwise the auto-scaled sentinel since platform
// autoscalers add instances without any deployment.
func paasProvenance(summary *model.DeploymentSummary, siblings []model.Instance) model.Provenance {
	if summary != nil {
		return summary.Provenance
	}
	if donor := inferProvenance(siblings); donor != nil {
		return *donor
	}
	return autoScaledProvenance()
}

// GetDeploymentInfo extracts the application names a phase touched.
func (h *PaaSHandler) GetDeploymentInfo(phase model.PhaseExecutionSummary) ([]model.DeploymentInfo, error) {
	if len(phase.PCFApplicationNames) == 0 {
		return nil, nil
	}
	return []model.DeploymentInfo{{
		Kind: model.DeployInfoPCF,
		PCF:  &model.PCFDeploymentInfo{ApplicationNames: phase.PCFApplicationNames},
	}}, nil
}
