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

// ContainerHandler reconciles Kubernetes pod and ECS task mappings.
// Reconciliation is scoped per service family: the un-revisioned service
// name shared by every generation of one deployed service. Within a
// family it diffs by container id, applies updates only when a container
// moved to a different generation, records the generations seen for
// retention, and infers provenance for containers that appear without an
// accompanying deployment event.
type ContainerHandler struct {
	store     store.Store
	locks     *keylock.KeyedMutex
	ledger    *Ledger
	retention *Retention
	pods      PodQuerier
	tasks     TaskQuerier
	trigger   Trigger
	log       logr.Logger
	now       func() time.Time
}

// NewContainerHandler builds a ContainerHandler.
func NewContainerHandler(s store.Store, locks *keylock.KeyedMutex, ledger *Ledger, retention *Retention, pods PodQuerier, tasks TaskQuerier, trigger Trigger, log logr.Logger) *ContainerHandler {
	if trigger == nil {
		trigger = NoopTrigger{}
	}
	return &ContainerHandler{
		store:     s,
		locks:     locks,
		ledger:    ledger,
		retention: retention,
		pods:      pods,
		tasks:     tasks,
		trigger:   trigger,
		log:       log.WithName("container-handler"),
		now:       time.Now,
	}
}

// containerUnit is one live container as reported by the provider.
type containerUnit struct {
	key  model.InstanceKey
	info model.InstanceInfo
}

// SyncInstances reconciles every service family the stored inventory
// spans. Genuinely new containers added during a pure sync pass fire the
// configured discovery trigger once for the mapping.
func (h *ContainerHandler) SyncInstances(ctx context.Context, appID, infraMappingID string) (err error) {
	defer func(start time.Time) { recordPass("container", start, err) }(h.now())

	mapping, err := loadMapping(ctx, h.store, appID, infraMappingID, model.MappingKubernetes, model.MappingECS)
	if err != nil {
		return err
	}

	instances, err := h.store.ListByInfraMapping(ctx, appID, infraMappingID)
	if err != nil {
		return err
	}

	kind := containerKind(mapping.Type)
	families := make(map[string]struct{})
	for _, inst := range instances {
		if inst.Info.Kind != kind {
			continue
		}
		families[model.FamilyName(kind, inst.ResourceGroup())] = struct{}{}
	}

	var errs []error
	added := 0
	for family := range families {
		n, err := h.syncFamily(ctx, mapping, family, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		added += n
	}
	if added > 0 {
		h.trigger.InstancesDiscovered(ctx, mapping)
	}
	return errors.Join(errs...)
}

// HandleNewDeployment records each deployment in the ledger, resolves
// the service families it touched and reconciles them with the
// deployment's provenance attached to new containers.
func (h *ContainerHandler) HandleNewDeployment(ctx context.Context, summaries []model.DeploymentSummary) error {
	var errs []error
	for _, summary := range summaries {
		if summary.Info.Kind != model.DeployInfoContainer || summary.Info.Container == nil {
			h.log.Info("dropping deployment summary without container detail",
				"infraMappingID", summary.InfraMappingID)
			continue
		}
		if err := h.handleDeployment(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *ContainerHandler) handleDeployment(ctx context.Context, summary model.DeploymentSummary) error {
	mapping, err := loadMapping(ctx, h.store, summary.AppID, summary.InfraMappingID,
		model.MappingKubernetes, model.MappingECS)
	if err != nil {
		return err
	}

	recorded, wasNew, err := h.ledger.RecordIfAbsent(ctx, summary.AppID, summary.InfraMappingID,
		summary.Key, summary.Info, summary.Provenance)
	if err != nil {
		return err
	}
	if !wasNew {
		h.log.V(1).Info("deployment already recorded, resyncing",
			"infraMappingID", summary.InfraMappingID, "key", recorded.Key.Value)
	}

	families, err := h.deploymentFamilies(ctx, mapping, recorded.Info.Container)
	if err != nil {
		return err
	}
	if len(families) == 0 {
		h.log.Info("deployment summary resolved no service families, skipping",
			"infraMappingID", summary.InfraMappingID)
		return nil
	}

	var errs []error
	for family := range families {
		if _, err := h.syncFamily(ctx, mapping, family, recorded); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deploymentFamilies resolves the service families a deployment touched:
// directly from revisioned service names when the summary carries them,
// otherwise by resolving the label selector to live controllers.
func (h *ContainerHandler) deploymentFamilies(ctx context.Context, mapping *model.InfraMapping, info *model.ContainerDeploymentInfo) (map[string]struct{}, error) {
	kind := containerKind(mapping.Type)
	families := make(map[string]struct{})
	for _, name := range info.ServiceNames {
		families[model.FamilyName(kind, name)] = struct{}{}
	}
	if len(families) > 0 || len(info.Labels) == 0 {
		return families, nil
	}

	namespace := info.Namespace
	if namespace == "" {
		namespace = mapping.Namespace
	}
	pods, err := h.pods.ListPods(ctx, namespace, info.Labels)
	if err != nil {
		if provider.IsNotFound(err) {
			return families, nil
		}
		return nil, err
	}
	for _, pod := range pods {
		families[model.FamilyName(model.InfoKubernetesPod, pod.ControllerName)] = struct{}{}
	}
	return families, nil
}

// syncFamily reconciles one service family under its per-family lock and
// returns how many genuinely new containers were added. summary, when
// non-nil, supplies provenance for new containers; otherwise provenance
// is inferred from a family sibling, and containers with no donor are
// skipped until a later pass can attribute them.
func (h *ContainerHandler) syncFamily(ctx context.Context, mapping *model.InfraMapping, family string, summary *model.DeploymentSummary) (int, error) {
	unlock := h.locks.Lock("container:" + mapping.ID + ":" + family)
	defer unlock()

	kind := containerKind(mapping.Type)

	instances, err := h.store.ListByInfraMapping(ctx, mapping.AppID, mapping.ID)
	if err != nil {
		return 0, err
	}
	var stored []model.Instance
	for _, inst := range instances {
		if inst.Info.Kind == kind && model.FamilyName(kind, inst.ResourceGroup()) == family {
			stored = append(stored, inst)
		}
	}

	live, err := h.liveContainers(ctx, mapping, family, stored, summary)
	if err != nil {
		h.log.Error(err, "skipping service family this pass", "family", family)
		return 0, err
	}

	currentByKey := make(map[string]model.Instance, len(stored))
	for _, inst := range stored {
		currentByKey[inst.Key.Value] = inst
	}

	diff := reconcile.Diff(live, currentByKey)

	added, updated, skipped := 0, 0, 0
	for _, key := range diff.ToAdd {
		unit := live[key]
		prov, ok := h.newContainerProvenance(summary, stored)
		if !ok {
			skipped++
			continue
		}
		inst := newInstance(mapping, unit.key, unit.info, prov, h.now())
		if err := h.store.Upsert(ctx, inst); err != nil {
			return added, err
		}
		added++
	}
	for _, key := range diff.ToUpdate {
		unit := live[key]
		// Same container id, write only on a generation move.
		if !generationChanged(currentByKey[key].Info, unit.info) {
			continue
		}
		inst := newInstance(mapping, unit.key, unit.info, currentByKey[key].Provenance, h.now())
		if err := h.store.Upsert(ctx, inst); err != nil {
			return added, err
		}
		updated++
	}
	var gone []string
	for _, key := range diff.ToDelete {
		gone = append(gone, currentByKey[key].ID)
	}
	if err := h.store.DeleteByIDs(ctx, mapping.AppID, gone); err != nil {
		return added, err
	}
	if skipped > 0 {
		h.log.Info("skipped containers with no provenance donor in family",
			"family", family, "count", skipped)
	}
	recordWrites("container", added, updated, len(gone))

	observed := make(map[string]GenerationObservation)
	for _, unit := range live {
		name, namespace := generationOf(unit.info)
		if name != "" {
			observed[name] = GenerationObservation{Name: name, Namespace: namespace}
		}
	}
	obs := make([]GenerationObservation, 0, len(observed))
	for _, o := range observed {
		obs = append(obs, o)
	}
	if err := h.retention.RecordGeneration(ctx, mapping.AppID, mapping.ID, family, obs, h.now()); err != nil {
		return added, err
	}
	return added, nil
}

// liveContainers resolves the provider-reported containers of one family,
// keyed by container id. A service the provider reports gone contributes
// zero containers.
func (h *ContainerHandler) liveContainers(ctx context.Context, mapping *model.InfraMapping, family string, stored []model.Instance, summary *model.DeploymentSummary) (map[string]containerUnit, error) {
	switch mapping.Type {
	case model.MappingKubernetes:
		return h.livePods(ctx, mapping, family, summary)
	case model.MappingECS:
		return h.liveTasks(ctx, mapping, family, stored, summary)
	}
	return nil, &MappingTypeError{InfraMappingID: mapping.ID, Got: mapping.Type,
		Want: []model.MappingType{model.MappingKubernetes, model.MappingECS}}
}

func (h *ContainerHandler) livePods(ctx context.Context, mapping *model.InfraMapping, family string, summary *model.DeploymentSummary) (map[string]containerUnit, error) {
	namespace := mapping.Namespace
	var selector map[string]string
	if summary != nil && summary.Info.Container != nil {
		if summary.Info.Container.Namespace != "" {
			namespace = summary.Info.Container.Namespace
		}
		selector = summary.Info.Container.Labels
	}
	if selector == nil && mapping.ReleaseName != "" {
		selector = map[string]string{"release": mapping.ReleaseName}
	}

	pods, err := h.pods.ListPods(ctx, namespace, selector)
	if err != nil {
		if provider.IsNotFound(err) {
			return map[string]containerUnit{}, nil
		}
		return nil, err
	}

	live := make(map[string]containerUnit)
	for _, pod := range pods {
		if model.FamilyName(model.InfoKubernetesPod, pod.ControllerName) != family {
			continue
		}
		live[pod.Name] = containerUnit{
			key: model.ContainerKey(pod.Name),
			info: model.InstanceInfo{Kind: model.InfoKubernetesPod, Pod: &model.PodInfo{
				PodName:        pod.Name,
				Namespace:      pod.Namespace,
				ReleaseName:    pod.ReleaseName,
				ControllerName: pod.ControllerName,
				IP:             pod.IP,
				Image:          pod.Image,
			}},
		}
	}
	return live, nil
}

func (h *ContainerHandler) liveTasks(ctx context.Context, mapping *model.InfraMapping, family string, stored []model.Instance, summary *model.DeploymentSummary) (map[string]containerUnit, error) {
	// Every revisioned service name of the family, from the store and the
	// deployment summary both: old generations drain while new ones fill.
	services := make(map[string]struct{})
	for _, inst := range stored {
		services[inst.Info.Task.ServiceName] = struct{}{}
	}
	if summary != nil && summary.Info.Container != nil {
		for _, name := range summary.Info.Container.ServiceNames {
			if model.FamilyName(model.InfoECSTask, name) == family {
				services[name] = struct{}{}
			}
		}
	}

	live := make(map[string]containerUnit)
	for service := range services {
		tasks, err := h.tasks.ServiceTasks(ctx, mapping.ClusterName, service)
		if err != nil {
			if provider.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, task := range tasks {
			startedAt := task.StartedAt
			live[task.TaskARN] = containerUnit{
				key: model.ContainerKey(task.TaskARN),
				info: model.InstanceInfo{Kind: model.InfoECSTask, Task: &model.ECSTaskInfo{
					TaskARN:           task.TaskARN,
					ClusterName:       task.ClusterName,
					ServiceName:       task.ServiceName,
					TaskDefinitionARN: task.TaskDefinitionARN,
					StartedAt:         startedAt,
				}},
			}
		}
	}
	return live, nil
}

// newContainerProvenance resolves provenance for a container with no
// stored record: the deployment summary when one accompanies the pass,
// otherwise a family sibling. Reports false when neither exists, in which
// case the container is skipped rather than recorded without attribution.
func (h *ContainerHandler) newContainerProvenance(summary *model.DeploymentSummary, siblings []model.Instance) (model.Provenance, bool) {
	if summary != nil {
		return summary.Provenance, true
	}
	if donor := inferProvenance(siblings); donor != nil {
		return *donor, true
	}
	return model.Provenance{}, false
}

// generationChanged reports whether a container moved to a materially
// different generation: a new owning controller for pods, a new task
// definition revision for tasks.
func generationChanged(prev, next model.InstanceInfo) bool {
	switch prev.Kind {
	case model.InfoKubernetesPod:
		return prev.Pod.ControllerName != next.Pod.ControllerName ||
			prev.Pod.ReleaseName != next.Pod.ReleaseName
	case model.InfoECSTask:
		return prev.Task.TaskDefinitionARN != next.Task.TaskDefinitionARN ||
			prev.Task.ServiceName != next.Task.ServiceName
	}
	return false
}

// generationOf names the generation a live container belongs to.
func generationOf(info model.InstanceInfo) (name, namespace string) {
	switch info.Kind {
	case model.InfoKubernetesPod:
		return info.Pod.ControllerName, info.Pod.Namespace
	case model.InfoECSTask:
		return info.Task.ServiceName, ""
	}
	return "", ""
}

// containerKind maps a container mapping type to its instance payload kind.
func containerKind(t model.MappingType) model.InfoKind {
	if t == model.MappingECS {
		return model.InfoECSTask
	}
	return model.InfoKubernetesPod
}

// GetDeploymentInfo extracts the container services a phase touched,
// either by revisioned service names or by label selector.
func (h *ContainerHandler) GetDeploymentInfo(phase model.PhaseExecutionSummary) ([]model.DeploymentInfo, error) {
	if len(phase.ContainerServiceNames) == 0 && len(phase.Labels) == 0 {
		return nil, nil
	}
	return []model.DeploymentInfo{{
		Kind: model.DeployInfoContainer,
		Container: &model.ContainerDeploymentInfo{
			ClusterName:  phase.ClusterName,
			Namespace:    phase.Namespace,
			ServiceNames: phase.ContainerServiceNames,
			Labels:       phase.Labels,
			ReleaseName:  phase.ReleaseName,
		},
	}}, nil
}
