package sync

import "github.com/fleetsync/fleetsync/internal/model"

// autoScaledWorkflowName is the sentinel provenance attached to
// autoscaling-group members discovered with no deployment event and no
// inference donor: the group scaled itself, no workflow was involved.
const autoScaledWorkflowName = "Deployed by Auto-Scaling"

// inferProvenance picks deployment provenance for a newly observed
// instance from a sibling in the same resource group. The donor is the
// most recently deployed sibling that carries workflow context. Returns
// nil when no sibling qualifies; the caller decides whether that means
// skip (container flows) or sentinel (autoscaling flows).
func inferProvenance(siblings []model.Instance) *model.Provenance {
	var donor *model.Provenance
	for i := range siblings {
		p := siblings[i].Provenance
		if !p.HasWorkflow() {
			continue
		}
		if donor == nil || p.DeployedAt.After(donor.DeployedAt) {
			donor = &siblings[i].Provenance
		}
	}
	if donor == nil {
		return nil
	}
	copied := *donor
	return &copied
}

// autoScaledProvenance is the fallback for autoscaling flows.
func autoScaledProvenance() model.Provenance {
	return model.Provenance{WorkflowName: autoScaledWorkflowName}
}
