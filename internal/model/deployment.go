package model

import (
	"sort"
	"strings"
	"time"
)

// DeploymentKeyKind discriminates the provider-specific identifier of one
// deployment operation.
type DeploymentKeyKind string

const (
	DeployKeyASG              DeploymentKeyKind = "asg"
	DeployKeyCodeDeploy       DeploymentKeyKind = "codedeploy"
	DeployKeyContainerService DeploymentKeyKind = "container-service"
	DeployKeyLabels           DeploymentKeyKind = "labels"
	DeployKeyPCF              DeploymentKeyKind = "pcf"
)

// DeploymentKey identifies one deployment operation for ledger
// deduplication. Value is canonical: equal deployments always produce an
// equal Value, which also serves as the critical-section key.
type DeploymentKey struct {
	Kind  DeploymentKeyKind `json:"kind"`
	Value string            `json:"value"`
}

// ASGDeploymentKey keys a deployment by the new autoscaling group name.
func ASGDeploymentKey(asgName string) DeploymentKey {
	return DeploymentKey{Kind: DeployKeyASG, Value: asgName}
}

// CodeDeployDeploymentKey keys a deployment by its CodeDeploy deployment id.
func CodeDeployDeploymentKey(deploymentID string) DeploymentKey {
	return DeploymentKey{Kind: DeployKeyCodeDeploy, Value: deploymentID}
}

// ContainerServiceDeploymentKey keys a deployment by its revisioned
// container-service name.
func ContainerServiceDeploymentKey(serviceName string) DeploymentKey {
	return DeploymentKey{Kind: DeployKeyContainerService, Value: serviceName}
}

// LabelsDeploymentKey keys a deployment by a label selector. Labels are
// sorted so equal selectors always canonicalize identically.
func LabelsDeploymentKey(labels map[string]string) DeploymentKey {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return DeploymentKey{Kind: DeployKeyLabels, Value: strings.Join(pairs, ",")}
}

// PCFDeploymentKey keys a deployment by the PCF application name.
func PCFDeploymentKey(appName string) DeploymentKey {
	return DeploymentKey{Kind: DeployKeyPCF, Value: appName}
}

// DeploymentInfoKind discriminates the provider-specific deployment detail.
type DeploymentInfoKind string

const (
	DeployInfoASG        DeploymentInfoKind = "asg"
	DeployInfoCodeDeploy DeploymentInfoKind = "codedeploy"
	DeployInfoContainer  DeploymentInfoKind = "container"
	DeployInfoPCF        DeploymentInfoKind = "pcf"
)

// DeploymentInfo carries what a handler needs to re-resolve the instances
// touched by one completed deployment. Tagged variant, same discipline as
// InstanceInfo.
type DeploymentInfo struct {
	Kind DeploymentInfoKind `json:"kind"`

	ASG        *ASGDeploymentInfo        `json:"asg,omitempty"`
	CodeDeploy *CodeDeployDeploymentInfo `json:"codeDeploy,omitempty"`
	Container  *ContainerDeploymentInfo  `json:"container,omitempty"`
	PCF        *PCFDeploymentInfo        `json:"pcf,omitempty"`
}

// ASGDeploymentInfo names the autoscaling groups a deployment touched:
// the new revision plus the old, not-yet-drained ones.
type ASGDeploymentInfo struct {
	NewAutoScalingGroup  string   `json:"newAutoScalingGroup"`
	OldAutoScalingGroups []string `json:"oldAutoScalingGroups,omitempty"`
}

// CodeDeployDeploymentInfo names one CodeDeploy deployment.
type CodeDeployDeploymentInfo struct {
	DeploymentID string `json:"deploymentId"`
}

// ContainerDeploymentInfo identifies the container services a deployment
// touched, either by revisioned service names or by a label selector.
type ContainerDeploymentInfo struct {
	ClusterName  string            `json:"clusterName,omitempty"`
	Namespace    string            `json:"namespace,omitempty"`
	ServiceNames []string          `json:"serviceNames,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	ReleaseName  string            `json:"releaseName,omitempty"`
}

// PCFDeploymentInfo names the PCF applications a deployment touched.
type PCFDeploymentInfo struct {
	ApplicationNames []string `json:"applicationNames"`
}

// DeploymentSummary is one ledger entry: "this deployment has already been
// recorded for this infrastructure mapping." At most one exists per
// (InfraMappingID, Key); entries are never mutated.
type DeploymentSummary struct {
	ID             string
	AppID          string
	InfraMappingID string
	Key            DeploymentKey
	Info           DeploymentInfo
	Provenance     Provenance
	CreatedAt      time.Time
}

// PhaseExecutionSummary is the structured output of one completed
// deployment phase, supplied by the workflow engine. Handlers extract the
// resource groups they understand; absent sections mean the phase carried
// no instance changes for that provider and are skipped with a warning.
type PhaseExecutionSummary struct {
	AppID          string
	InfraMappingID string
	ServiceID      string

	NewAutoScalingGroup  string
	OldAutoScalingGroups []string

	CodeDeployDeploymentID string

	ClusterName           string
	Namespace             string
	ContainerServiceNames []string
	Labels                map[string]string
	ReleaseName           string

	PCFApplicationNames []string

	Provenance Provenance
}

// ContainerGeneration tracks one revision of a container-service family
// together with the last sync pass that still found it live.
type ContainerGeneration struct {
	ID             string
	AppID          string
	InfraMappingID string
	Family         string
	Name           string
	Namespace      string
	LastVisited    time.Time
}

// FamilyName strips the revision suffix from a container-service name:
// ECS service names carry a "__<revision>" suffix, Kubernetes controller
// names a "-<hash>" suffix. Names without a delimiter are their own family.
func FamilyName(kind InfoKind, serviceName string) string {
	var delim string
	switch kind {
	case InfoECSTask:
		delim = "__"
	case InfoKubernetesPod:
		delim = "-"
	default:
		return serviceName
	}
	idx := strings.LastIndex(serviceName, delim)
	if idx == -1 {
		return serviceName
	}
	return serviceName[:idx]
}
