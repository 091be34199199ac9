// Package model defines the persisted record types of the instance
// inventory: instances with their provider-specific identity keys and
// polymorphic payloads, deployment summaries, and container generation
// records.
package model

import "time"

// MappingType identifies the provider family of an infrastructure mapping.
type MappingType string

const (
	// MappingAWSSSH is a plain EC2 / host mapping.
	MappingAWSSSH MappingType = "aws-ssh"
	// MappingAWSAMI is an autoscaling-group based immutable-redeploy mapping.
	MappingAWSAMI MappingType = "aws-ami"
	// MappingAWSCodeDeploy is a blue/green CodeDeploy mapping.
	MappingAWSCodeDeploy MappingType = "aws-codedeploy"
	// MappingKubernetes is a Kubernetes pod mapping.
	MappingKubernetes MappingType = "kubernetes"
	// MappingECS is an ECS task mapping.
	MappingECS MappingType = "ecs"
	// MappingPCF is a PCF application mapping.
	MappingPCF MappingType = "pcf"
	// MappingServerless is explicitly unsupported: there are no long-lived
	// compute units to track, so the factory returns no handler for it.
	MappingServerless MappingType = "aws-lambda"
)

// InfraMapping describes where a service is deployed for one environment.
// Mappings are owned by an external collaborator; the sync engine only
// reads them.
type InfraMapping struct {
	ID        string
	AppID     string
	EnvID     string
	ServiceID string
	Type      MappingType

	ComputeProviderID   string
	ComputeProviderName string
	Region              string

	// Container scope (kubernetes / ecs).
	ClusterName string
	Namespace   string
	ReleaseName string

	// PCF scope.
	Organization string
	Space        string
}

// Provenance records the deployment that most recently touched an instance.
type Provenance struct {
	WorkflowID   string `json:"workflowId,omitempty"`
	WorkflowName string `json:"workflowName,omitempty"`
	PipelineID   string `json:"pipelineId,omitempty"`
	PipelineName string `json:"pipelineName,omitempty"`

	ArtifactID         string `json:"artifactId,omitempty"`
	ArtifactName       string `json:"artifactName,omitempty"`
	ArtifactBuildNo    string `json:"artifactBuildNo,omitempty"`
	ArtifactSourceName string `json:"artifactSourceName,omitempty"`

	DeployedByID   string    `json:"deployedById,omitempty"`
	DeployedByName string    `json:"deployedByName,omitempty"`
	DeployedAt     time.Time `json:"deployedAt,omitempty"`
}

// HasWorkflow reports whether the provenance carries workflow execution
// context, which is what makes it usable as an inference donor for newly
// observed siblings.
func (p Provenance) HasWorkflow() bool {
	return p.WorkflowID != ""
}

// Instance is one running compute unit tracked by the inventory. Exactly
// one Instance exists per (InfraMappingID, Key) pair; the store enforces
// this with an upsert on the identity key.
type Instance struct {
	ID        string
	AppID     string
	EnvID     string
	ServiceID string

	InfraMappingID   string
	InfraMappingType MappingType

	ComputeProviderID   string
	ComputeProviderName string
	Region              string

	Key        InstanceKey
	Info       InstanceInfo
	Provenance Provenance

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourceGroup returns the lifecycle unit this instance belongs to: the
// autoscaling group, the container-service generation, or the PCF
// application. Empty for plain hosts, which have no shared lifecycle.
func (i *Instance) ResourceGroup() string {
	switch i.Info.Kind {
	case InfoASGHost:
		return i.Info.ASGHost.AutoScalingGroupName
	case InfoKubernetesPod:
		return i.Info.Pod.ControllerName
	case InfoECSTask:
		return i.Info.Task.ServiceName
	case InfoPCFInstance:
		return i.Info.PCF.ApplicationName
	case InfoEC2Host, InfoPhysicalHost:
		return ""
	}
	return ""
}
