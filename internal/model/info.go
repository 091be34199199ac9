package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// InfoKind discriminates the polymorphic instance payload.
type InfoKind string

const (
	InfoEC2Host       InfoKind = "ec2-host"
	InfoASGHost       InfoKind = "asg-host"
	InfoPhysicalHost  InfoKind = "physical-host"
	InfoKubernetesPod InfoKind = "kubernetes-pod"
	InfoECSTask       InfoKind = "ecs-task"
	InfoPCFInstance   InfoKind = "pcf-instance"
)

// InstanceInfo is a tagged variant: exactly the field matching Kind is
// set. Handlers switch on Kind exhaustively.
type InstanceInfo struct {
	Kind InfoKind `json:"kind"`

	Host     *HostInfo        `json:"host,omitempty"`
	ASGHost  *ASGHostInfo     `json:"asgHost,omitempty"`
	Physical *PhysicalInfo    `json:"physical,omitempty"`
	Pod      *PodInfo         `json:"pod,omitempty"`
	Task     *ECSTaskInfo     `json:"task,omitempty"`
	PCF      *PCFInstanceInfo `json:"pcf,omitempty"`
}

// HostInfo describes a plain EC2 host. DeploymentID is set when the host
// was attached through a CodeDeploy deployment, so sync passes can union
// the deployment-scoped instance query with the generic running check.
type HostInfo struct {
	InstanceID     string `json:"instanceId"`
	HostName       string `json:"hostName"`
	PublicDNSName  string `json:"publicDnsName,omitempty"`
	PrivateDNSName string `json:"privateDnsName,omitempty"`
	DeploymentID   string `json:"deploymentId,omitempty"`
}

// ASGHostInfo describes an EC2 host that is a member of an autoscaling
// group.
type ASGHostInfo struct {
	InstanceID           string `json:"instanceId"`
	HostName             string `json:"hostName"`
	AutoScalingGroupName string `json:"autoScalingGroupName"`
}

// PhysicalInfo describes a physical (non-cloud) host.
type PhysicalInfo struct {
	HostName string `json:"hostName"`
	IP       string `json:"ip,omitempty"`
}

// PodInfo describes a Kubernetes pod.
type PodInfo struct {
	PodName        string `json:"podName"`
	Namespace      string `json:"namespace"`
	ReleaseName    string `json:"releaseName,omitempty"`
	ControllerName string `json:"controllerName,omitempty"`
	IP             string `json:"ip,omitempty"`
	Image          string `json:"image,omitempty"`
}

// ECSTaskInfo describes an ECS task.
type ECSTaskInfo struct {
	TaskARN           string     `json:"taskArn"`
	ClusterName       string     `json:"clusterName"`
	ServiceName       string     `json:"serviceName"`
	TaskDefinitionARN string     `json:"taskDefinitionArn"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
}

// PCFInstanceInfo describes one PCF application instance.
type PCFInstanceInfo struct {
	ApplicationName string `json:"applicationName"`
	ApplicationGUID string `json:"applicationGuid"`
	InstanceIndex   string `json:"instanceIndex"`
	Organization    string `json:"organization,omitempty"`
	Space           string `json:"space,omitempty"`
}

// Validate checks that the payload matching Kind is present and no other
// payload is set. A violated invariant here indicates an upstream bug.
func (ii InstanceInfo) Validate() error {
	set := 0
	var want bool
	for _, p := range []struct {
		kind    InfoKind
		present bool
	}{
		{InfoEC2Host, ii.Host != nil},
		{InfoASGHost, ii.ASGHost != nil},
		{InfoPhysicalHost, ii.Physical != nil},
		{InfoKubernetesPod, ii.Pod != nil},
		{InfoECSTask, ii.Task != nil},
		{InfoPCFInstance, ii.PCF != nil},
	} {
		if p.present {
			set++
		}
		if p.kind == ii.Kind {
			want = p.present
		}
	}
	if set != 1 || !want {
		return fmt.Errorf("instance info kind %q does not match its payload", ii.Kind)
	}
	return nil
}

// MarshalInfo serializes the payload for storage.
func MarshalInfo(ii InstanceInfo) ([]byte, error) {
	if err := ii.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ii)
}

// UnmarshalInfo deserializes a stored payload.
func UnmarshalInfo(data []byte) (InstanceInfo, error) {
	var ii InstanceInfo
	if err := json.Unmarshal(data, &ii); err != nil {
		return InstanceInfo{}, fmt.Errorf("failed to unmarshal instance info: %w", err)
	}
	if err := ii.Validate(); err != nil {
		return InstanceInfo{}, err
	}
	return ii, nil
}
