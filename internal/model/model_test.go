package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		kind    InfoKind
		service string
		want    string
	}{
		{"ecs revision stripped", InfoECSTask, "orders__7", "orders"},
		{"ecs last delimiter wins", InfoECSTask, "ord__ers__7", "ord__ers"},
		{"ecs without delimiter", InfoECSTask, "orders", "orders"},
		{"k8s hash stripped", InfoKubernetesPod, "orders-7d9f8", "orders"},
		{"k8s last dash wins", InfoKubernetesPod, "order-service-7d9f8", "order-service"},
		{"k8s without delimiter", InfoKubernetesPod, "orders", "orders"},
		{"other kinds untouched", InfoEC2Host, "orders-1", "orders-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FamilyName(tt.kind, tt.service))
		})
	}
}

func TestLabelsDeploymentKeyCanonical(t *testing.T) {
	t.Parallel()

	a := LabelsDeploymentKey(map[string]string{"release": "r1", "app": "orders"})
	b := LabelsDeploymentKey(map[string]string{"app": "orders", "release": "r1"})

	assert.Equal(t, a, b)
	assert.Equal(t, DeployKeyLabels, a.Kind)
	assert.Equal(t, "app=orders,release=r1", a.Value)
}

func TestPCFInstanceKey(t *testing.T) {
	t.Parallel()
	key := PCFInstanceKey("guid-1", "0")
	assert.Equal(t, KeyPCF, key.Kind)
	assert.Equal(t, "guid-1:0", key.Value)
}

func TestInstanceInfoValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		info    InstanceInfo
		wantErr bool
	}{
		{
			name: "matching payload",
			info: InstanceInfo{Kind: InfoEC2Host, Host: &HostInfo{InstanceID: "i-1", HostName: "h1"}},
		},
		{
			name:    "missing payload",
			info:    InstanceInfo{Kind: InfoEC2Host},
			wantErr: true,
		},
		{
			name: "mismatched payload",
			info: InstanceInfo{Kind: InfoEC2Host, Pod: &PodInfo{PodName: "p"}},

			wantErr: true,
		},
		{
			name: "two payloads",
			info: InstanceInfo{Kind: InfoEC2Host,
				Host: &HostInfo{InstanceID: "i-1"},
				Pod:  &PodInfo{PodName: "p"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.info.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInfoRoundTrip(t *testing.T) {
	t.Parallel()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := InstanceInfo{Kind: InfoECSTask, Task: &ECSTaskInfo{
		TaskARN:           "arn:aws:ecs:task/1",
		ClusterName:       "prod",
		ServiceName:       "orders__7",
		TaskDefinitionARN: "arn:aws:ecs:taskdef/orders:7",
		StartedAt:         &started,
	}}

	data, err := MarshalInfo(in)
	require.NoError(t, err)
	out, err := UnmarshalInfo(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResourceGroup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		info InstanceInfo
		want string
	}{
		{"asg host", InstanceInfo{Kind: InfoASGHost, ASGHost: &ASGHostInfo{AutoScalingGroupName: "asg-v2"}}, "asg-v2"},
		{"pod", InstanceInfo{Kind: InfoKubernetesPod, Pod: &PodInfo{ControllerName: "orders-7d9f8"}}, "orders-7d9f8"},
		{"task", InstanceInfo{Kind: InfoECSTask, Task: &ECSTaskInfo{ServiceName: "orders__7"}}, "orders__7"},
		{"pcf", InstanceInfo{Kind: InfoPCFInstance, PCF: &PCFInstanceInfo{ApplicationName: "orders"}}, "orders"},
		{"plain host has none", InstanceInfo{Kind: InfoEC2Host, Host: &HostInfo{}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inst := Instance{Info: tt.info}
			assert.Equal(t, tt.want, inst.ResourceGroup())
		})
	}
}

func TestHasWorkflow(t *testing.T) {
	t.Parallel()
	assert.False(t, Provenance{}.HasWorkflow())
	assert.True(t, Provenance{WorkflowID: "wf-1"}.HasWorkflow())
}
