package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/fleetsync/fleetsync/internal/provider"
)

// HostDescriptor describes one running EC2 instance.
type HostDescriptor struct {
	InstanceID     string
	PrivateDNSName string
	PublicDNSName  string
}

// HostName returns the identity value used for diffing VM instances.
func (h HostDescriptor) HostName() string {
	if h.PrivateDNSName != "" {
		return h.PrivateDNSName
	}
	return h.InstanceID
}

// RunningInstances returns the subset of instanceIDs that are currently in
// the running state. An empty instanceIDs slice returns no instances
// rather than the whole region. The ids are passed as an instance-id
// filter, not the InstanceIds parameter: one unknown id in the InstanceIds
// batch fails the whole call with InvalidInstanceID.NotFound, while the
// filter silently omits ids that no longer exist.
func (c *Client) RunningInstances(ctx context.Context, instanceIDs []string) ([]HostDescriptor, error) {
	if len(instanceIDs) == 0 {
		return nil, nil
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   awssdk.String("instance-id"),
				Values: instanceIDs,
			},
			{
				Name:   awssdk.String("instance-state-name"),
				Values: []string{string(ec2types.InstanceStateNameRunning)},
			},
		},
	}

	var hosts []HostDescriptor
	for {
		out, err := c.ec2.DescribeInstances(ctx, input)
		if err != nil {
			return nil, classify(err, "describe instances")
		}
		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				hosts = append(hosts, descriptorFromInstance(inst))
			}
		}
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}
	return hosts, nil
}

// GroupInstances returns the running EC2 members of the named autoscaling
// group. A group that no longer exists yields provider.ErrNotFound.
func (c *Client) GroupInstances(ctx context.Context, groupName string) ([]HostDescriptor, error) {
	out, err := c.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{groupName},
	})
	if err != nil {
		return nil, classify(err, "describe autoscaling group")
	}
	if len(out.AutoScalingGroups) == 0 {
		// The API reports unknown groups as an empty result, not an error.
		return nil, fmt.Errorf("autoscaling group %s: %w", groupName, provider.ErrNotFound)
	}

	var ids []string
	for _, member := range out.AutoScalingGroups[0].Instances {
		if member.InstanceId != nil {
			ids = append(ids, *member.InstanceId)
		}
	}
	return c.RunningInstances(ctx, ids)
}

func descriptorFromInstance(inst ec2types.Instance) HostDescriptor {
	h := HostDescriptor{}
	if inst.InstanceId != nil {
		h.InstanceID = *inst.InstanceId
	}
	if inst.PrivateDnsName != nil {
		h.PrivateDNSName = *inst.PrivateDnsName
	}
	if inst.PublicDnsName != nil {
		h.PublicDNSName = *inst.PublicDnsName
	}
	return h
}
