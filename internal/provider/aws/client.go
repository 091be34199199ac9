// Package aws wraps the AWS service APIs the sync engine queries for live
// instance state. Each wrapper method returns the minimal descriptor set
// the reconciliation handlers diff against, and maps AWS "does not exist"
// errors onto provider.ErrNotFound.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// EC2API is the EC2 surface the engine uses.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// AutoScalingAPI is the autoscaling surface the engine uses.
type AutoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

// CodeDeployAPI is the CodeDeploy surface the engine uses.
type CodeDeployAPI interface {
	ListDeploymentInstances(ctx context.Context, params *codedeploy.ListDeploymentInstancesInput, optFns ...func(*codedeploy.Options)) (*codedeploy.ListDeploymentInstancesOutput, error)
}

// ECSAPI is the ECS surface the engine uses.
type ECSAPI interface {
	ListTasks(ctx context.Context, params *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasks(ctx context.Context, params *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
}

// Client bundles the AWS service clients behind the query methods the
// handlers consume.
type Client struct {
	ec2        EC2API
	asg        AutoScalingAPI
	codedeploy CodeDeployAPI
	ecs        ECSAPI
}

// New builds a Client from the default AWS credential chain for the given
// region.
func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{
		ec2:        ec2.NewFromConfig(cfg),
		asg:        autoscaling.NewFromConfig(cfg),
		codedeploy: codedeploy.NewFromConfig(cfg),
		ecs:        ecs.NewFromConfig(cfg),
	}, nil
}

// NewWithAPIs builds a Client from explicit service APIs. Used by tests
// and by callers that configure the SDK clients themselves.
func NewWithAPIs(ec2API EC2API, asgAPI AutoScalingAPI, cdAPI CodeDeployAPI, ecsAPI ECSAPI) *Client {
	return &Client{ec2: ec2API, asg: asgAPI, codedeploy: cdAPI, ecs: ecsAPI}
}
