package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// MockEC2 is a mock implementation of EC2API.
type MockEC2 struct {
	DescribeInstancesFunc func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

func (m *MockEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return m.DescribeInstancesFunc(ctx, params, optFns...)
}

// MockAutoScaling is a mock implementation of AutoScalingAPI.
type MockAutoScaling struct {
	DescribeAutoScalingGroupsFunc func(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

func (m *MockAutoScaling) DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	return m.DescribeAutoScalingGroupsFunc(ctx, params, optFns...)
}

// MockCodeDeploy is a mock implementation of CodeDeployAPI.
type MockCodeDeploy struct {
	ListDeploymentInstancesFunc func(ctx context.Context, params *codedeploy.ListDeploymentInstancesInput, optFns ...func(*codedeploy.Options)) (*codedeploy.ListDeploymentInstancesOutput, error)
}

func (m *MockCodeDeploy) ListDeploymentInstances(ctx context.Context, params *codedeploy.ListDeploymentInstancesInput, optFns ...func(*codedeploy.Options)) (*codedeploy.ListDeploymentInstancesOutput, error) {
	return m.ListDeploymentInstancesFunc(ctx, params, optFns...)
}

// MockECS is a mock implementation of ECSAPI.
type MockECS struct {
	ListTasksFunc     func(ctx context.Context, params *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasksFunc func(ctx context.Context, params *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
}

func (m *MockECS) ListTasks(ctx context.Context, params *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	return m.ListTasksFunc(ctx, params, optFns...)
}

func (m *MockECS) DescribeTasks(ctx context.Context, params *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	return m.DescribeTasksFunc(ctx, params, optFns...)
}
