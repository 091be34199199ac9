package aws

import (
	"context"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// TaskDescriptor describes one running ECS task.
type TaskDescriptor struct {
	TaskARN           string
	TaskDefinitionARN string
	ClusterName       string
	ServiceName       string
	StartedAt         *time.Time
}

// ServiceTasks returns the running tasks of one ECS service. A service or
// cluster that no longer exists yields provider.ErrNotFound.
func (c *Client) ServiceTasks(ctx context.Context, clusterName, serviceName string) ([]TaskDescriptor, error) {
	listInput := &ecs.ListTasksInput{
		Cluster:       awssdk.String(clusterName),
		ServiceName:   awssdk.String(serviceName),
		DesiredStatus: ecstypes.DesiredStatusRunning,
	}

	var arns []string
	for {
		out, err := c.ecs.ListTasks(ctx, listInput)
		if err != nil {
			return nil, classify(err, "list tasks")
		}
		arns = append(arns, out.TaskArns...)
		if out.NextToken == nil {
			break
		}
		listInput.NextToken = out.NextToken
	}
	if len(arns) == 0 {
		return nil, nil
	}

	// DescribeTasks accepts at most 100 ARNs per call.
	var tasks []TaskDescriptor
	for start := 0; start < len(arns); start += 100 {
		end := min(start+100, len(arns))
		out, err := c.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: awssdk.String(clusterName),
			Tasks:   arns[start:end],
		})
		if err != nil {
			return nil, classify(err, "describe tasks")
		}
		for _, task := range out.Tasks {
			tasks = append(tasks, descriptorFromTask(task, clusterName, serviceName))
		}
	}
	return tasks, nil
}

func descriptorFromTask(task ecstypes.Task, clusterName, serviceName string) TaskDescriptor {
	d := TaskDescriptor{ClusterName: clusterName, ServiceName: serviceName}
	if task.TaskArn != nil {
		d.TaskARN = *task.TaskArn
	}
	if task.TaskDefinitionArn != nil {
		d.TaskDefinitionARN = *task.TaskDefinitionArn
	}
	if task.StartedAt != nil {
		d.StartedAt = task.StartedAt
	}
	// Group is "service:<name>" for service-launched tasks; prefer it when
	// present so the descriptor reflects what ECS reports.
	if task.Group != nil {
		if name, ok := strings.CutPrefix(*task.Group, "service:"); ok {
			d.ServiceName = name
		}
	}
	return d
}
