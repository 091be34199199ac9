package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
)

// DeploymentInstances returns the EC2 instances currently targeted by the
// given CodeDeploy deployment, filtered down to the running ones. A
// deployment that no longer exists yields provider.ErrNotFound.
func (c *Client) DeploymentInstances(ctx context.Context, deploymentID string) ([]HostDescriptor, error) {
	input := &codedeploy.ListDeploymentInstancesInput{
		DeploymentId: awssdk.String(deploymentID),
	}

	var ids []string
	for {
		out, err := c.codedeploy.ListDeploymentInstances(ctx, input)
		if err != nil {
			return nil, classify(err, "list deployment instances")
		}
		ids = append(ids, out.InstancesList...)
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return c.RunningInstances(ctx, ids)
}
