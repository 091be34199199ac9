// Package kube resolves live Kubernetes pods for a container-service
// family. It is the container handler's view of "what is actually
// running" on a cluster.
package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/fleetsync/fleetsync/internal/provider"
)

// PodDescriptor describes one running pod.
type PodDescriptor struct {
	Name           string
	Namespace      string
	ReleaseName    string
	ControllerName string
	IP             string
	Image          string
}

// Client lists pods through a Kubernetes clientset.
type Client struct {
	clientset kubernetes.Interface
}

// New builds a Client from a kubeconfig path, falling back to in-cluster
// configuration when the path is empty.
func New(kubeconfigPath string) (*Client, error) {
	var cfg *rest.Config
	var err error
	if kubeconfigPath == "" {
		cfg, err = rest.InClusterConfig()
	} else {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return &Client{clientset: clientset}, nil
}

// NewWithClientset builds a Client around an existing clientset. Used by
// tests with the client-go fake.
func NewWithClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// ListPods returns the running pods in namespace matching selector. A
// namespace that no longer exists yields provider.ErrNotFound; an empty
// selector matches every pod in the namespace.
func (c *Client) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]PodDescriptor, error) {
	opts := metav1.ListOptions{}
	if len(selector) > 0 {
		opts.LabelSelector = labels.Set(selector).String()
	}

	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, opts)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("namespace %s: %w", namespace, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	var pods []PodDescriptor
	for i := range list.Items {
		pod := &list.Items[i]
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		pods = append(pods, descriptorFromPod(pod))
	}
	return pods, nil
}

func descriptorFromPod(pod *corev1.Pod) PodDescriptor {
	d := PodDescriptor{
		Name:        pod.Name,
		Namespace:   pod.Namespace,
		ReleaseName: pod.Labels["release"],
		IP:          pod.Status.PodIP,
	}
	if d.ReleaseName == "" {
		d.ReleaseName = pod.Labels["app.kubernetes.io/instance"]
	}
	for _, owner := range pod.OwnerReferences {
		if owner.Controller != nil && *owner.Controller {
			d.ControllerName = owner.Name
			break
		}
	}
	if len(pod.Spec.Containers) > 0 {
		d.Image = pod.Spec.Containers[0].Image
	}
	return d
}
