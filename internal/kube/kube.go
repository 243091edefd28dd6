package kube

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // Important for various auth providers
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/yaml"
)

// Client wraps a Kubernetes clientset built from the local kubeconfig.
type Client struct {
	clientset  kubernetes.Interface
	kubeConfig clientcmd.ClientConfig
}

// Error is the generic failure kind for Kubernetes operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("kube: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient builds a client from kubeconfig. An empty configPath uses the
// default loading rules ($KUBECONFIG, ~/.kube/config); an empty contextName
// uses the current context.
func NewClient(configPath, contextName string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if configPath != "" {
		loadingRules.ExplicitPath = configPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, opErr(fmt.Sprintf("load kubeconfig for context %q", contextName), err)
	}
	restConfig.Timeout = 30 * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, opErr("create clientset", err)
	}

	return &Client{clientset: clientset, kubeConfig: kubeConfig}, nil
}

// NewFromClientset wraps an existing clientset. Contexts is unavailable on
// a client built this way since there is no kubeconfig behind it.
func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// ContextInfo describes one kubeconfig context.
type ContextInfo struct {
	Name      string `json:"name"`
	Cluster   string `json:"cluster"`
	User      string `json:"user"`
	Namespace string `json:"namespace,omitempty"`
	Current   bool   `json:"current"`
}

// Pod is a pod listing entry.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Ready     string `json:"ready"`
	Status    string `json:"status"`
	Restarts  int    `json:"restarts"`
	Node      string `json:"node,omitempty"`
	Age       string `json:"age"`
}

// Deployment is a deployment listing entry.
type Deployment struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Ready     string `json:"ready"`
	UpToDate  int32  `json:"up_to_date"`
	Available int32  `json:"available"`
	Age       string `json:"age"`
}

// Workload is a statefulset or daemonset listing entry.
type Workload struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Ready     string `json:"ready"`
	Age       string `json:"age"`
}

// Contexts lists the contexts of the active kubeconfig.
func (c *Client) Contexts() ([]ContextInfo, error) {
	if c.kubeConfig == nil {
		return nil, opErr("list contexts", fmt.Errorf("no kubeconfig loaded"))
	}
	raw, err := c.kubeConfig.RawConfig()
	if err != nil {
		return nil, opErr("list contexts", err)
	}
	return contextsFromConfig(&raw), nil
}

func contextsFromConfig(raw *clientcmdapi.Config) []ContextInfo {
	contexts := make([]ContextInfo, 0, len(raw.Contexts))
	for name, kctx := range raw.Contexts {
		contexts = append(contexts, ContextInfo{
			Name:      name,
			Cluster:   kctx.Cluster,
			User:      kctx.AuthInfo,
			Namespace: kctx.Namespace,
			Current:   name == raw.CurrentContext,
		})
	}
	sort.Slice(contexts, func(i, j int) bool { return contexts[i].Name < contexts[j].Name })
	return contexts
}

// Pods lists pods in a namespace, or across all namespaces when namespace
// is empty.
func (c *Client) Pods(ctx context.Context, namespace string) ([]Pod, error) {
	if namespace == "" {
		namespace = metav1.NamespaceAll
	}
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("list pods in %q", namespace), err)
	}

	pods := make([]Pod, 0, len(list.Items))
	for i := range list.Items {
		pods = append(pods, convertPod(&list.Items[i]))
	}
	return pods, nil
}

// DeletePod deletes a pod. With force set, the grace period is skipped.
func (c *Client) DeletePod(ctx context.Context, namespace, name string, force bool) error {
	opts := metav1.DeleteOptions{}
	if force {
		zero := int64(0)
		opts.GracePeriodSeconds = &zero
	}
	if err := c.clientset.CoreV1().Pods(namespace).Delete(ctx, name, opts); err != nil {
		return opErr(fmt.Sprintf("delete pod %s/%s", namespace, name), err)
	}
	return nil
}

// Deployments lists deployments in a namespace, or across all namespaces
// when namespace is empty.
func (c *Client) Deployments(ctx context.Context, namespace string) ([]Deployment, error) {
	if namespace == "" {
		namespace = metav1.NamespaceAll
	}
	list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("list deployments in %q", namespace), err)
	}

	deployments := make([]Deployment, 0, len(list.Items))
	for i := range list.Items {
		deployments = append(deployments, convertDeployment(&list.Items[i]))
	}
	return deployments, nil
}

// CreateDeployment creates a single-container deployment labelled
// app=<name>.
func (c *Client) CreateDeployment(ctx context.Context, namespace, name, image string, replicas int32, env map[string]string) (*Deployment, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if replicas <= 0 {
		replicas = 1
	}

	labels := map[string]string{"app": name}

	envVars := make([]corev1.EnvVar, 0, len(env))
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		envVars = append(envVars, corev1.EnvVar{Name: k, Value: env[k]})
	}

	spec := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{Name: name, Image: image, Env: envVars},
					},
				},
			},
		},
	}

	created, err := c.clientset.AppsV1().Deployments(namespace).Create(ctx, spec, metav1.CreateOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("create deployment %s/%s", namespace, name), err)
	}
	d := convertDeployment(created)
	return &d, nil
}

// DeploymentFromManifest creates a deployment from a YAML manifest file.
func (c *Client) DeploymentFromManifest(ctx context.Context, path string) (*Deployment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, opErr(fmt.Sprintf("read manifest %s", path), err)
	}

	var spec appsv1.Deployment
	if err := yaml.UnmarshalStrict(raw, &spec); err != nil {
		return nil, opErr(fmt.Sprintf("parse manifest %s", path), err)
	}
	if spec.Name == "" {
		return nil, opErr(fmt.Sprintf("parse manifest %s", path), fmt.Errorf("manifest has no metadata.name"))
	}
	if spec.Namespace == "" {
		spec.Namespace = metav1.NamespaceDefault
	}

	created, err := c.clientset.AppsV1().Deployments(spec.Namespace).Create(ctx, &spec, metav1.CreateOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("create deployment %s/%s", spec.Namespace, spec.Name), err)
	}
	d := convertDeployment(created)
	return &d, nil
}

// DeleteDeployment deletes a deployment.
func (c *Client) DeleteDeployment(ctx context.Context, namespace, name string) error {
	if err := c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return opErr(fmt.Sprintf("delete deployment %s/%s", namespace, name), err)
	}
	return nil
}

// ScaleDeployment sets a deployment's replica count.
func (c *Client) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) (*Deployment, error) {
	deployments := c.clientset.AppsV1().Deployments(namespace)

	current, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("get deployment %s/%s", namespace, name), err)
	}

	current.Spec.Replicas = &replicas
	updated, err := deployments.Update(ctx, current, metav1.UpdateOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("scale deployment %s/%s to %d", namespace, name, replicas), err)
	}
	d := convertDeployment(updated)
	return &d, nil
}

// StatefulSets lists statefulsets in a namespace, or across all namespaces
// when namespace is empty.
func (c *Client) StatefulSets(ctx context.Context, namespace string) ([]Workload, error) {
	if namespace == "" {
		namespace = metav1.NamespaceAll
	}
	list, err := c.clientset.AppsV1().StatefulSets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("list statefulsets in %q", namespace), err)
	}

	sets := make([]Workload, 0, len(list.Items))
	for i := range list.Items {
		s := &list.Items[i]
		replicas := int32(1)
		if s.Spec.Replicas != nil {
			replicas = *s.Spec.Replicas
		}
		sets = append(sets, Workload{
			Name:      s.Name,
			Namespace: s.Namespace,
			Ready:     fmt.Sprintf("%d/%d", s.Status.ReadyReplicas, replicas),
			Age:       formatAge(s.CreationTimestamp.Time),
		})
	}
	return sets, nil
}

// DaemonSets lists daemonsets in a namespace, or across all namespaces
// when namespace is empty.
func (c *Client) DaemonSets(ctx context.Context, namespace string) ([]Workload, error) {
	if namespace == "" {
		namespace = metav1.NamespaceAll
	}
	list, err := c.clientset.AppsV1().DaemonSets(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, opErr(fmt.Sprintf("list daemonsets in %q", namespace), err)
	}

	sets := make([]Workload, 0, len(list.Items))
	for i := range list.Items {
		s := &list.Items[i]
		sets = append(sets, Workload{
			Name:      s.Name,
			Namespace: s.Namespace,
			Ready:     fmt.Sprintf("%d/%d", s.Status.NumberReady, s.Status.DesiredNumberScheduled),
			Age:       formatAge(s.CreationTimestamp.Time),
		})
	}
	return sets, nil
}

func convertPod(pod *corev1.Pod) Pod {
	ready := 0
	restarts := 0
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
		restarts += int(cs.RestartCount)
	}

	status := string(pod.Status.Phase)
	if pod.DeletionTimestamp != nil {
		status = "Terminating"
	}

	return Pod{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Ready:     fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
		Status:    status,
		Restarts:  restarts,
		Node:      pod.Spec.NodeName,
		Age:       formatAge(pod.CreationTimestamp.Time),
	}
}

func convertDeployment(d *appsv1.Deployment) Deployment {
	replicas := int32(1)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	return Deployment{
		Name:      d.Name,
		Namespace: d.Namespace,
		Ready:     fmt.Sprintf("%d/%d", d.Status.ReadyReplicas, replicas),
		UpToDate:  d.Status.UpdatedReplicas,
		Available: d.Status.AvailableReplicas,
		Age:       formatAge(d.CreationTimestamp.Time),
	}
}

// formatAge renders a creation time the way kubectl does in listings.
func formatAge(created time.Time) string {
	if created.IsZero() {
		return "<unknown>"
	}
	d := time.Since(created)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
