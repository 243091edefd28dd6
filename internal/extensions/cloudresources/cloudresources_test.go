package cloudresources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"opskit/internal/client"
	"opskit/internal/github"
	"opskit/internal/kube"
)

type fakeFacade struct {
	gh      *github.Client
	ghErr   error
	kube    *kube.Client
	kubeErr error
}

func (f *fakeFacade) GitHub() (*github.Client, error)   { return f.gh, f.ghErr }
func (f *fakeFacade) Kubernetes() (*kube.Client, error) { return f.kube, f.kubeErr }

func githubAt(t *testing.T, handler http.HandlerFunc) *github.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gh, err := github.NewEnterpriseClient(server.URL, "token")
	require.NoError(t, err)
	return gh
}

func int32Ptr(n int32) *int32 { return &n }

func testClientset() *fake.Clientset {
	return fake.NewSimpleClientset(
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "web-1", Namespace: "default"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning},
		},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
			Spec:       appsv1.DeploymentSpec{Replicas: int32Ptr(2)},
		},
	)
}

func TestCollectGathersAllCapabilities(t *testing.T) {
	gh := githubAt(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/users/octo/repos", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"name":"toolkit","full_name":"octo/toolkit"},{"name":"infra","full_name":"octo/infra"}]`)
	})

	agg := New(&fakeFacade{gh: gh, kube: kube.NewFromClientset(testClientset())})

	inv, err := agg.Collect(context.Background(), Options{GitHubUser: "octo", Namespace: "default"})
	require.NoError(t, err)
	require.Len(t, inv.Repos, 2)
	assert.Equal(t, "octo/toolkit", inv.Repos[0].FullName)
	require.Len(t, inv.Pods, 1)
	assert.Equal(t, "web-1", inv.Pods[0].Name)
	require.Len(t, inv.Deployments, 1)
	assert.Equal(t, "web", inv.Deployments[0].Name)
	assert.Empty(t, inv.Skipped)
}

func TestCollectSkipsUnconfiguredCapabilities(t *testing.T) {
	agg := New(&fakeFacade{
		ghErr:   client.NewConfigurationError("github", "github_token"),
		kubeErr: errors.New("kube: load kubeconfig: no configuration has been provided"),
	})

	inv, err := agg.Collect(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "kubernetes"}, inv.Skipped)
	assert.Empty(t, inv.Repos)
	assert.Empty(t, inv.Pods)
	assert.Empty(t, inv.Counts())
}

func TestCollectPropagatesFetchFailures(t *testing.T) {
	gh := githubAt(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	agg := New(&fakeFacade{gh: gh, kubeErr: errors.New("no kubeconfig")})

	_, err := agg.Collect(context.Background(), Options{GitHubUser: "octo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list repositories")
}

func TestCollectReturnsNonConfigurationGitHubErrors(t *testing.T) {
	facadeErr := errors.New("facade broken")
	agg := New(&fakeFacade{ghErr: facadeErr, kubeErr: errors.New("no kubeconfig")})

	_, err := agg.Collect(context.Background(), Options{})
	assert.ErrorIs(t, err, facadeErr)
}

func TestCounts(t *testing.T) {
	inv := &Inventory{
		Repos: []github.Repo{{Name: "a"}, {Name: "b"}},
		Pods:  []kube.Pod{{Name: "web-1"}},
	}

	assert.Equal(t, map[string]int{"repos": 2, "pods": 1}, inv.Counts())
}

func TestModuleRegistersItself(t *testing.T) {
	assert.Contains(t, client.ExtensionModules(), Name)
}
