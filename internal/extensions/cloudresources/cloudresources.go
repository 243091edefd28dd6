// Package cloudresources aggregates resource listings from the configured
// capabilities into a single inventory. It registers itself as the
// "cloud-resources" extension; plugins obtain it through the client facade
// and type-assert to *Aggregator.
package cloudresources

import (
	"context"

	"golang.org/x/sync/errgroup"

	"opskit/internal/client"
	"opskit/internal/github"
	"opskit/internal/kube"
	"opskit/pkg/logging"
)

// Name is the extension name the aggregator registers under.
const Name = "cloud-resources"

func init() {
	client.RegisterExtensionModule(Name, func(c *client.Client) (any, error) {
		return New(c), nil
	})
}

// capabilities is the slice of the client facade the aggregator reads from.
type capabilities interface {
	GitHub() (*github.Client, error)
	Kubernetes() (*kube.Client, error)
}

// Aggregator collects resource listings across capabilities.
type Aggregator struct {
	client capabilities
}

// New creates an aggregator on top of the given facade.
func New(c capabilities) *Aggregator {
	return &Aggregator{client: c}
}

// Options narrows what Collect gathers.
type Options struct {
	// GitHubUser scopes the repository listing. Empty lists the
	// repositories of the authenticated account.
	GitHubUser string
	// Namespace scopes the cluster listings. Empty means all namespaces.
	Namespace string
}

// Inventory is the merged result of one Collect call. Skipped names the
// capabilities that were left out because they are not configured.
type Inventory struct {
	Repos       []github.Repo     `json:"repos,omitempty"`
	Pods        []kube.Pod        `json:"pods,omitempty"`
	Deployments []kube.Deployment `json:"deployments,omitempty"`
	Skipped     []string          `json:"skipped,omitempty"`
}

// Counts returns the number of collected resources per kind. Skipped
// capabilities do not appear.
func (i *Inventory) Counts() map[string]int {
	counts := make(map[string]int)
	if i.Repos != nil {
		counts["repos"] = len(i.Repos)
	}
	if i.Pods != nil {
		counts["pods"] = len(i.Pods)
	}
	if i.Deployments != nil {
		counts["deployments"] = len(i.Deployments)
	}
	return counts
}

// Collect gathers repositories and cluster workloads concurrently.
// Capabilities that are not configured are skipped and recorded in the
// inventory; a failure from a configured capability aborts the collection.
func (a *Aggregator) Collect(ctx context.Context, opts Options) (*Inventory, error) {
	inv := &Inventory{}

	gh, err := a.client.GitHub()
	switch {
	case err == nil:
	case client.IsConfiguration(err):
		logging.Debug("cloud-resources", "Skipping github: %v", err)
		inv.Skipped = append(inv.Skipped, "github")
	default:
		return nil, err
	}

	// Kubernetes construction fails when no usable kubeconfig exists,
	// which counts as not configured.
	kc, err := a.client.Kubernetes()
	if err != nil {
		logging.Debug("cloud-resources", "Skipping kubernetes: %v", err)
		inv.Skipped = append(inv.Skipped, "kubernetes")
	}

	g, gctx := errgroup.WithContext(ctx)
	if gh != nil {
		g.Go(func() error {
			repos, err := gh.UserRepos(gctx, opts.GitHubUser)
			if err != nil {
				return err
			}
			inv.Repos = repos
			return nil
		})
	}
	if kc != nil {
		g.Go(func() error {
			pods, err := kc.Pods(gctx, opts.Namespace)
			if err != nil {
				return err
			}
			inv.Pods = pods
			return nil
		})
		g.Go(func() error {
			deployments, err := kc.Deployments(gctx, opts.Namespace)
			if err != nil {
				return err
			}
			inv.Deployments = deployments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inv, nil
}
