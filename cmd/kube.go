package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"opskit/internal/audit"
	"opskit/internal/cli"
	"opskit/internal/kube"
)

var kubeFlags cli.CommandFlags

var (
	kubeNamespace      string
	kubeDeleteForce    bool
	kubeCreateImage    string
	kubeCreateReplicas int32
	kubeCreateEnv      []string
	kubeScaleReplicas  int32
	kubeManifestFile   string
)

// kubeCmd groups the Kubernetes subcommands.
var kubeCmd = &cobra.Command{
	Use:   "kube",
	Short: "Inspect and manage Kubernetes workloads",
	Long: `Inspect and manage pods, deployments, statefulsets and daemonsets.

Uses kube_config_path and kube_context when set, otherwise the ambient
kubeconfig ($KUBECONFIG or ~/.kube/config) and its current context.

Examples:
  opskit kube pods -n kube-system
  opskit kube scale web --replicas 5 -n prod
  opskit kube apply -f deployment.yaml`,
}

// kubeClient builds the audit-decorated Kubernetes capability.
func kubeClient() (*kube.Client, *audit.Kubernetes, error) {
	kc, err := toolkit.Kubernetes()
	if err != nil {
		return nil, nil, err
	}
	return kc, audit.NewKubernetes(kc, auditRecorder()), nil
}

func newKubeContextsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List the contexts of the kubeconfig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kc, _, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			contexts, err := kc.Contexts()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(contexts))
			for _, c := range contexts {
				current := ""
				if c.Current {
					current = "*"
				}
				rows = append(rows, []string{current, c.Name, c.Cluster, c.Namespace})
			}
			return f.Table(cmd.OutOrStdout(), []string{"", "NAME", "CLUSTER", "NAMESPACE"}, rows, contexts)
		},
	}
}

func newKubePodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pods",
		Short: "List pods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kc, _, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			var pods []kube.Pod
			err = cli.WithSpinner(!kubeFlags.ShowProgress(), "fetching pods", func() error {
				var err error
				pods, err = kc.Pods(cmd.Context(), kubeNamespace)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pods))
			for _, p := range pods {
				rows = append(rows, []string{p.Namespace, p.Name, p.Ready, p.Status, strconv.Itoa(p.Restarts), p.Age})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAMESPACE", "NAME", "READY", "STATUS", "RESTARTS", "AGE"}, rows, pods)
		},
	}
}

func newKubeDeletePodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-pod NAME",
		Short: "Delete a pod",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, audited, err := kubeClient()
			if err != nil {
				return err
			}
			if err := audited.DeletePod(cmd.Context(), kubeNamespace, args[0], kubeDeleteForce); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted pod %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&kubeDeleteForce, "force", false, "Delete immediately without grace period")
	return cmd
}

func workloadRows(workloads []kube.Workload) [][]string {
	rows := make([][]string, 0, len(workloads))
	for _, w := range workloads {
		rows = append(rows, []string{w.Namespace, w.Name, w.Ready, w.Age})
	}
	return rows
}

func newKubeDeploymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deployments",
		Short: "List deployments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kc, _, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			var deployments []kube.Deployment
			err = cli.WithSpinner(!kubeFlags.ShowProgress(), "fetching deployments", func() error {
				var err error
				deployments, err = kc.Deployments(cmd.Context(), kubeNamespace)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(deployments))
			for _, d := range deployments {
				rows = append(rows, []string{
					d.Namespace, d.Name, d.Ready,
					strconv.Itoa(int(d.UpToDate)), strconv.Itoa(int(d.Available)), d.Age,
				})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAMESPACE", "NAME", "READY", "UP-TO-DATE", "AVAILABLE", "AGE"}, rows, deployments)
		},
	}
}

func newKubeCreateDeploymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-deployment NAME",
		Short: "Create a deployment from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kubeCreateImage == "" {
				return fmt.Errorf("--image is required")
			}
			env, err := parseKeyValues(kubeCreateEnv)
			if err != nil {
				return err
			}
			_, audited, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			deployment, err := audited.CreateDeployment(cmd.Context(), kubeNamespace, args[0], kubeCreateImage, kubeCreateReplicas, env)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), deployment)
		},
	}
	cmd.Flags().StringVar(&kubeCreateImage, "image", "", "Container image (required)")
	cmd.Flags().Int32Var(&kubeCreateReplicas, "replicas", 1, "Number of replicas")
	cmd.Flags().StringArrayVar(&kubeCreateEnv, "env", nil, "Environment variable as key=value (repeatable)")
	return cmd
}

func newKubeApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create a deployment from a manifest file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kubeManifestFile == "" {
				return fmt.Errorf("--filename is required")
			}
			kc, _, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			deployment, err := kc.DeploymentFromManifest(cmd.Context(), kubeManifestFile)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), deployment)
		},
	}
	cmd.Flags().StringVarP(&kubeManifestFile, "filename", "f", "", "Deployment manifest file (required)")
	return cmd
}

func newKubeDeleteDeploymentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-deployment NAME",
		Short: "Delete a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, audited, err := kubeClient()
			if err != nil {
				return err
			}
			if err := audited.DeleteDeployment(cmd.Context(), kubeNamespace, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted deployment %s\n", args[0])
			return nil
		},
	}
}

func newKubeScaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scale NAME",
		Short: "Scale a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("replicas") {
				return fmt.Errorf("--replicas is required")
			}
			_, audited, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			deployment, err := audited.ScaleDeployment(cmd.Context(), kubeNamespace, args[0], kubeScaleReplicas)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), deployment)
		},
	}
	cmd.Flags().Int32Var(&kubeScaleReplicas, "replicas", 0, "Desired number of replicas (required)")
	return cmd
}

func newKubeStatefulSetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statefulsets",
		Short: "List statefulsets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kc, _, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			var sets []kube.Workload
			err = cli.WithSpinner(!kubeFlags.ShowProgress(), "fetching statefulsets", func() error {
				var err error
				sets, err = kc.StatefulSets(cmd.Context(), kubeNamespace)
				return err
			})
			if err != nil {
				return err
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAMESPACE", "NAME", "READY", "AGE"}, workloadRows(sets), sets)
		},
	}
}

func newKubeDaemonSetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemonsets",
		Short: "List daemonsets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kc, _, err := kubeClient()
			if err != nil {
				return err
			}
			f, err := kubeFlags.Formatter()
			if err != nil {
				return err
			}
			var sets []kube.Workload
			err = cli.WithSpinner(!kubeFlags.ShowProgress(), "fetching daemonsets", func() error {
				var err error
				sets, err = kc.DaemonSets(cmd.Context(), kubeNamespace)
				return err
			})
			if err != nil {
				return err
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAMESPACE", "NAME", "READY", "AGE"}, workloadRows(sets), sets)
		},
	}
}

func init() {
	rootCmd.AddCommand(kubeCmd)
	cli.RegisterOutputFlags(kubeCmd, &kubeFlags)
	kubeCmd.PersistentFlags().StringVarP(&kubeNamespace, "namespace", "n", "", "Namespace (empty for all namespaces)")

	kubeCmd.AddCommand(newKubeContextsCmd())
	kubeCmd.AddCommand(newKubePodsCmd())
	kubeCmd.AddCommand(newKubeDeletePodCmd())
	kubeCmd.AddCommand(newKubeDeploymentsCmd())
	kubeCmd.AddCommand(newKubeCreateDeploymentCmd())
	kubeCmd.AddCommand(newKubeApplyCmd())
	kubeCmd.AddCommand(newKubeDeleteDeploymentCmd())
	kubeCmd.AddCommand(newKubeScaleCmd())
	kubeCmd.AddCommand(newKubeStatefulSetsCmd())
	kubeCmd.AddCommand(newKubeDaemonSetsCmd())
}
