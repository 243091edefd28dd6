package audit

import (
	"context"
	"time"

	"opskit/internal/jira"
	"opskit/internal/kube"
	"opskit/internal/postgres"
	"opskit/internal/ssh"
)

// Jira decorates the Jira capability. Mutating operations are recorded;
// reads pass through the embedded client untouched.
type Jira struct {
	*jira.Client
	rec *Recorder
}

// NewJira wraps client with audit recording.
func NewJira(client *jira.Client, rec *Recorder) *Jira {
	return &Jira{Client: client, rec: rec}
}

func (j *Jira) CreateIssue(ctx context.Context, project, summary, description, issueType string) (*jira.Issue, error) {
	issue, err := j.Client.CreateIssue(ctx, project, summary, description, issueType)

	details := map[string]any{"project": project, "summary": summary, "type": issueType}
	if issue != nil {
		details["key"] = issue.Key
	}
	j.rec.Record(ctx, "jira", "create issue", details, err)
	return issue, err
}

func (j *Jira) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	err := j.Client.UpdateIssue(ctx, key, fields)
	j.rec.Record(ctx, "jira", "update issue", map[string]any{"key": key}, err)
	return err
}

func (j *Jira) DeleteIssue(ctx context.Context, key string) error {
	err := j.Client.DeleteIssue(ctx, key)
	j.rec.Record(ctx, "jira", "delete issue", map[string]any{"key": key}, err)
	return err
}

func (j *Jira) TransitionIssue(ctx context.Context, key, transitionID string) error {
	err := j.Client.TransitionIssue(ctx, key, transitionID)
	j.rec.Record(ctx, "jira", "transition issue",
		map[string]any{"key": key, "transition": transitionID}, err)
	return err
}

// Kubernetes decorates the Kubernetes capability.
type Kubernetes struct {
	*kube.Client
	rec *Recorder
}

// NewKubernetes wraps client with audit recording.
func NewKubernetes(client *kube.Client, rec *Recorder) *Kubernetes {
	return &Kubernetes{Client: client, rec: rec}
}

func (k *Kubernetes) DeletePod(ctx context.Context, namespace, name string, force bool) error {
	err := k.Client.DeletePod(ctx, namespace, name, force)
	k.rec.Record(ctx, "kube", "delete pod",
		map[string]any{"namespace": namespace, "pod": name, "force": force}, err)
	return err
}

func (k *Kubernetes) CreateDeployment(ctx context.Context, namespace, name, image string, replicas int32, env map[string]string) (*kube.Deployment, error) {
	deployment, err := k.Client.CreateDeployment(ctx, namespace, name, image, replicas, env)
	k.rec.Record(ctx, "kube", "create deployment",
		map[string]any{"namespace": namespace, "deployment": name, "image": image, "replicas": replicas}, err)
	return deployment, err
}

func (k *Kubernetes) DeleteDeployment(ctx context.Context, namespace, name string) error {
	err := k.Client.DeleteDeployment(ctx, namespace, name)
	k.rec.Record(ctx, "kube", "delete deployment",
		map[string]any{"namespace": namespace, "deployment": name}, err)
	return err
}

func (k *Kubernetes) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) (*kube.Deployment, error) {
	deployment, err := k.Client.ScaleDeployment(ctx, namespace, name, replicas)
	k.rec.Record(ctx, "kube", "scale deployment",
		map[string]any{"namespace": namespace, "deployment": name, "replicas": replicas}, err)
	return deployment, err
}

// Postgres decorates the PostgreSQL capability.
type Postgres struct {
	*postgres.Client
	rec *Recorder
}

// NewPostgres wraps client with audit recording.
func NewPostgres(client *postgres.Client, rec *Recorder) *Postgres {
	return &Postgres{Client: client, rec: rec}
}

func (p *Postgres) KillProcess(ctx context.Context, pid int) (bool, error) {
	terminated, err := p.Client.KillProcess(ctx, pid)
	p.rec.Record(ctx, "postgres", "kill process",
		map[string]any{"pid": pid, "terminated": terminated}, err)
	return terminated, err
}

func (p *Postgres) KillProcesses(ctx context.Context, pids []int) []postgres.KillResult {
	results := p.Client.KillProcesses(ctx, pids)

	failed := 0
	for _, r := range results {
		if !r.Terminated {
			failed++
		}
	}
	p.rec.Record(ctx, "postgres", "kill processes",
		map[string]any{"pids": pids, "failed": failed}, nil)
	return results
}

func (p *Postgres) KillBlockingQueries(ctx context.Context, minAge time.Duration) ([]postgres.KillResult, error) {
	results, err := p.Client.KillBlockingQueries(ctx, minAge)
	p.rec.Record(ctx, "postgres", "kill blocking queries",
		map[string]any{"min_age": minAge.String(), "killed": len(results)}, err)
	return results, err
}

// SSH decorates one SSH connection. Commands are recorded with the target
// host; file transfer operations pass through.
type SSH struct {
	*ssh.Client
	rec *Recorder
}

// NewSSH wraps client with audit recording.
func NewSSH(client *ssh.Client, rec *Recorder) *SSH {
	return &SSH{Client: client, rec: rec}
}

func (s *SSH) ExecCommand(command string) (*ssh.ExecResult, error) {
	result, err := s.Client.ExecCommand(command)

	details := map[string]any{"host": s.Host(), "command": command}
	if result != nil {
		details["exit_code"] = result.ExitCode
		details["success"] = result.Success
	}
	s.rec.Record(context.Background(), "ssh", "exec command", details, err)
	return result, err
}

func (s *SSH) ExecCommands(commands []string) ([]ssh.ExecResult, error) {
	results, err := s.Client.ExecCommands(commands)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	s.rec.Record(context.Background(), "ssh", "exec commands",
		map[string]any{"host": s.Host(), "commands": len(commands), "succeeded": succeeded}, err)
	return results, err
}
