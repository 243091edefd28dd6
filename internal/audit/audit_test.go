package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"opskit/internal/jira"
	"opskit/internal/kube"
	"opskit/internal/postgres"
)

type sinkCall struct {
	index string
	id    string
	event Event
}

type fakeSink struct {
	calls []sinkCall
	err   error
}

func (s *fakeSink) WriteDocument(_ context.Context, index, id string, doc any) error {
	s.calls = append(s.calls, sinkCall{index: index, id: id, event: doc.(Event)})
	return s.err
}

func TestRecordSuccess(t *testing.T) {
	sink := &fakeSink{}
	rec := NewRecorder(sink)

	rec.Record(context.Background(), "kube", "delete pod",
		map[string]any{"namespace": "default", "pod": "web-1"}, nil)

	require.Len(t, sink.calls, 1)
	call := sink.calls[0]
	assert.Equal(t, Index, call.index)

	_, err := uuid.Parse(call.event.ID)
	assert.NoError(t, err)
	assert.Equal(t, call.event.ID, call.id)
	assert.Equal(t, "kube", call.event.Service)
	assert.Equal(t, "delete pod", call.event.Action)
	assert.Equal(t, StatusSuccess, call.event.Status)
	assert.Equal(t, "web-1", call.event.Details["pod"])
	assert.Empty(t, call.event.Error)
	assert.False(t, call.event.Timestamp.IsZero())
}

func TestRecordFailure(t *testing.T) {
	sink := &fakeSink{}
	rec := NewRecorder(sink)

	rec.Record(context.Background(), "postgres", "kill process", nil, errors.New("permission denied"))

	require.Len(t, sink.calls, 1)
	assert.Equal(t, StatusFailure, sink.calls[0].event.Status)
	assert.Equal(t, "permission denied", sink.calls[0].event.Error)
}

func TestRecorderDisabled(t *testing.T) {
	assert.False(t, NewRecorder(nil).Enabled())

	var rec *Recorder
	assert.False(t, rec.Enabled())

	// Neither form may panic.
	NewRecorder(nil).Record(context.Background(), "jira", "create issue", nil, nil)
	rec.Record(context.Background(), "jira", "create issue", nil, nil)
}

func TestRecordSinkFailureSwallowed(t *testing.T) {
	sink := &fakeSink{err: errors.New("index unavailable")}
	rec := NewRecorder(sink)

	rec.Record(context.Background(), "ssh", "exec command", nil, nil)

	// The write was attempted; the failure stays inside the recorder.
	assert.Len(t, sink.calls, 1)
}

func newJiraDecorator(t *testing.T, handler http.HandlerFunc, sink *fakeSink) *Jira {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := jira.NewClient(server.URL, "bot", "token")
	require.NoError(t, err)
	return NewJira(client, NewRecorder(sink))
}

func TestJiraDecoratorRecordsSuccess(t *testing.T) {
	sink := &fakeSink{}
	decorated := newJiraDecorator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, sink)

	require.NoError(t, decorated.DeleteIssue(context.Background(), "OPS-9"))

	require.Len(t, sink.calls, 1)
	event := sink.calls[0].event
	assert.Equal(t, "jira", event.Service)
	assert.Equal(t, "delete issue", event.Action)
	assert.Equal(t, StatusSuccess, event.Status)
	assert.Equal(t, "OPS-9", event.Details["key"])
}

func TestJiraDecoratorRecordsFailureAndReturnsError(t *testing.T) {
	sink := &fakeSink{}
	decorated := newJiraDecorator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, sink)

	err := decorated.DeleteIssue(context.Background(), "OPS-9")

	require.Error(t, err)
	var jiraErr *jira.Error
	assert.ErrorAs(t, err, &jiraErr)

	require.Len(t, sink.calls, 1)
	event := sink.calls[0].event
	assert.Equal(t, StatusFailure, event.Status)
	assert.Contains(t, event.Error, "delete issue OPS-9")
}

func TestKubernetesDecoratorRecordsDeletePod(t *testing.T) {
	clientset := fake.NewSimpleClientset(&corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web-1", Namespace: "default"},
	})
	sink := &fakeSink{}
	decorated := NewKubernetes(kube.NewFromClientset(clientset), NewRecorder(sink))

	require.NoError(t, decorated.DeletePod(context.Background(), "default", "web-1", false))

	require.Len(t, sink.calls, 1)
	event := sink.calls[0].event
	assert.Equal(t, "kube", event.Service)
	assert.Equal(t, "delete pod", event.Action)
	assert.Equal(t, StatusSuccess, event.Status)
	assert.Equal(t, "default", event.Details["namespace"])
	assert.Equal(t, false, event.Details["force"])
}

func TestPostgresDecoratorRecordsKillProcess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT pg_terminate_backend").
		WithArgs(101).
		WillReturnRows(sqlmock.NewRows([]string{"pg_terminate_backend"}).AddRow(true))

	sink := &fakeSink{}
	decorated := NewPostgres(postgres.NewClientFromDB(db), NewRecorder(sink))

	terminated, err := decorated.KillProcess(context.Background(), 101)

	require.NoError(t, err)
	assert.True(t, terminated)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, sink.calls, 1)
	event := sink.calls[0].event
	assert.Equal(t, "postgres", event.Service)
	assert.Equal(t, "kill process", event.Action)
	assert.Equal(t, 101, event.Details["pid"])
	assert.Equal(t, true, event.Details["terminated"])
}
