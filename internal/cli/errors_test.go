package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"opskit/internal/client"
	"opskit/internal/github"
	"opskit/internal/jira"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error",
			err:  nil,
			want: ExitOK,
		},
		{
			name: "generic error",
			err:  errors.New("something broke"),
			want: ExitGeneral,
		},
		{
			name: "configuration error",
			err:  client.NewConfigurationError("jira", "jira_url", "jira_token"),
			want: ExitConfiguration,
		},
		{
			name: "wrapped configuration error",
			err:  fmt.Errorf("startup: %w", client.NewConfigurationError("github", "github_token")),
			want: ExitConfiguration,
		},
		{
			name: "github capability error",
			err:  &github.Error{Op: "list repositories", Err: errors.New("401")},
			want: ExitOperation,
		},
		{
			name: "wrapped jira capability error",
			err:  fmt.Errorf("plugin: %w", &jira.Error{Op: "create issue", Err: errors.New("400")}),
			want: ExitOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{
			name: "nil",
			err:  nil,
			want: ConnectionErrorUnknown,
		},
		{
			name: "certificate failure",
			err:  errors.New("x509: certificate signed by unknown authority"),
			want: ConnectionErrorTLS,
		},
		{
			name: "dns failure",
			err:  &net.DNSError{Err: "no such host", Name: "jira.invalid"},
			want: ConnectionErrorDNS,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			want: ConnectionErrorTimeout,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:9200: connect: connection refused"),
			want: ConnectionErrorNetwork,
		},
		{
			name: "unclassified",
			err:  errors.New("400 bad request"),
			want: ConnectionErrorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyConnectionError(tt.err))
		})
	}
}

func TestConnectionErrorTypeHint(t *testing.T) {
	assert.NotEmpty(t, ConnectionErrorTLS.Hint())
	assert.NotEmpty(t, ConnectionErrorNetwork.Hint())
	assert.Empty(t, ConnectionErrorUnknown.Hint())
}
