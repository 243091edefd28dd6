package cli

import (
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"

	"opskit/internal/brew"
	"opskit/internal/client"
	"opskit/internal/compose"
	"opskit/internal/confluence"
	"opskit/internal/docker"
	"opskit/internal/github"
	"opskit/internal/google"
	"opskit/internal/jira"
	"opskit/internal/kube"
	"opskit/internal/opensearch"
	"opskit/internal/postgres"
	"opskit/internal/ssh"
)

// Exit codes returned by the opskit binary.
const (
	// ExitOK means the command succeeded.
	ExitOK = 0
	// ExitGeneral covers usage errors and everything not classified below.
	ExitGeneral = 1
	// ExitConfiguration means required settings were absent or invalid.
	ExitConfiguration = 2
	// ExitOperation means a capability operation failed after construction.
	ExitOperation = 3
)

// ExitCode maps an error to the process exit code. Configuration problems
// and capability operation failures get dedicated codes so scripts can
// react to them.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var confErr *client.ConfigurationError
	if errors.As(err, &confErr) {
		return ExitConfiguration
	}
	if isCapabilityError(err) {
		return ExitOperation
	}
	return ExitGeneral
}

// isCapabilityError reports whether err came out of one of the capability
// wrappers.
func isCapabilityError(err error) bool {
	var (
		brewErr       *brew.Error
		composeErr    *compose.Error
		confluenceErr *confluence.Error
		dockerErr     *docker.Error
		githubErr     *github.Error
		googleErr     *google.Error
		jiraErr       *jira.Error
		kubeErr       *kube.Error
		opensearchErr *opensearch.Error
		postgresErr   *postgres.Error
		sshErr        *ssh.Error
	)
	switch {
	case errors.As(err, &brewErr),
		errors.As(err, &composeErr),
		errors.As(err, &confluenceErr),
		errors.As(err, &dockerErr),
		errors.As(err, &githubErr),
		errors.As(err, &googleErr),
		errors.As(err, &jiraErr),
		errors.As(err, &kubeErr),
		errors.As(err, &opensearchErr),
		errors.As(err, &postgresErr),
		errors.As(err, &sshErr):
		return true
	}
	return false
}

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error.
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// Hint suggests what to check for each connection error type. An empty
// string means there is no useful suggestion.
func (t ConnectionErrorType) Hint() string {
	switch t {
	case ConnectionErrorTLS:
		return "check the endpoint certificate or your CA bundle"
	case ConnectionErrorNetwork:
		return "check that the endpoint is reachable from this machine"
	case ConnectionErrorTimeout:
		return "the endpoint did not respond in time; check connectivity or VPN"
	case ConnectionErrorDNS:
		return "check the configured hostname"
	default:
		return ""
	}
}

// ClassifyConnectionError analyzes a capability failure and categorizes its
// underlying connection problem, if any. Used to print an actionable hint
// next to the error message.
func ClassifyConnectionError(err error) ConnectionErrorType {
	if err == nil {
		return ConnectionErrorUnknown
	}

	if isTLSError(err) {
		return ConnectionErrorTLS
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectionErrorDNS
	}

	if isTimeoutError(err) {
		return ConnectionErrorTimeout
	}

	if isNetworkError(err.Error()) {
		return ConnectionErrorNetwork
	}

	return ConnectionErrorUnknown
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	tlsKeywords := []string{
		"x509:",
		"certificate",
		"tls:",
		"TLS handshake",
	}
	for _, keyword := range tlsKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	for e := err; e != nil; {
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return true
		}
		if u, ok := e.(interface{ Unwrap() error }); ok {
			e = u.Unwrap()
		} else {
			break
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network
// connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}
	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
