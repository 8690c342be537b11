package cmd

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/pflag"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/graph"
)

const (
	exitOK          = 0
	exitGeneric     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitNotFound    = 4
	exitForbidden   = 5
	exitRateLimited = 6
	exitServer      = 7
	exitNetwork     = 8
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if handled, ok := err.(*handledError); ok {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}
	if errors.Is(err, config.ErrNotConfigured) {
		return exitUsage
	}

	if code := exitCodeFromStructured(err); code != 0 {
		return code
	}
	if isUsageError(err) {
		return exitUsage
	}
	if isNetworkError(err) {
		return exitNetwork
	}
	return exitGeneric
}

func exitCodeFromStructured(err error) int {
	structured := graph.StructuredErrorFromError(err)
	if structured == nil {
		return 0
	}
	switch structured.Code {
	case graph.ErrUnauthorized:
		return exitAuth
	case graph.ErrForbidden:
		return exitForbidden
	case graph.ErrUnexpectedShape:
		return exitNotFound
	case graph.ErrRateLimited:
		return exitRateLimited
	case graph.ErrServerError:
		return exitServer
	case graph.ErrNetwork:
		return exitNetwork
	case graph.ErrConfiguration, graph.ErrBatchSize, graph.ErrSignedRequest, graph.ErrBadRequest:
		return exitUsage
	case graph.ErrGraph:
		if status, ok := structured.Context["status_code"].(int); ok && status == 404 {
			return exitNotFound
		}
		return 0
	default:
		return 0
	}
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "tls") ||
		strings.Contains(msg, "certificate") ||
		strings.Contains(msg, "i/o timeout")
}

func isUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	indicators := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"flag provided but not defined",
		"required flag",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid value",
		"must be",
		"is required",
		"missing",
	}
	for _, indicator := range indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
