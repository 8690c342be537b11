package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/validation"
)

// envBaseURL points every request at another host, e.g. a local proxy.
const envBaseURL = "GRAPH_BASE_URL"

type clientFactory struct {
	timeout   time.Duration
	baseURL   string
	counter   graph.RequestCounter
	overrides config.Overrides
}

func newClientFactory(cmd *cobra.Command) *clientFactory {
	f := &clientFactory{
		timeout: flags.Timeout,
		baseURL: strings.TrimSpace(os.Getenv(envBaseURL)),
		overrides: config.Overrides{
			Profile:     flags.Profile,
			AppID:       flags.AppID,
			AppSecret:   flags.AppSecret,
			AccessToken: flags.AccessToken,
			Version:     flags.APIVersion,
		},
	}
	if stats != nil {
		f.counter = stats
	}
	if cmd != nil && flagOrAliasChanged(cmd, "beta") {
		beta := flags.Beta
		f.overrides.Beta = &beta
	}
	return f
}

func (f *clientFactory) resolve() (config.ClientConfig, error) {
	return config.ResolveClientConfig(f.overrides)
}

func (f *clientFactory) graph() (*graph.Graph, config.ClientConfig, error) {
	cfg, err := f.resolve()
	if err != nil {
		return nil, config.ClientConfig{}, err
	}
	if f.baseURL != "" {
		if err := validation.ValidateBaseURL(f.baseURL); err != nil {
			return nil, config.ClientConfig{}, &graph.ConfigurationError{Message: fmt.Sprintf("invalid %s: %v", envBaseURL, err)}
		}
	}
	opts := cfg.GraphOptions()
	opts.Timeout = f.timeout
	opts.BaseURL = f.baseURL
	opts.Counter = f.counter
	g, err := graph.New(opts)
	if err != nil {
		return nil, config.ClientConfig{}, err
	}
	return g, cfg, nil
}

// getGraph builds a Graph from the active profile, environment and flags.
func getGraph(cmd *cobra.Command) (*graph.Graph, error) {
	g, _, err := newClientFactory(cmd).graph()
	return g, err
}
