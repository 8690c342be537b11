package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/auth"
	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/iocontext"
	"github.com/graphkit/graph-cli/internal/store"
	"github.com/graphkit/graph-cli/internal/validation"
)

func newLoginCmd() *cobra.Command {
	var stateStore string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the OAuth redirect login flow",
		Long: `Build login URLs and redeem the code Graph sends back to the redirect URL.

The CSRF state written by "login url" must be readable by "login callback".
Across separate runs this needs a shared state store (--state-store or
GRAPH_STATE_STORE): file, keyring, file:///path or redis://host:6379/0.`,
	}
	cmd.PersistentFlags().StringVar(&stateStore, "state-store", "", "Where to keep the login state: memory|file|keyring|file:///path|redis://... (env GRAPH_STATE_STORE)")

	cmd.AddCommand(newLoginURLCmd(&stateStore))
	cmd.AddCommand(newLoginCallbackCmd(&stateStore))
	cmd.AddCommand(newLoginBrowserCmd())
	cmd.AddCommand(newLoginLogoutURLCmd())
	return cmd
}

// loginHelper opens the configured state store and returns a login helper
// using it. The caller closes the store.
func loginHelper(cmd *cobra.Command, stateStore string) (*graph.RedirectLoginHelper, store.Store, config.ClientConfig, error) {
	f := newClientFactory(cmd)
	f.overrides.StateStore = stateStore
	g, cfg, err := f.graph()
	if err != nil {
		return nil, nil, config.ClientConfig{}, err
	}
	st, err := store.Open(cmdContext(cmd), cfg.StateStore)
	if err != nil {
		return nil, nil, config.ClientConfig{}, err
	}
	return g.RedirectLoginHelper(st), st, cfg, nil
}

func newLoginURLCmd(stateStore *string) *cobra.Command {
	var (
		redirect       string
		scopes         string
		rerequest      bool
		reauthenticate bool
	)

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print a login URL",
		Example: `  graph login url --redirect https://example.com/cb --scope email,public_profile --state-store file
  graph login url --redirect https://example.com/cb --rerequest --scope user_posts`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if rerequest && reauthenticate {
				return fmt.Errorf("--rerequest and --reauthenticate are mutually exclusive")
			}
			if err := validation.ValidateRedirectURL(redirect); err != nil {
				return fmt.Errorf("invalid value for --redirect: %w", err)
			}
			helper, st, cfg, err := loginHelper(cmd, *stateStore)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ctx := cmdContext(cmd)
			scope := splitCommaList(scopes)
			var loginURL string
			switch {
			case rerequest:
				loginURL, err = helper.ReRequestURL(ctx, redirect, scope)
			case reauthenticate:
				loginURL, err = helper.ReAuthenticationURL(ctx, redirect, scope)
			default:
				loginURL, err = helper.LoginURL(ctx, redirect, scope)
			}
			if err != nil {
				return err
			}

			if cfg.StateStore == "memory" {
				warn(cmd, "login state is kept in memory and will be lost when this command exits; use --state-store to redeem the code later")
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"url":         loginURL,
					"state_store": cfg.StateStore,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), loginURL)
			return nil
		}),
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "Redirect URL registered for the app")
	cmd.Flags().StringVar(&scopes, "scope", "", "Comma-separated permissions to ask for")
	cmd.Flags().BoolVar(&rerequest, "rerequest", false, "Ask again for declined permissions")
	cmd.Flags().BoolVar(&reauthenticate, "reauthenticate", false, "Make the user enter their password again")
	_ = cmd.MarkFlagRequired("redirect")
	flagAlias(cmd.Flags(), "scope", "scopes")
	return cmd
}

func newLoginCallbackCmd(stateStore *string) *cobra.Command {
	var (
		redirect    string
		callbackURL string
		code        string
		state       string
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Exchange the code from the redirect for an access token",
		Example: `  graph login callback --redirect https://example.com/cb --url 'https://example.com/cb?code=AQD...&state=...' --state-store file
  graph login callback --redirect https://example.com/cb --code AQD... --state 5f2c... --save`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if callbackURL != "" {
				u, err := url.Parse(callbackURL)
				if err != nil {
					return fmt.Errorf("invalid --url: %w", err)
				}
				query = u.Query()
			}
			if code != "" {
				query.Set("code", code)
			}
			if state != "" {
				query.Set("state", state)
			}
			cb := graph.ParseCallback(query)
			if cb.Error != "" {
				return &graph.AuthError{Message: callbackErrorMessage(cb)}
			}
			if cb.Code == "" {
				return fmt.Errorf("code is required: pass --code or a --url carrying one")
			}

			helper, st, cfg, err := loginHelper(cmd, *stateStore)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			token, err := helper.AccessToken(cmdContext(cmd), cb, redirect)
			if err != nil {
				return err
			}
			if save {
				if err := saveProfileToken(cfg, token.Value()); err != nil {
					return err
				}
			}
			return printToken(cmd, token, save, cfg.ProfileName)
		}),
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "Redirect URL used for the login URL")
	cmd.Flags().StringVar(&callbackURL, "url", "", "Full URL Graph redirected to")
	cmd.Flags().StringVar(&code, "code", "", "The code param of the redirect")
	cmd.Flags().StringVar(&state, "state", "", "The state param of the redirect")
	cmd.Flags().BoolVar(&save, "save", false, "Store the token in the active profile")
	_ = cmd.MarkFlagRequired("redirect")
	return cmd
}

func newLoginBrowserCmd() *cobra.Command {
	var (
		scopes    string
		port      int
		wait      time.Duration
		rerequest bool
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Log in through the browser with a local callback server",
		Long: `Start a callback server on 127.0.0.1, open the login dialog in the browser and
exchange the returned code for an access token.

The app must list http://127.0.0.1:<port>/callback as a valid OAuth redirect
URI, so pin --port to the one you registered.`,
		Example: `  graph login browser --port 8765 --scope email,public_profile --save`,
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if port < 0 || port > 65535 {
				return fmt.Errorf("--port must be between 0 and 65535")
			}
			if wait <= 0 {
				return fmt.Errorf("--wait must be positive")
			}

			helper, st, cfg, err := loginHelper(cmd, "memory")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			srv, err := auth.NewCallbackServer(fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				return err
			}
			defer srv.Close()
			redirect := srv.RedirectURL()

			ctx := cmdContext(cmd)
			scope := splitCommaList(scopes)
			var loginURL string
			if rerequest {
				loginURL, err = helper.ReRequestURL(ctx, redirect, scope)
			} else {
				loginURL, err = helper.LoginURL(ctx, redirect, scope)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(iocontext.GetIO(ctx).ErrOut, "Open this URL in your browser to log in:\n  %s\n", loginURL)
			if err := auth.OpenBrowser(loginURL); err != nil {
				warn(cmd, "could not open browser automatically: %v", err)
			}

			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			query, err := srv.Wait(waitCtx)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("no login callback within %s", wait)
				}
				return err
			}

			cb := graph.ParseCallback(query)
			if cb.Error != "" {
				return &graph.AuthError{Message: callbackErrorMessage(cb)}
			}
			token, err := helper.AccessToken(ctx, cb, redirect)
			if err != nil {
				return err
			}
			if save {
				if err := saveProfileToken(cfg, token.Value()); err != nil {
					return err
				}
			}
			return printToken(cmd, token, save, cfg.ProfileName)
		}),
	}

	cmd.Flags().StringVar(&scopes, "scope", "", "Comma-separated permissions to ask for")
	cmd.Flags().IntVar(&port, "port", 0, "Callback port (0 picks a free one)")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "How long to wait for the browser to come back")
	cmd.Flags().BoolVar(&rerequest, "rerequest", false, "Ask again for declined permissions")
	cmd.Flags().BoolVar(&save, "save", false, "Store the token in the active profile")
	flagAlias(cmd.Flags(), "scope", "scopes")
	return cmd
}

func callbackErrorMessage(cb graph.Callback) string {
	parts := []string{"login failed: " + cb.Error}
	if cb.ErrorReason != "" {
		parts = append(parts, "reason "+cb.ErrorReason)
	}
	if cb.ErrorCode != "" {
		parts = append(parts, "code "+cb.ErrorCode)
	}
	msg := strings.Join(parts, ", ")
	if cb.ErrorDescription != "" {
		msg += ": " + cb.ErrorDescription
	}
	return msg
}

func newLoginLogoutURLCmd() *cobra.Command {
	var next string

	cmd := &cobra.Command{
		Use:   "logout-url [token]",
		Short: "Print a URL that logs the user out",
		Args:  cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			g, err := getGraph(cmd)
			if err != nil {
				return err
			}
			value, err := tokenArg(g, args)
			if err != nil {
				return err
			}
			logoutURL, err := g.RedirectLoginHelper(store.NewMemory()).LogoutURL(graph.NewAccessToken(value), next)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"url": logoutURL})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), logoutURL)
			return nil
		}),
	}

	cmd.Flags().StringVar(&next, "next", "", "URL to send the user to after logout")
	_ = cmd.MarkFlagRequired("next")
	return cmd
}
