package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/graph"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and exchange access tokens",
	}
	cmd.AddCommand(newTokenInspectCmd())
	cmd.AddCommand(newTokenInfoCmd())
	cmd.AddCommand(newTokenExchangeCmd())
	cmd.AddCommand(newTokenCodeCmd())
	return cmd
}

// tokenArg returns the token argument, or the configured default token.
func tokenArg(g *graph.Graph, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if t := g.DefaultToken(); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("access token is required: pass it as an argument or set --access-token")
}

func newTokenInspectCmd() *cobra.Command {
	var (
		validate bool
		userID   string
	)

	cmd := &cobra.Command{
		Use:   "inspect [token]",
		Short: "Ask Graph about a token (debug_token)",
		Example: `  graph token inspect EAAB...
  graph token inspect --validate --user 1234`,
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			g, err := getGraph(cmd)
			if err != nil {
				return err
			}
			token, err := tokenArg(g, args)
			if err != nil {
				return err
			}

			meta, err := g.OAuth2Client().DebugToken(cmdContext(cmd), token)
			if err != nil {
				return err
			}
			if validate || userID != "" {
				if err := meta.ValidateAppID(g.App().ID()); err != nil {
					return err
				}
				if userID != "" {
					if err := meta.ValidateUserID(userID); err != nil {
						return err
					}
				}
				if err := meta.ValidateExpiration(); err != nil {
					return err
				}
			}

			if isJSON(cmd) {
				return printJSON(cmd, meta.Data())
			}
			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Valid:\t%t\n", meta.IsValid())
			_, _ = fmt.Fprintf(w, "App ID:\t%s\n", orDash(meta.AppID()))
			_, _ = fmt.Fprintf(w, "Application:\t%s\n", orDash(meta.Application()))
			_, _ = fmt.Fprintf(w, "User ID:\t%s\n", orDash(meta.UserID()))
			if id := meta.ProfileID(); id != "" {
				_, _ = fmt.Fprintf(w, "Profile ID:\t%s\n", id)
			}
			_, _ = fmt.Fprintf(w, "Issued:\t%s\n", timeOrDash(meta.IssuedAt()))
			_, _ = fmt.Fprintf(w, "Expires:\t%s\n", timeOrDash(meta.ExpiresAt()))
			if scopes := meta.Scopes(); len(scopes) > 0 {
				_, _ = fmt.Fprintf(w, "Scopes:\t%s\n", strings.Join(scopes, ", "))
			}
			if meta.IsError() {
				code, _ := meta.ErrorCode()
				_, _ = fmt.Fprintf(w, "Error:\t%s (code %d)\n", meta.ErrorMessage(), code)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Fail unless the token belongs to this app and has not expired")
	cmd.Flags().StringVar(&userID, "user", "", "Fail unless the token belongs to this user (implies --validate)")
	return cmd
}

func newTokenInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [token]",
		Short: "Describe a token without calling Graph",
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
			token := graph.NewAccessToken(value)
			expired, known := token.IsExpired()
			info := map[string]any{
				"app_token":       token.IsAppAccessToken(),
				"long_lived":      token.IsLongLived(),
				"appsecret_proof": token.AppSecretProof(g.App().Secret()),
			}
			if known {
				info["expired"] = expired
			}

			if isJSON(cmd) {
				return printJSON(cmd, info)
			}
			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "App token:\t%t\n", token.IsAppAccessToken())
			_, _ = fmt.Fprintf(w, "Long-lived:\t%t\n", token.IsLongLived())
			if known {
				_, _ = fmt.Fprintf(w, "Expired:\t%t\n", expired)
			} else {
				_, _ = fmt.Fprintln(w, "Expired:\tunknown (run: graph token inspect)")
			}
			_, _ = fmt.Fprintf(w, "appsecret_proof:\t%s\n", info["appsecret_proof"])
			return w.Flush()
		}),
	}
}

func newTokenExchangeCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "exchange [token]",
		Short: "Exchange a short-lived token for a long-lived one",
		Example: `  graph token exchange EAAB...
  graph token exchange --save`,
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			g, cfg, err := newClientFactory(cmd).graph()
			if err != nil {
				return err
			}
			value, err := tokenArg(g, args)
			if err != nil {
				return err
			}

			token, err := g.OAuth2Client().LongLivedAccessToken(cmdContext(cmd), value)
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

	cmd.Flags().BoolVar(&save, "save", false, "Store the new token in the active profile")
	return cmd
}

func newTokenCodeCmd() *cobra.Command {
	var redirect string

	cmd := &cobra.Command{
		Use:   "code [token]",
		Short: "Get a code for a long-lived token to redeem on another client",
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
			code, err := g.OAuth2Client().CodeFromLongLivedAccessToken(cmdContext(cmd), value, redirect)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"code": code})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		}),
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "Redirect URI registered for the app")
	return cmd
}

// saveProfileToken stores token in the resolved profile, creating the
// profile from cfg when it does not exist yet.
func saveProfileToken(cfg config.ClientConfig, token string) error {
	p, err := config.LoadProfile(cfg.ProfileName)
	if err != nil {
		if !errors.Is(err, config.ErrNotConfigured) {
			return err
		}
		p = cfg.Profile()
	}
	p.AccessToken = token
	return config.SaveProfile(cfg.ProfileName, p)
}

func printToken(cmd *cobra.Command, token *graph.AccessToken, saved bool, profile string) error {
	expiresAt, hasExpiry := token.ExpiresAt()
	if isJSON(cmd) {
		out := map[string]any{
			"access_token": token.Value(),
			"long_lived":   token.IsLongLived(),
		}
		if hasExpiry {
			out["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
		}
		if saved {
			out["profile"] = profile
		}
		return printJSON(cmd, out)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token.Value())
	if hasExpiry {
		printIfNotQuiet(cmd, "Expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
	}
	if saved {
		printAction(cmd, "Saved", "token to profile", profile, "")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func timeOrDash(t time.Time, ok bool) string {
	if !ok {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
