package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/config"
	"github.com/graphkit/graph-cli/internal/graph"
	"github.com/graphkit/graph-cli/internal/resolve"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles", "pr"},
		Short:   "Manage stored app profiles",
		Long: `Profiles keep an app ID, app secret, default access token, API version and
login state store in the OS keyring. Environment variables and flags override
the active profile.`,
	}

	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileUseCmd())
	cmd.AddCommand(newProfileSaveCmd())
	cmd.AddCommand(newProfileDeleteCmd())

	return cmd
}

// lookupProfile resolves name against the stored profiles, suggesting the
// closest one when it does not exist.
func lookupProfile(name string) (string, config.Profile, error) {
	profiles, err := config.ListProfiles()
	if err != nil {
		return "", config.Profile{}, err
	}
	resolved, err := resolve.Exact("profile", name, profiles)
	if err != nil {
		return "", config.Profile{}, err
	}
	p, err := config.LoadProfile(resolved)
	if err != nil {
		return "", config.Profile{}, fmt.Errorf("profile %q: %w", resolved, err)
	}
	return resolved, p, nil
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored profiles",
		Example: "graph profile list",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, _ := config.CurrentProfile()

			if isJSON(cmd) {
				if profiles == nil {
					profiles = []string{}
				}
				return printJSON(cmd, map[string]any{
					"current":  current,
					"profiles": profiles,
				})
			}

			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles stored. Run 'graph profile save --app-id ID --app-secret SECRET' to add one.")
				return nil
			}

			w := newTabWriterFromCmd(cmd)
			defer func() { _ = w.Flush() }()
			_, _ = fmt.Fprintln(w, "CURRENT\tPROFILE\tAPP_ID\tVERSION")
			for _, name := range profiles {
				marker := ""
				if name == current {
					marker = "*"
				}
				appID, version := "-", "-"
				if p, err := config.LoadProfile(name); err == nil {
					appID = orDash(p.AppID)
					version = orDash(p.Version)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, name, appID, version)
			}
			return nil
		}),
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show [name]",
		Short:   "Show a profile with its secrets redacted",
		Example: "graph profile show staging",
		Args:    cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := flags.Profile
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				active, err := config.ActiveProfileName()
				if err != nil {
					return err
				}
				name = active
			}

			name, p, err := lookupProfile(name)
			if err != nil {
				return err
			}
			p = p.Redacted()

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"profile": name,
					"config":  p,
				})
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Profile:\t%s\n", name)
			_, _ = fmt.Fprintf(w, "App ID:\t%s\n", orDash(p.AppID))
			_, _ = fmt.Fprintf(w, "App secret:\t%s\n", orDash(p.AppSecret))
			_, _ = fmt.Fprintf(w, "Access token:\t%s\n", orDash(p.AccessToken))
			_, _ = fmt.Fprintf(w, "API version:\t%s\n", orDash(p.Version))
			_, _ = fmt.Fprintf(w, "Beta:\t%t\n", p.Beta)
			_, _ = fmt.Fprintf(w, "State store:\t%s\n", orDash(p.StateStore))
			return w.Flush()
		}),
	}
}

func newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "use <name>",
		Aliases: []string{"switch"},
		Short:   "Switch the active profile",
		Example: "graph profile use staging",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name, p, err := lookupProfile(args[0])
			if err != nil {
				return err
			}
			if err := config.SetCurrentProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"current": name, "app_id": p.AppID})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Current profile: %s (app %s)\n", name, p.AppID)
			return nil
		}),
	}
}

func newProfileSaveCmd() *cobra.Command {
	var stateStore string

	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Create or update a profile and make it current",
		Long: `Create or update a profile from the global --app-id, --app-secret,
--access-token, --api-version and --beta flags. Fields not given keep their
stored value.`,
		Example: `  graph profile save --app-id 123 --app-secret s3cr3t
  graph profile save staging --app-id 456 --app-secret x --api-version v19.0 --state-store file`,
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name := flags.Profile
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				name = "default"
			}

			p, err := config.LoadProfile(name)
			if err != nil && !errors.Is(err, config.ErrNotConfigured) {
				return err
			}
			if flags.AppID != "" {
				p.AppID = flags.AppID
			}
			if flags.AppSecret != "" {
				p.AppSecret = flags.AppSecret
			}
			if flags.AccessToken != "" {
				p.AccessToken = flags.AccessToken
			}
			if flags.APIVersion != "" {
				p.Version = graph.NormalizeVersion(flags.APIVersion)
				if err := graph.ValidateVersion(p.Version); err != nil {
					return err
				}
			}
			if flagOrAliasChanged(cmd, "beta") {
				p.Beta = flags.Beta
			}
			if stateStore != "" {
				p.StateStore = stateStore
			}
			if p.AppID == "" || p.AppSecret == "" {
				return fmt.Errorf("--app-id and --app-secret are required for a new profile")
			}

			if err := config.SaveProfile(name, p); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"profile": name,
					"config":  p.Redacted(),
				})
			}
			printAction(cmd, "Saved", "profile", name, "")
			return nil
		}),
	}

	cmd.Flags().StringVar(&stateStore, "state-store", "", "Login state store for this profile")
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Example: "graph profile delete staging",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name, _, err := lookupProfile(args[0])
			if err != nil {
				return err
			}
			if err := config.DeleteProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"deleted": name})
			}
			printAction(cmd, "Deleted", "profile", name, "")
			return nil
		}),
	}
}
