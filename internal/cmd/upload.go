package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphkit/graph-cli/internal/graph"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload files with the resumable upload protocol",
	}
	cmd.AddCommand(newUploadVideoCmd())
	return cmd
}

func newUploadVideoCmd() *cobra.Command {
	var (
		attempts    int
		meta        []string
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "video <target> <path>",
		Short: "Upload a video in chunks to /<target>/videos",
		Long: `Upload a video in chunks. A chunk Graph rejects with a resumable-upload
error is sent again up to --attempts times.`,
		Example: `  graph upload video me ./clip.mp4 --title "Launch"
  graph upload video 1234567890 ./talk.mov --meta description="Day one" --attempts 8`,
		Args: cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			target := strings.Trim(args[0], "/")
			path := args[1]
			if target == "" {
				return fmt.Errorf("target is required")
			}
			if attempts < 1 {
				return fmt.Errorf("--attempts must be at least 1")
			}

			metadata := graph.NewParams()
			for _, m := range meta {
				key, value, err := parseField(m)
				if err != nil {
					return fmt.Errorf("invalid --meta: %w", err)
				}
				metadata.Set(key, value)
			}
			if title != "" {
				metadata.Set("title", title)
			}
			if description != "" {
				metadata.Set("description", description)
			}

			g, err := getGraph(cmd)
			if err != nil {
				return err
			}

			if flags.DryRun {
				file, err := graph.OpenVideoFile(path)
				if err != nil {
					return err
				}
				size, err := file.Size()
				if err != nil {
					return err
				}
				req, err := g.NewRequest(http.MethodPost, "/"+target+"/videos",
					graph.ParamsOf("upload_phase", "start", "file_size", size), "", "", "")
				if err != nil {
					return err
				}
				_, err = maybeDryRun(cmd, g, req)
				return err
			}

			result, err := g.UploadVideo(cmdContext(cmd), target, path, metadata, attempts, "")
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, result)
			}
			if !result.Success {
				return fmt.Errorf("upload of video %s was not confirmed by Graph", result.VideoID)
			}
			printAction(cmd, "Uploaded", "video", result.VideoID, "")
			return nil
		}),
	}

	cmd.Flags().IntVar(&attempts, "attempts", graph.DefaultUploadAttempts, "Times to send a rejected chunk")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Metadata for the finish phase (key=value)")
	cmd.Flags().StringVar(&title, "title", "", "Video title")
	cmd.Flags().StringVar(&description, "description", "", "Video description")
	flagAlias(cmd.Flags(), "attempts", "retries")
	return cmd
}
