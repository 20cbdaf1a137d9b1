package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"glmcp/server/internal/mcp"
	"glmcp/server/internal/modules"
	"glmcp/server/internal/modules/gitlab"
	"glmcp/server/internal/observability"
	"glmcp/server/internal/transport"
	"glmcp/server/pkg/gitlabapi"
)

const (
	serverName    = "glmcp"
	serverVersion = "0.1.0"
)

func main() {
	var (
		baseURL string
		token   string
		debug   bool
	)

	rootCmd := &cobra.Command{
		Use:          "glmcp",
		Short:        "MCP server exposing GitLab repositories as agent tools",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			observability.Init(debug)
			log := observability.Logger()

			if token == "" {
				token = os.Getenv("GITLAB_TOKEN")
			}
			if token == "" {
				log.Fatal("GITLAB_TOKEN is required (flag --token or env GITLAB_TOKEN)")
			}
			if baseURL == "" {
				baseURL = os.Getenv("GITLAB_BASE_URL")
			}

			modules.RegisterModule(gitlab.New(gitlabapi.Config{
				BaseURL: baseURL,
				Token:   token,
			}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			t := transport.New(os.Stdin, os.Stdout)
			handler := mcp.NewHandler(t, serverName, serverVersion)

			log.WithField("version", serverVersion).Info("serving on stdio")
			return t.Serve(ctx, handler)
		},
	}

	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "GitLab instance URL (default https://gitlab.com, env GITLAB_BASE_URL)")
	rootCmd.Flags().StringVar(&token, "token", "", "GitLab access token (env GITLAB_TOKEN)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
