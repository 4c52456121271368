package main

import (
	"fmt"
	"os"

	"github.com/convoflow/convoflow/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run the conversation flow interactively",
	Long:  `Parses the prompt and walks the resulting flow on the terminal, collecting answers step by step.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{
			Path:     promptPath(cmd, args),
			Headless: flagBool(cmd, "headless"),
			Watch:    flagBool(cmd, "watch"),
			Debug:    flagBool(cmd, "debug"),
			Fresh:    flagBool(cmd, "fresh"),
		}
		opts.PromptID, _ = cmd.Flags().GetString("id")
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.RedisURL, _ = cmd.Flags().GetString("redis")
		opts.ToolsPath, _ = cmd.Flags().GetString("tools")
		opts.Assistant, _ = cmd.Flags().GetString("assistant")

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, strict IO)")
	runCmd.Flags().BoolP("watch", "w", false, "Run in development mode with hot-reload")
	runCmd.Flags().Bool("debug", false, "Enable debug logging and lifecycle traces")
	runCmd.Flags().String("session", "", "Session ID for persistent conversations")
	runCmd.Flags().Bool("fresh", false, "Discard any saved state for the session before running")
	runCmd.Flags().String("redis", "", "Redis address for distributed session storage (host:port)")
	runCmd.Flags().String("tools", "tools.yaml", "Path to the external tools config")
	runCmd.Flags().String("assistant", "", "Assistant prompt prepended to every node's instructions")

	// Make 'run' the default if no command is provided.
	rootCmd.Run = runCmd.Run
}
