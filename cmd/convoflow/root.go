package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "convoflow",
	Short: "Convoflow turns section-based prompts into executable conversation flows",
	Long: `Convoflow parses section-based conversational prompts ([Greeting],
questions, conditions, objections) into a typed flow graph and runs it
interactively, over HTTP, or as an MCP server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("prompt", ".", "Prompt file or prompt library directory")
	rootCmd.PersistentFlags().String("id", "", "Prompt ID when the path is a library with multiple prompts")
}

// promptPath resolves the prompt location from the flag or a positional arg.
func promptPath(cmd *cobra.Command, args []string) string {
	path, _ := cmd.Flags().GetString("prompt")
	if !cmd.Flags().Changed("prompt") && len(args) > 0 {
		path = args[0]
	}
	return path
}
