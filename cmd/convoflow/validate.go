package main

import (
	"fmt"
	"os"

	"github.com/convoflow/convoflow/internal/validator"
	"github.com/convoflow/convoflow/pkg/parser"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [prompt]",
	Short: "Check the flow graph for consistency",
	Long:  `Parses the prompt and reports broken transitions, invalid branch targets and unreachable steps.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(promptPath(cmd, args)); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read prompt: %w", err)
	}

	config := parser.New().ParsePrompt(string(data))
	return validator.ValidateConfig(config)
}
