package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/presentation/tui"
	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [prompt]",
	Short: "Parse a prompt and print the flow structure",
	Long:  `Parses a section-based prompt and prints a section summary. Use --json to dump the full flow configuration, or --render to preview node instructions.`,
	Run: func(cmd *cobra.Command, args []string) {
		path := promptPath(cmd, args)

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Error reading prompt: %v\n", err)
			os.Exit(1)
		}

		config := parser.New().ParsePrompt(string(data))

		if flagBool(cmd, "json") {
			out, err := json.MarshalIndent(config, "", "  ")
			if err != nil {
				fmt.Printf("Error encoding flow: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
			return
		}

		if flagBool(cmd, "render") {
			renderNodes(string(data))
			return
		}

		printSummary(config)
	},
}

func printSummary(config *domain.FlowConfig) {
	fmt.Printf("Sections: %d  Flow steps: %d  Conditions: %d  Objections: %d\n\n",
		len(config.AllIDs), len(config.FlowOrder), len(config.Conditions), len(config.Objections))

	for _, id := range config.AllIDs {
		section := config.Section(id)
		if section == nil {
			continue
		}
		fmt.Printf("%-40s %s\n", id, section.Type)
		for _, field := range section.Required {
			fmt.Printf("    %s: %s\n", field, section.FieldTypes[field])
		}
	}
}

func renderNodes(prompt string) {
	flow, err := convoflow.CreateSectionBasedFlow(prompt)
	if err != nil {
		fmt.Printf("Error building flow: %v\n", err)
		os.Exit(1)
	}

	render := tui.NewRenderer()
	for _, node := range flow.Nodes() {
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("%s (%s)\n", node.ID, node.SectionType)
		content, err := render(node.Instructions)
		if err != nil {
			content = node.Instructions
		}
		fmt.Println(content)
	}
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("json", false, "Dump the full flow configuration as JSON")
	parseCmd.Flags().Bool("render", false, "Render each node's instructions to the terminal")
}
