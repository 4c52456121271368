package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/convoflow/convoflow/internal/cli"
	"github.com/convoflow/convoflow/internal/logging"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [prompt]",
	Short: "Export the flow graph visualization",
	Long:  `Builds the flow and outputs a Mermaid diagram (graph TD) representing the conversation logic, or the raw node list as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{Path: promptPath(cmd, args)}
		opts.PromptID, _ = cmd.Flags().GetString("id")

		flow, err := cli.BuildFlow(opts, logging.NewNop())
		if err != nil {
			fmt.Printf("Error initializing flow: %v\n", err)
			os.Exit(1)
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			out, err := json.MarshalIndent(flow.Nodes(), "", "  ")
			if err != nil {
				fmt.Printf("Error encoding graph: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
		default:
			fmt.Print(flow.Mermaid(nil))
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("format", "mermaid", "Output format: 'mermaid' or 'json'")
}
