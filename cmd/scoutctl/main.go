package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildRootCmd constructs the Cobra command tree wired to the fn* actions.
func buildRootCmd() *cobra.Command {
	cfg := &clientConfig{Addr: "http://127.0.0.1:8080"}
	if v := os.Getenv("SCOUTD_ADDR"); v != "" {
		cfg.Addr = v
	}

	root := &cobra.Command{
		Use:           "scoutctl",
		Short:         "CLI client for a running scoutd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("addr", cfg.Addr, "Base URL of the scoutd server (defaults SCOUTD_ADDR)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("addr"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Addr = v
			}
		}
	}

	classifyCmd := &cobra.Command{Use: "classify", Short: "Run catalog classification and stream progress events", Example: "  scoutctl classify\n  scoutctl classify --max-candidates 50", RunE: func(cmd *cobra.Command, args []string) error {
		maxCand, _ := cmd.Flags().GetInt("max-candidates")
		conc, _ := cmd.Flags().GetInt("concurrency")
		return fnClassify(cfg, maxCand, conc)
	}}
	classifyCmd.Flags().Int("max-candidates", 0, "Cap on candidates after prefilter (0=server default)")
	classifyCmd.Flags().Int("concurrency", 0, "Metadata fetch concurrency (0=server default)")

	modelsCmd := &cobra.Command{Use: "models", Short: "List classified models from the last run", RunE: func(cmd *cobra.Command, args []string) error {
		return fnModels(cfg)
	}}

	statusCmd := &cobra.Command{Use: "status", Short: "Show loaded handles and last run metadata", RunE: func(cmd *cobra.Command, args []string) error {
		return fnStatus(cfg)
	}}

	inferCmd := &cobra.Command{Use: "infer [prompt]", Short: "Generate text and stream tokens", Example: "  scoutctl infer \"write a haiku\" --model Xenova/distilgpt2", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		return fnInfer(cfg, model, args[0], maxTokens)
	}}
	inferCmd.Flags().String("model", "", "Model id (defaults to the server's default model)")
	inferCmd.Flags().Int("max-tokens", 0, "Token cap (0=server default)")

	healthCmd := &cobra.Command{Use: "health", Short: "Check liveness and readiness", RunE: func(cmd *cobra.Command, args []string) error {
		return fnHealth(cfg)
	}}

	root.AddCommand(classifyCmd, modelsCmd, statusCmd, inferCmd, healthCmd)
	return root
}
