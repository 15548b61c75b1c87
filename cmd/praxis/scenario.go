package main

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Check which AI capabilities are available",
	Long: `Probe the local model runtime for the prompt, translator and rewriter
capabilities. Unavailable capabilities fall back to bundled content.`,
	Example: `  praxis capabilities
  praxis capabilities --json`,
	Args: cobra.NoArgs,
	RunE: runCapabilities,
}

func runCapabilities(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	caps := withSpinner(cmd.ErrOrStderr(), "Probing local model", func() praxis.Capabilities {
		return client.CheckCapabilities(cmd.Context())
	})
	return outputCapabilities(cmd, caps)
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Generate and review clinical scenarios",
}

var scenarioGenerateCmd = &cobra.Command{
	Use:   "generate <specialty>",
	Short: "Generate a new clinical scenario",
	Long: `Generate a clinical case for a specialty. The new scenario becomes the
current one; the previous one moves into the history.

Specialties with bundled content: ` + specialtyList() + `.
Other specialties are accepted and get a generic case when no model is available.`,
	Example: `  praxis scenario generate cardiology
  praxis scenario generate pediatrics --difficulty advanced`,
	Args: cobra.ExactArgs(1),
	RunE: runScenarioGenerate,
}

var scenarioShowCmd = &cobra.Command{
	Use:   "show [scenario-id]",
	Short: "Show the current or a specific scenario",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScenarioShow,
}

var scenarioHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List earlier scenarios",
	Args:  cobra.NoArgs,
	RunE:  runScenarioHistory,
}

var scenarioDifficulty string

func init() {
	scenarioGenerateCmd.Flags().StringVarP(&scenarioDifficulty, "difficulty", "d", string(praxis.DifficultyIntermediate), "Difficulty: beginner, intermediate, advanced")

	scenarioCmd.AddCommand(scenarioGenerateCmd)
	scenarioCmd.AddCommand(scenarioShowCmd)
	scenarioCmd.AddCommand(scenarioHistoryCmd)
}

func specialtyList() string {
	names := make([]string, 0, len(praxis.ValidSpecialties()))
	for _, s := range praxis.ValidSpecialties() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func runScenarioGenerate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	params := praxis.ScenarioParams{
		Specialty:  praxis.Specialty(strings.ToLower(strings.TrimSpace(args[0]))),
		Difficulty: praxis.Difficulty(strings.ToLower(scenarioDifficulty)),
	}

	var genErr error
	res := withSpinner(cmd.ErrOrStderr(), "Generating scenario", func() praxis.Result[praxis.Scenario] {
		r, err := client.GenerateScenario(cmd.Context(), params)
		genErr = err
		return r
	})
	if genErr != nil {
		return fmt.Errorf("generate scenario: %w", genErr)
	}
	if !res.OK() {
		return resultError("generate scenario", res)
	}

	noteFallback(cmd.ErrOrStderr(), res.Fallback)
	return outputScenario(cmd, &res.Data)
}

func runScenarioShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var sc *praxis.Scenario
	if len(args) == 0 {
		sc, err = client.CurrentScenario()
	} else {
		sc, err = client.GetScenario(args[0])
	}
	if err != nil {
		return err
	}
	return outputScenario(cmd, sc)
}

func runScenarioHistory(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	history, err := client.ScenarioHistory()
	if err != nil {
		return fmt.Errorf("scenario history: %w", err)
	}
	return outputScenarioList(cmd, history)
}
