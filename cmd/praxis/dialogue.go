package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var dialogueCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Practise a consultation with a simulated patient",
	Long: `Run a simulated consultation for a scenario. The patient answers in
German; conversation turns are kept until the dialogue is cleared or a new
one is started.`,
	Example: `  praxis scenario generate neurology
  praxis dialogue start
  praxis dialogue say "Guten Tag, was führt Sie zu mir?"
  praxis dialogue show`,
}

var dialogueStartCmd = &cobra.Command{
	Use:   "start [scenario-id]",
	Short: "Start a consultation (default: current scenario)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDialogueStart,
}

var dialogueSayCmd = &cobra.Command{
	Use:   "say <message>",
	Short: "Say something to the patient",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDialogueSay,
}

var dialogueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active consultation",
	Args:  cobra.NoArgs,
	RunE:  runDialogueShow,
}

var dialogueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "End the active consultation",
	Args:  cobra.NoArgs,
	RunE:  runDialogueClear,
}

func init() {
	dialogueCmd.AddCommand(dialogueStartCmd)
	dialogueCmd.AddCommand(dialogueSayCmd)
	dialogueCmd.AddCommand(dialogueShowCmd)
	dialogueCmd.AddCommand(dialogueClearCmd)
}

func runDialogueStart(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var ref string
	if len(args) > 0 {
		ref = args[0]
	}

	d, err := client.StartDialogue(cmd.Context(), ref)
	if errors.Is(err, praxis.ErrNoScenario) {
		return fmt.Errorf("%w\n\nGenerate one first with: praxis scenario generate <specialty>", err)
	}
	if err != nil {
		return fmt.Errorf("start dialogue: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, d)
	}
	out := cmd.OutOrStdout()
	printSuccess(out, "Consultation started: %s", d.Scenario.Title)
	printField(out, "Chief complaint:", d.Scenario.ChiefComplaint)
	printMuted(out, "Talk to the patient with: praxis dialogue say <message>")
	return nil
}

func runDialogueSay(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	message := strings.Join(args, " ")

	var sendErr error
	res := withSpinner(cmd.ErrOrStderr(), "Patient is answering", func() praxis.Result[praxis.DialogueResponse] {
		r, err := client.SendMessage(cmd.Context(), message)
		sendErr = err
		return r
	})
	if errors.Is(sendErr, praxis.ErrNoActiveDialogue) {
		return fmt.Errorf("%w\n\nStart one with: praxis dialogue start", sendErr)
	}
	if sendErr != nil {
		return fmt.Errorf("send message: %w", sendErr)
	}
	if !res.OK() {
		return resultError("send message", res)
	}

	noteFallback(cmd.ErrOrStderr(), res.Fallback)
	return outputReply(cmd, res.Data)
}

func runDialogueShow(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	d, err := client.ActiveDialogue()
	if err != nil {
		return err
	}
	return outputDialogue(cmd, d)
}

func runDialogueClear(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ClearDialogue(); err != nil {
		return fmt.Errorf("clear dialogue: %w", err)
	}
	if outputJSON {
		return outputAsJSON(cmd, map[string]bool{"cleared": true})
	}
	printSuccess(cmd.OutOrStdout(), "Consultation ended")
	return nil
}
