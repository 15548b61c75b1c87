package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar [text]",
	Short: "Check German text for mistakes",
	Long: `Check German text for grammar, spelling and punctuation mistakes.
Suggestions carry character positions in the original text and the result
is scored out of 100.

Text comes from the argument, from --file, or from stdin with --file -.
Without arguments or --file, the last check is shown.`,
	Example: `  praxis grammar "Der Pazient hat seit gestern Fieber."
  praxis grammar --file anamnese.txt
  praxis grammar`,
	Args: cobra.ArbitraryArgs,
	RunE: runGrammar,
}

var grammarFile string

func init() {
	grammarCmd.Flags().StringVarP(&grammarFile, "file", "f", "", "Read text from a file ('-' for stdin)")
}

func grammarInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case grammarFile == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	case grammarFile != "":
		b, err := os.ReadFile(grammarFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", grammarFile, err)
		}
		return string(b), nil
	default:
		return strings.Join(args, " "), nil
	}
}

func runGrammar(cmd *cobra.Command, args []string) error {
	text, err := grammarInput(cmd, args)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if len(args) == 0 && grammarFile == "" {
		last, err := client.LastGrammarCheck()
		if errors.Is(err, praxis.ErrNotFound) {
			return errors.New("no grammar check yet\n\nCheck some text with: praxis grammar \"<text>\"")
		}
		if err != nil {
			return err
		}
		return outputGrammar(cmd, last)
	}

	var checkErr error
	res := withSpinner(cmd.ErrOrStderr(), "Checking text", func() praxis.Result[praxis.GrammarCheckResult] {
		r, err := client.CheckGrammar(cmd.Context(), text)
		checkErr = err
		return r
	})
	if checkErr != nil {
		return fmt.Errorf("grammar check: %w", checkErr)
	}
	if !res.OK() {
		return resultError("grammar check", res)
	}
	return outputGrammar(cmd, &res.Data)
}
