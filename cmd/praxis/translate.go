package main

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate <term>",
	Short: "Translate a medical term",
	Long: `Translate a medical term between the configured languages (English to
German by default). Without a translator a small bundled dictionary is used.`,
	Example: `  praxis translate "shortness of breath"
  praxis translate Kopfschmerzen --from de --to en`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

var translationsCmd = &cobra.Command{
	Use:   "translations",
	Short: "List recent translations",
	Args:  cobra.NoArgs,
	RunE:  runTranslations,
}

var (
	translateFrom     string
	translateTo       string
	translationsLimit int
)

func init() {
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "Source language code (default: en)")
	translateCmd.Flags().StringVar(&translateTo, "to", "", "Target language code (default: de)")
	translationsCmd.Flags().IntVarP(&translationsLimit, "limit", "n", 20, "Maximum number of entries")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	params := praxis.TranslationParams{
		Term:           strings.Join(args, " "),
		SourceLanguage: translateFrom,
		TargetLanguage: translateTo,
	}

	var trErr error
	res := withSpinner(cmd.ErrOrStderr(), "Translating", func() praxis.Result[praxis.TranslationResult] {
		r, err := client.TranslateTerm(cmd.Context(), params)
		trErr = err
		return r
	})
	if trErr != nil {
		return fmt.Errorf("translate: %w", trErr)
	}
	if !res.OK() {
		return resultError("translate", res)
	}

	noteFallback(cmd.ErrOrStderr(), res.Fallback)
	return outputTranslation(cmd, res.Data)
}

func runTranslations(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	list, err := client.Translations(translationsLimit)
	if err != nil {
		return fmt.Errorf("list translations: %w", err)
	}
	return outputTranslationList(cmd, list)
}
