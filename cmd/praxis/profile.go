package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperengineering/praxis"
	"github.com/hyperengineering/praxis/internal/store"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage practice profiles",
	Long: `Manage practice profiles. Each profile has its own database under
~/.praxis/profiles, so separate courses or learners keep separate history.

Select a profile with --profile or PRAXIS_PROFILE. Profiles are created on
first use.

Profile ID format:
  - Lowercase alphanumeric characters and hyphens
  - 1 to 3 path segments separated by '/'
  - Each segment 1-64 characters`,
	Example: `  praxis profile list
  praxis --profile exam-prep scenario generate surgery
  praxis profile info exam-prep
  praxis profile delete exam-prep --confirm`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List practice profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

var profileInfoCmd = &cobra.Command{
	Use:   "info [profile-id]",
	Short: "Show profile details",
	Long: `Display location and statistics for a profile. Without an argument the
profile resolved from --profile, PRAXIS_PROFILE or the default is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProfileInfo,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>",
	Short: "Delete a profile and its data",
	Long: `Delete a practice profile and all its data.

Requires --confirm. Use --force to skip the interactive prompt.
The 'default' profile cannot be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileDelete,
}

var (
	profileDeleteConfirm bool
	profileDeleteForce   bool
)

func init() {
	profileDeleteCmd.Flags().BoolVar(&profileDeleteConfirm, "confirm", false, "Confirm deletion (required)")
	profileDeleteCmd.Flags().BoolVar(&profileDeleteForce, "force", false, "Skip interactive prompt")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileInfoCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}

// ProfileInfo describes one profile in list and info output.
type ProfileInfo struct {
	ID        string `json:"id"`
	Location  string `json:"location"`
	CreatedAt string `json:"created_at,omitempty"`
	Resolved  bool   `json:"resolved,omitempty"`
	*praxis.StoreStats
}

// ProfileListResult for JSON output.
type ProfileListResult struct {
	Profiles []ProfileInfo `json:"profiles"`
	Total    int           `json:"total"`
}

// readProfile opens a profile's database read-only in spirit: it only
// reads metadata and counts.
func readProfile(root, id string) (ProfileInfo, error) {
	dbPath := store.ProfileDBPath(root, id)
	info := ProfileInfo{ID: id, Location: filepath.Dir(dbPath)}

	if _, err := os.Stat(dbPath); err != nil {
		return info, fmt.Errorf("profile %q not found", id)
	}
	s, err := praxis.NewStore(dbPath)
	if err != nil {
		return info, fmt.Errorf("open profile %q: %w", id, err)
	}
	defer s.Close()

	info.CreatedAt, _ = s.GetMetadata("created_at")
	info.StoreStats, err = s.Stats()
	if err != nil {
		return info, fmt.Errorf("profile %q stats: %w", id, err)
	}
	return info, nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	root := store.DefaultRoot()
	ids, err := store.ListProfiles(root)
	if err != nil {
		return err
	}

	profiles := make([]ProfileInfo, 0, len(ids))
	for _, id := range ids {
		info, err := readProfile(root, id)
		if err != nil {
			// Unreadable profiles are listed without counts.
			info.StoreStats = nil
		}
		profiles = append(profiles, info)
	}

	if outputJSON {
		return outputAsJSON(cmd, ProfileListResult{Profiles: profiles, Total: len(profiles)})
	}

	out := cmd.OutOrStdout()
	if len(profiles) == 0 {
		printWarning(out, "No profiles found.")
		printMuted(out, "A profile is created on first use, e.g.: praxis --profile my-course scenario generate cardiology")
		return nil
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		scenarios, translations := "-", "-"
		if p.StoreStats != nil {
			scenarios = strconv.Itoa(p.ScenarioCount)
			translations = strconv.Itoa(p.TranslationCount)
		}
		rows = append(rows, []string{p.ID, scenarios, translations})
	}
	printInfo(out, "Profiles (%d):", len(profiles))
	fmt.Fprintln(out, renderTable([]string{"PROFILE", "SCENARIOS", "TRANSLATIONS"}, rows))
	return nil
}

func runProfileInfo(cmd *cobra.Command, args []string) error {
	var (
		id       string
		resolved bool
	)
	if len(args) > 0 {
		id = args[0]
		if err := store.ValidateProfileID(id); err != nil {
			return fmt.Errorf("invalid profile ID %q: %w", id, err)
		}
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		id, resolved = cfg.Profile, true
	}

	info, err := readProfile(store.DefaultRoot(), id)
	if err != nil {
		return err
	}
	info.Resolved = resolved

	if outputJSON {
		return outputAsJSON(cmd, info)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Location:       %s\n", info.Location)
	if info.CreatedAt != "" {
		fmt.Fprintf(&sb, "Created:        %s\n", info.CreatedAt)
	}
	fmt.Fprintf(&sb, "Scenarios:      %d\n", info.ScenarioCount)
	fmt.Fprintf(&sb, "Dialogue turns: %d\n", info.DialogueTurns)
	fmt.Fprintf(&sb, "Translations:   %d\n", info.TranslationCount)
	fmt.Fprintf(&sb, "Events:         %d", info.EventCount)

	title := "Profile: " + id
	if resolved {
		title += " (resolved from environment)"
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderPanel(title, sb.String()))
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	if err := store.ValidateProfileID(id); err != nil {
		return fmt.Errorf("invalid profile ID %q: %w", id, err)
	}
	if !profileDeleteConfirm {
		return errors.New("--confirm flag is required for delete\n\nUsage: praxis profile delete <profile-id> --confirm [--force]")
	}
	if store.IsReservedProfileID(id) {
		return fmt.Errorf("cannot delete protected profile %q", id)
	}

	root := store.DefaultRoot()
	info, err := readProfile(root, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !profileDeleteForce {
		printWarning(out, "This will permanently delete profile '%s' with %d scenarios and %d translations.",
			id, info.ScenarioCount, info.TranslationCount)
		fmt.Fprintf(out, "Type '%s' to confirm: ", id)

		response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read confirmation: %w", err)
		}
		if strings.TrimSpace(response) != id {
			printMuted(out, "Aborted.")
			return nil
		}
	}

	if err := store.DeleteProfile(root, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, map[string]string{"deleted": id})
	}
	printSuccess(out, "Profile deleted: %s", id)
	return nil
}
