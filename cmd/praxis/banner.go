package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerDimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	bannerCrossStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	bannerTitleStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	bannerTaglineStyle = lipgloss.NewStyle().Foreground(colorPrimaryDark).Italic(true)
	bannerVersionStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// renderBanner draws a small medical cross beside the product name.
func renderBanner() string {
	bar := bannerCrossStyle.Render("███")
	arm := bannerCrossStyle.Render("█████████")
	rule := bannerDimStyle.Render("───────")
	title := bannerTitleStyle.Render("PRAXIS")

	lines := []string{
		"      " + bar,
		"   " + arm + "   " + title,
		"      " + bar + "      " + rule,
	}
	return strings.Join(lines, "\n")
}

func renderBannerWithTagline() string {
	tagline := bannerTaglineStyle.Render("   Deutsch für die Klinik")
	ver := bannerVersionStyle.Render("   " + version)
	return strings.Join([]string{renderBanner(), tagline, ver}, "\n")
}
