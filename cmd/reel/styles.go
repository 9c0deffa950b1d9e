package main

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	JellyfinPurple = lipgloss.Color("#AA5CC3")
	DimGray        = lipgloss.Color("#6B7280")
	LightGray      = lipgloss.Color("#9CA3AF")
	White          = lipgloss.Color("#F9FAFB")
	Green          = lipgloss.Color("#10B981")
	Red            = lipgloss.Color("#EF4444")
	Amber          = lipgloss.Color("#F59E0B")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(JellyfinPurple)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	PendingStyle = lipgloss.NewStyle().
			Foreground(Amber)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(JellyfinPurple).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(DimGray)
)

// Watch status indicators
const (
	WatchedChar    = "●"
	InProgressChar = "◐"
	UnwatchedChar  = "○"
	FavoriteChar   = "★"
	PendingChar    = "⟳"
)

// SpinnerFrames for the connection check
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
