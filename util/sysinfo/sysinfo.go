package sysinfo

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/cromulus/reminders-cli-sub001/config"
)

// SystemInfo describes the client environment and where reminders keeps
// its files. It backs the doctor command and picks the markdown theme.
type SystemInfo struct {
	// OS Information
	OS           string // runtime.GOOS (darwin, linux, windows)
	Architecture string // runtime.GOARCH (amd64, arm64, etc.)
	OSVersion    string

	// Terminal Information
	TermType      string // $TERM
	ColorTerm     string // $COLORTERM (truecolor indicator)
	ColorFGBG     string // $COLORFGBG
	DetectedTheme string // "dark", "light", "unknown"
	ColorSupport  string // "monochrome", "8-color", "16-color", "256-color", "truecolor", "unknown"
	ColorCount    int    // colors reported by terminfo

	// Environment Variables
	XDGConfigHome string
	XDGDataHome   string
	Shell         string
	Editor        string // $VISUAL or $EDITOR

	// Paths (from config.PathManager)
	ConfigDir    string
	DataDir      string
	DatabaseFile string
	WebhooksFile string
}

// NewSystemInfo collects environment details. Paths are empty when
// config.InitPaths has not succeeded.
func NewSystemInfo() *SystemInfo {
	info := &SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		OSVersion:    getOSVersion(),

		TermType:  os.Getenv("TERM"),
		ColorTerm: os.Getenv("COLORTERM"),
		ColorFGBG: os.Getenv("COLORFGBG"),

		XDGConfigHome: os.Getenv("XDG_CONFIG_HOME"),
		XDGDataHome:   os.Getenv("XDG_DATA_HOME"),
		Shell:         os.Getenv("SHELL"),
	}

	if visual := os.Getenv("VISUAL"); visual != "" {
		info.Editor = visual
	} else {
		info.Editor = os.Getenv("EDITOR")
	}

	info.DetectedTheme = DetectTheme(info.ColorFGBG)
	info.ColorSupport, info.ColorCount = colorSupport(info.TermType, info.ColorTerm)

	if config.InitPaths() == nil {
		info.ConfigDir = config.GetConfigDir()
		info.DataDir = config.GetDataDir()
		info.DatabaseFile = config.GetDatabaseFile()
		info.WebhooksFile = config.GetWebhooksFile()
	}
	return info
}

// ToMap returns system information as a map for serialization.
func (s *SystemInfo) ToMap() map[string]any {
	return map[string]any{
		"os":              s.OS,
		"architecture":    s.Architecture,
		"os_version":      s.OSVersion,
		"term_type":       s.TermType,
		"colorterm":       s.ColorTerm,
		"colorfgbg":       s.ColorFGBG,
		"detected_theme":  s.DetectedTheme,
		"color_support":   s.ColorSupport,
		"color_count":     s.ColorCount,
		"xdg_config_home": s.XDGConfigHome,
		"xdg_data_home":   s.XDGDataHome,
		"shell":           s.Shell,
		"editor":          s.Editor,
		"config_dir":      s.ConfigDir,
		"data_dir":        s.DataDir,
		"database_file":   s.DatabaseFile,
		"webhooks_file":   s.WebhooksFile,
	}
}

// String returns a human-readable report.
func (s *SystemInfo) String() string {
	var b strings.Builder

	b.WriteString("System Information\n")
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "OS:            %s\n", s.OS)
	fmt.Fprintf(&b, "Architecture:  %s\n", s.Architecture)
	fmt.Fprintf(&b, "OS Version:    %s\n", s.OSVersion)
	b.WriteString("\n")

	b.WriteString("Terminal\n")
	b.WriteString("--------\n")
	fmt.Fprintf(&b, "Type:          %s\n", s.TermType)
	fmt.Fprintf(&b, "COLORTERM:     %s\n", s.ColorTerm)
	fmt.Fprintf(&b, "COLORFGBG:     %s\n", s.ColorFGBG)
	fmt.Fprintf(&b, "Theme:         %s\n", s.DetectedTheme)
	fmt.Fprintf(&b, "Color Support: %s (%d colors)\n", s.ColorSupport, s.ColorCount)
	b.WriteString("\n")

	b.WriteString("Environment\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(&b, "Shell:         %s\n", s.Shell)
	fmt.Fprintf(&b, "Editor:        %s\n", s.Editor)
	fmt.Fprintf(&b, "XDG Config:    %s\n", s.XDGConfigHome)
	fmt.Fprintf(&b, "XDG Data:      %s\n", s.XDGDataHome)
	b.WriteString("\n")

	b.WriteString("Paths\n")
	b.WriteString("-----\n")
	fmt.Fprintf(&b, "Config Dir:    %s\n", s.ConfigDir)
	fmt.Fprintf(&b, "Data Dir:      %s\n", s.DataDir)
	fmt.Fprintf(&b, "Database:      %s\n", s.DatabaseFile)
	fmt.Fprintf(&b, "Webhooks:      %s\n", s.WebhooksFile)

	return b.String()
}

// DetectTheme parses $COLORFGBG ("fg;bg") to tell a dark background from a
// light one. Background values 8 and above are light. Returns "dark",
// "light", or "unknown".
func DetectTheme(colorFGBG string) string {
	if colorFGBG == "" {
		return "unknown"
	}

	parts := strings.Split(colorFGBG, ";")
	if len(parts) >= 2 {
		bgStr := parts[len(parts)-1]

		// compare numerically: "15" < "8" as strings
		var bgValue int
		if _, err := fmt.Sscanf(bgStr, "%d", &bgValue); err != nil {
			return "unknown"
		}

		if bgValue >= 8 {
			return "light"
		}
		return "dark"
	}

	return "unknown"
}

// colorSupport resolves color capability for a terminal type. A truecolor
// $COLORTERM takes precedence over the terminfo entry.
func colorSupport(term, colorterm string) (string, int) {
	if colorterm == "truecolor" || colorterm == "24bit" {
		return "truecolor", 16777216
	}
	if term == "" {
		return "unknown", 0
	}

	ti, err := tcell.LookupTerminfo(term)
	if err != nil || ti == nil {
		return "unknown", 0
	}

	colors := ti.Colors
	switch {
	case colors >= 16777216:
		return "truecolor", colors
	case colors >= 256:
		return "256-color", colors
	case colors >= 16:
		return "16-color", colors
	case colors >= 8:
		return "8-color", colors
	case colors >= 2:
		return "monochrome", colors
	default:
		return "unknown", colors
	}
}

// getOSVersion uses platform commands; "unknown" when detection fails.
func getOSVersion() string {
	switch runtime.GOOS {
	case "darwin":
		return getMacOSVersion()
	case "linux":
		return getLinuxVersion()
	case "windows":
		return getWindowsVersion()
	default:
		return "unknown"
	}
}

func getMacOSVersion() string {
	output, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// getLinuxVersion reads PRETTY_NAME from /etc/os-release, falling back to
// lsb_release.
func getLinuxVersion() string {
	if data, err := os.ReadFile("/etc/os-release"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
				return strings.Trim(v, "\"")
			}
		}
	}

	output, err := exec.Command("lsb_release", "-d").Output()
	if err != nil {
		return "unknown"
	}
	// "Description:\tUbuntu 22.04 LTS"
	line := strings.TrimSpace(string(output))
	if _, desc, ok := strings.Cut(line, "\t"); ok {
		return strings.TrimSpace(desc)
	}
	return line
}

func getWindowsVersion() string {
	output, err := exec.Command("cmd", "/c", "ver").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}
