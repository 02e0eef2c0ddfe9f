package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/btscan/internal/session"
	"github.com/muurk/btscan/internal/urls"
)

// Detail is one key/value line in a header or result box.
type Detail struct {
	Key   string
	Value string
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params []Detail, width int) string {
	width = clampWidth(width)

	titleLine := HeaderTitleStyle.Render(strings.ToUpper(title))
	commandLine := HeaderCommandStyle.Render(command)
	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	if len(params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		var paramLines []string
		for _, p := range params {
			paramLines = append(paramLines, HeaderParamKeyStyle.Render(p.Key+":")+" "+HeaderParamValueStyle.Render(p.Value))
		}
		content = lipgloss.JoinVertical(lipgloss.Left,
			content,
			RenderHorizontalDivider(dividerWidth, "─"),
			strings.Join(paramLines, "\n"),
		)
	}

	return HeaderBorderStyle(width).Render(content)
}

// RenderScanResult renders the outcome of a finished scan: a success box
// when devices were found, a warning box otherwise.
func RenderScanResult(res session.Result, width int) string {
	width = clampWidth(width)

	details := []Detail{
		{"Status", StatusText(res.Status, len(res.Devices))},
		{"Stopped by", strings.ToLower(res.Cause.String())},
		{"Devices", fmt.Sprintf("%d", len(res.Devices))},
		{"Duration", res.Elapsed.Round(100 * time.Millisecond).String()},
	}

	if res.Status == session.ReadyWithResults {
		title := SuccessTitleStyle.Render(fmt.Sprintf("   %s  SCAN COMPLETE", SuccessMarker))
		return ResultBoxStyle(width, SuccessColor).Render(boxContent(title, details))
	}
	title := WarningTitleStyle.Render(fmt.Sprintf("   %s  NO DEVICES FOUND", WarningMarker))
	return ResultBoxStyle(width, WarningColor).Render(boxContent(title, details))
}

// RenderFailure renders a failed scan attempt with troubleshooting tips.
func RenderFailure(err *session.Error, width int) string {
	width = clampWidth(width)

	lines := []string{
		"",
		ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, FailureTitle(err.Kind))),
		"",
		ErrorMessageStyle.Render("   Error: " + err.Error()),
		"",
	}

	if tips := Troubleshooting(err.Kind); len(tips) > 0 {
		tipLines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range tips {
			tipLines = append(tipLines, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(tipLines, "\n")), "")
	}

	return ResultBoxStyle(width, ErrorColor).Render(strings.Join(lines, "\n"))
}

// StatusText is the one-line status shown after a scan, e.g. "Ready (3 devices)".
func StatusText(status session.Status, devices int) string {
	if status == session.NoDevicesFound {
		return "No devices found"
	}
	if devices == 1 {
		return "Ready (1 device)"
	}
	return fmt.Sprintf("Ready (%d devices)", devices)
}

// FailureTitle is the banner text for an error kind.
func FailureTitle(kind session.ErrorKind) string {
	switch kind {
	case session.KindRadioUnavailable:
		return "Bluetooth is not available on this device"
	case session.KindAdapterDisabled:
		return "Bluetooth is turned off"
	case session.KindPermissionDenied:
		return "Permission required to scan"
	case session.KindDiscoveryFailed:
		return "Discovery could not be started"
	default:
		return "Scan failed"
	}
}

// Troubleshooting returns hints for an error kind.
func Troubleshooting(kind session.ErrorKind) []string {
	switch kind {
	case session.KindRadioUnavailable:
		return []string{
			"Check that a Bluetooth adapter is present (bluetoothctl list)",
			"Make sure the bluetooth service is running",
			"Try --backend sim to check the rest of the setup",
			"Adapter setup guide: " + urls.BluetoothSetup,
		}
	case session.KindAdapterDisabled:
		return []string{
			"Power the adapter on with: bluetoothctl power on",
			"Check rfkill: rfkill unblock bluetooth",
			"Adapter setup guide: " + urls.BluetoothSetup,
		}
	case session.KindPermissionDenied:
		return []string{
			"Answer 'y' when asked to allow scanning",
			"Set scan.require_consent: false in the config file to skip the prompt",
		}
	case session.KindDiscoveryFailed:
		return []string{
			"Another program may already be scanning",
			"Run with --log-level debug for details",
			"If it keeps failing, report it at " + urls.Issues,
		}
	default:
		return nil
	}
}

func boxContent(title string, details []Detail) string {
	lines := []string{"", title, ""}
	for _, d := range details {
		lines = append(lines, ResultKeyStyle.Render("   "+d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}
