// Package ui renders the non-interactive output of the btscan CLI.
//
// The scan command prints a header box, a device table and a result box:
//
//	fmt.Println(ui.RenderHeader("Bluetooth scan", "btscan scan", params, width))
//	ui.Table{Out: os.Stdout, Color: ui.IsTerminal()}.Print(result.Devices)
//	fmt.Println(ui.RenderScanResult(result, width))
//
// Failures render with troubleshooting hints for their error kind (see
// RenderFailure). The palette and signal glyph helpers are shared with the
// interactive TUI in internal/tui.
//
// Boxes use lipgloss; the table uses fatih/color so that colors can be
// switched off for piped output.
package ui
