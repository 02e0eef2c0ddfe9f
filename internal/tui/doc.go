// Package tui is the interactive scan screen.
//
// The screen shows a scan toggle, a live device list and the status of the
// last scan. Session notifications reach the bubbletea program through a
// Bridge, which also answers consent questions from the radio backend with
// an on-screen y/n prompt.
package tui
