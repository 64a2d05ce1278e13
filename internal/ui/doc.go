// Package ui renders styled one-shot terminal output for the ledsync CLI.
//
// Unlike the interactive TUI, these components print once and exit. They
// are used by commands such as 'ledsync set' and 'ledsync toggle' when
// stdout is a terminal:
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, failure or warning box with details and
//     troubleshooting tips
//
// Example:
//
//	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
//	    Title:   "Set Configuration",
//	    Command: "ledsync set brightness 80",
//	    Params:  map[string]string{"Device": "192.168.1.40"},
//	}))
//	fmt.Println(ui.RenderDeviceFailure("Device unreachable", err))
//
// # Logging Integration
//
// Logging is controlled by the LEDSYNC_LOG_LEVEL environment variable. When
// unset, zap logging is silent so the styled output is displayed cleanly.
package ui
