// Package config provides user settings for LEDSync.
//
// Settings live in a YAML file stored in the platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/ledsync/config.yaml or $HOME/.config/ledsync/config.yaml
//   - macOS: $HOME/.config/ledsync/config.yaml
//   - Windows: %LOCALAPPDATA%\ledsync\config.yaml
//
// The file is optional. Every value has a default, and a file only needs to
// name the values it changes. Command line flags override the file.
//
// # Usage Example
//
//	settings, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	resolver := discovery.NewResolver(settings.Discovery.InterfaceMatch)
//
// # Thread Safety
//
// Settings values are not synchronized; load them once at startup. File
// writes are protected by a mutex and performed atomically.
package config
