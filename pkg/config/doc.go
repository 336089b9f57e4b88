// Package config provides persisted application state for the bridge.
//
// Two JSON files are managed: the app config (connect type, fragment
// pacing, paired devices, plugin settings) and the accounts file
// (provider name → account list). Both survive restarts; writes go
// through closure accessors and persist immediately, so crashing never
// loses more than the in-flight write.
package config
