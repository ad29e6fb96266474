// Package file provides the TOML settings layer for the CLI.
//
// Settings cover where data lives, which embedding and generation
// backends to use, and overrides for the pipeline policy knobs. A
// missing config file yields defaults, so the CLI works without any
// setup.
package file
