// Package driving provides interfaces for the application's entry points
// (primary/inbound ports). The CLI and the filesystem watcher call these;
// transports such as HTTP are a separate layer's concern and bind to the
// same contracts.
package driving
