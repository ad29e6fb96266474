// Package connectors feeds documents from external sources into the
// ingestion boundary. Each connector knows how to enumerate and read
// documents from one source type.
//
// The filesystem connector is currently the only implementation.
package connectors
