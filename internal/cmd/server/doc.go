// Package serverrun wires the configuration, logger, broker adapter, read
// services, and HTTP gateway into one running server process.
package serverrun
