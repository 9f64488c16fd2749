// Package clientcmd holds the CLI subcommands that talk to a running
// queue-vision server over its HTTP API.
package clientcmd
