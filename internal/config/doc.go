// Package config loads queue-vision's configuration from defaults, an
// optional JSON or YAML file, and a QV_* environment overlay, in that order.
package config
