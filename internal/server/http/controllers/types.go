package controllers

import "github.com/kyled7/queue-vision/internal/broker"

// Common response types for HTTP controllers

// queuesResp wraps the queue inventory.
type queuesResp struct {
	Queues []broker.Queue `json:"queues"`
}
