// Package queuesvc provides the read service the HTTP surface consumes.
//
// The service is a thin layer over the broker.Adapter contract: it sorts the
// queue inventory, echoes paging parameters back in job pages, narrows pages
// with optional CEL filter expressions, and records per-operation outcome
// counters. It never writes to the broker.
package queuesvc
