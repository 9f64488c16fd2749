package clientcmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// APIURL resolves the server base URL for client subcommands.
type APIURL func() string

func getJSON(api APIURL, path string, query url.Values) (string, error) {
	u := api() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return string(body), nil
	}
	return pretty.String(), nil
}

// NewQueueCommand returns the queue inspection subcommands.
func NewQueueCommand(api APIURL) *cobra.Command {
	queueCmd := &cobra.Command{Use: "queue", Short: "Queue operations"}

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List discovered queues with status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON(api, "/v1/queues", nil)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	queueCmd.AddCommand(lsCmd)

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List one page of a queue's jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			name, _ := cmd.Flags().GetString("name")
			status, _ := cmd.Flags().GetString("status")
			offset, _ := cmd.Flags().GetInt("offset")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")
			q.Set("queue", name)
			q.Set("status", status)
			q.Set("offset", fmt.Sprintf("%d", offset))
			q.Set("limit", fmt.Sprintf("%d", limit))
			if filter != "" {
				q.Set("filter", filter)
			}
			out, err := getJSON(api, "/v1/queues/jobs", q)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	jobsCmd.Flags().String("name", "", "Queue name")
	jobsCmd.Flags().String("status", "waiting", "Job status: waiting|active|completed|failed|delayed")
	jobsCmd.Flags().Int("offset", 0, "Page offset")
	jobsCmd.Flags().Int("limit", 20, "Page size (max 100)")
	jobsCmd.Flags().String("filter", "", "Optional CEL filter, e.g. attempts > 2")
	queueCmd.AddCommand(jobsCmd)

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show a queue's rolling metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			q := url.Values{}
			q.Set("queue", name)
			out, err := getJSON(api, "/v1/queues/metrics", q)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	metricsCmd.Flags().String("name", "", "Queue name")
	queueCmd.AddCommand(metricsCmd)

	return queueCmd
}

// NewJobCommand returns the job detail subcommand.
func NewJobCommand(api APIURL) *cobra.Command {
	jobCmd := &cobra.Command{Use: "job", Short: "Job operations"}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch one job's full record",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			id, _ := cmd.Flags().GetString("id")
			q := url.Values{}
			q.Set("queue", queue)
			q.Set("id", id)
			out, err := getJSON(api, "/v1/queues/job", q)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	getCmd.Flags().String("queue", "", "Queue name")
	getCmd.Flags().String("id", "", "Job id")
	jobCmd.AddCommand(getCmd)

	return jobCmd
}

// NewWatchCommand returns the event stream subcommand. It tails the
// server's SSE endpoint and prints one event per line.
func NewWatchCommand(api APIURL) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream job lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			u := api() + "/v1/events"
			if queue != "" {
				u += "?queue=" + url.QueryEscape(queue)
			}
			resp, err := http.Get(u)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stream: %s", resp.Status)
			}
			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := scanner.Text()
				if strings.HasPrefix(line, "data: ") {
					fmt.Println(strings.TrimPrefix(line, "data: "))
				}
			}
			return scanner.Err()
		},
	}
	watchCmd.Flags().String("queue", "", "Restrict the stream to one queue")
	return watchCmd
}
