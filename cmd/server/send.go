package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/engine"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	url       string
	secret    string
	eventType string
	data      string
	timeout   time.Duration
}

// newSendCmd posts a signed sample event, the way the provider would, for
// smoke-testing a running receiver.
func newSendCmd() *cobra.Command {
	opts := sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a signed sample webhook to a receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080/api/webhooks/clerk", "receiver URL")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "signing secret (whsec_...); unsigned when empty")
	cmd.Flags().StringVar(&opts.eventType, "type", "user.created", "event type")
	cmd.Flags().StringVar(&opts.data, "data", "{}", "JSON object used as the event data")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func runSend(cmd *cobra.Command, opts sendOptions) error {
	if !json.Valid([]byte(opts.data)) {
		return fmt.Errorf("--data must be valid JSON")
	}

	body, err := json.Marshal(domain.Envelope{
		Type:   opts.eventType,
		Object: "event",
		Data:   json.RawMessage(opts.data),
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, opts.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if opts.secret != "" {
		headers, err := engine.Sign(opts.secret, "msg_"+uuid.NewString(), time.Now(), body)
		if err != nil {
			return fmt.Errorf("signing event: %w", err)
		}
		for k, v := range headers {
			req.Header[k] = v
		}
	}

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response body (limit to 1KB)
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, bytes.TrimSpace(respBody))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("receiver answered %d", resp.StatusCode)
	}
	return nil
}
