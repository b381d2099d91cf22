package app

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

const applicationJSON = "application/json"

// Notifier posts terminal job events to user-configured webhook URLs.
type Notifier struct {
	urls      []string
	regClient *http.Client
	lanClient *http.Client
}

// NewNotifier builds a notifier for the given webhook URLs. LAN hosts get a
// lenient TLS client, public hosts a strict one.
func NewNotifier(urls []string) *Notifier {
	return &Notifier{
		urls:      urls,
		regClient: &http.Client{Timeout: consts.WebhookTimeout},
		lanClient: &http.Client{
			Timeout: consts.WebhookTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Run consumes the event stream until it closes or the context ends,
// notifying webhooks of every terminal event.
func (n *Notifier) Run(ctx context.Context, events <-chan models.DownloadEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case consts.EventDone, consts.EventFailed, consts.EventCancelled:
				n.notify(ctx, e)
			}
		}
	}
}

// notify POSTs one event to every configured webhook URL. Failures are
// logged and never affect the job itself.
func (n *Notifier) notify(ctx context.Context, e models.DownloadEvent) {
	body, err := json.Marshal(e)
	if err != nil {
		logging.E("Failed to encode event for job %q: %v", e.JobID, err)
		return
	}

	for _, notifyURL := range n.urls {
		parsed, err := url.Parse(notifyURL)
		if err != nil {
			logging.E("Invalid notification URL %q: %v", notifyURL, err)
			continue
		}

		client := n.regClient
		if net.IsPrivateNetwork(parsed.Host) {
			client = n.lanClient
		}

		if err := n.post(ctx, client, notifyURL, body); err != nil {
			logging.E("Failed to notify URL %q for job %q: %v", notifyURL, e.JobID, err)
			continue
		}
		logging.S("Notified %q of job %q (%s)", notifyURL, e.JobID, e.Type)
	}
}

// post sends one webhook request.
func (n *Notifier) post(ctx context.Context, client *http.Client, notifyURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, notifyURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", applicationJSON)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.E("Failed to close HTTP response body: %v", err)
		}
	}()

	if resp.StatusCode >= 400 {
		return &net.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
