package errorlog

import (
	"context"

	"github.com/ribbonapp/ribbon-core/internal/httpclient"
)

// HTTPReporter posts batches as {"errors": [...]} through the HTTP client, which
// applies its retry policy to each delivery.
type HTTPReporter struct {
	client   *httpclient.Client
	endpoint string
}

// NewHTTPReporter creates a reporter posting to endpoint. The client must not
// report its own failures back into the logger that owns this reporter.
func NewHTTPReporter(client *httpclient.Client, endpoint string) *HTTPReporter {
	return &HTTPReporter{client: client, endpoint: endpoint}
}

type reportRequest struct {
	Errors []Entry `json:"errors"`
}

// Report implements Reporter.
func (r *HTTPReporter) Report(ctx context.Context, entries []Entry) error {
	_, err := r.client.Post(ctx, r.endpoint, reportRequest{Errors: entries})
	return err
}
