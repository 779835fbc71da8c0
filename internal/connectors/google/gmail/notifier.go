package gmail

import (
	"context"
	"fmt"

	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/docwatch/internal/connectors/google"
	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// Scheme is the destination scheme this notifier handles.
const Scheme = "mailto"

// Ensure Notifier implements the interface.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier sends change notifications as email through the Gmail API.
type Notifier struct {
	svc     *gmail.Service
	limiter *google.RateLimiter
	from    string
}

// NewNotifier creates a Gmail notifier. from may be empty, in which case
// Gmail uses the authenticated account's address.
func NewNotifier(svc *gmail.Service, from string, limiter *google.RateLimiter) *Notifier {
	if limiter == nil {
		limiter = google.NewRateLimiter(google.ServiceGmail)
	}
	return &Notifier{svc: svc, limiter: limiter, from: from}
}

// Notify sends msg to a "mailto:" destination and returns the Gmail message ID.
func (n *Notifier) Notify(ctx context.Context, destination string, msg driven.Message) (string, error) {
	to, ok := parseMailto(destination)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedDestination, destination)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return "", err
	}

	sent, err := n.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: BuildRaw(n.from, to, msg),
	}).Context(ctx).Do()
	if err != nil {
		if google.IsRateLimited(err) {
			n.limiter.RecordRateLimitError(google.RetryAfter(err))
		}
		return "", fmt.Errorf("gmail send to %s: %w", to, google.WrapError(err))
	}

	return sent.Id, nil
}
