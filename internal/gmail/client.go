package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/agentpark/internal/google"
	"github.com/teemow/agentpark/internal/logging"
)

// Client wraps the Gmail Users service
type Client struct {
	svc    *gmail.UsersService
	logger *slog.Logger
}

// NewClient creates a Gmail client authorized with the cached token of the
// gmail account. Extra options are passed to the underlying service.
func NewClient(ctx context.Context, provider google.HTTPClientProvider, opts ...option.ClientOption) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	httpClient, err := provider.HTTPClient(ctx, google.AccountGmail)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth client for account %s: %w", google.AccountGmail, err)
	}

	return NewClientWithOptions(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
}

// NewClientWithOptions creates a Gmail client from raw service options.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{
		svc:    svc.Users,
		logger: slog.Default(),
	}, nil
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SearchMessages returns the IDs of up to maxResults messages matching the
// query, making multiple API calls if necessary.
func (c *Client) SearchMessages(ctx context.Context, q string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}

		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List("me").Context(ctx).Q(q).MaxResults(pageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to search messages: %w", google.WrapError(err))
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// MessageHeaders fetches a message in metadata format, limited to the given
// header names (all headers when none are given).
func (c *Client) MessageHeaders(ctx context.Context, id string, names ...string) (Headers, error) {
	req := c.svc.Messages.Get("me", id).Context(ctx).Format("metadata")
	if len(names) > 0 {
		req = req.MetadataHeaders(names...)
	}

	msg, err := req.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, google.WrapError(err))
	}
	return toHeaders(msg), nil
}

// PackageUpdates lists recent shipping notifications as
// "{Subject} from {From}" lines, newest first as returned by the API.
func (c *Client) PackageUpdates(ctx context.Context) ([]string, error) {
	ids, err := c.SearchMessages(ctx, PackageQuery, PackageMaxResults)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		headers, err := c.MessageHeaders(ctx, id, "Subject", "From")
		if err != nil {
			return nil, err
		}

		if from, ok := headers["From"]; ok {
			if addr, perr := mail.ParseAddress(from); perr == nil {
				c.logger.Debug("found package notification",
					"message_id", id,
					logging.UserHash(addr.Address))
			}
		}
		lines = append(lines, packageLine(headers))
	}
	return lines, nil
}
