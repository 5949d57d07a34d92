// Package present builds platform-neutral display configurations from
// normalized payloads and hands them to the platform display API.
package present

import (
	"context"
	"strconv"

	"github.com/clix-so/clix-go/internal/payload"
	"github.com/clix-so/clix-go/pkg/types"
)

const (
	// DefaultChannelID is the notification channel all Clix notifications
	// are posted to.
	DefaultChannelID = "clix_channel"

	// GroupID groups Clix notifications in the platform shade.
	GroupID = "clix_notification_group"

	// placeholderTitle is used when neither the transport block nor the
	// payload carries display text.
	placeholderTitle = "New Message"
)

// Presenter constructs display configurations and invokes the platform
// display API. Display errors are terminal here: logged with payload
// context, never propagated.
type Presenter struct {
	displayer types.NotificationDisplayer
	clock     types.Clock
	logger    types.Logger
}

// NewPresenter creates a Presenter over the given platform displayer.
func NewPresenter(displayer types.NotificationDisplayer, clock types.Clock, logger types.Logger) *Presenter {
	return &Presenter{
		displayer: displayer,
		clock:     clock,
		logger:    logger,
	}
}

// BuildDisplayConfig resolves the effective display content for a message.
//
// Title/body preference order: the transport's own notification block, then
// payload text, then a generic placeholder. The image is attached only when
// the payload URL passes the validity check. A default open action is
// always present; payload-declared actions are appended only when they have
// both a label and an action id.
func (pr *Presenter) BuildDisplayConfig(p *types.NotificationPayload, transport *types.TransportNotification, data map[string]any) types.DisplayConfig {
	title, body := p.Title, p.Body
	if transport != nil {
		if transport.Title != "" {
			title = transport.Title
		}
		if transport.Body != "" {
			body = transport.Body
		}
	}
	if title == "" && body == "" {
		title = placeholderTitle
	}

	cfg := types.DisplayConfig{
		ID:      p.MessageID,
		Title:   title,
		Body:    body,
		Channel: DefaultChannelID,
		Group:   GroupID,
		Actions: []types.DisplayAction{{ID: types.DefaultActionID, Label: "Open"}},
		Data:    data,
	}
	if cfg.ID == "" {
		cfg.ID = strconv.FormatInt(pr.clock.Now().UnixMilli(), 10)
	}

	if payload.ValidImageURL(p.ImageURL) {
		cfg.ImageURL = p.ImageURL
	}

	for _, a := range p.Actions {
		if a.Label == "" || a.ActionID == "" {
			continue
		}
		cfg.Actions = append(cfg.Actions, types.DisplayAction{ID: a.ActionID, Label: a.Label})
	}

	return cfg
}

// Display builds the config for the payload and invokes the platform
// display API exactly once. Errors from the platform are logged with the
// message id and image presence and swallowed.
func (pr *Presenter) Display(ctx context.Context, p *types.NotificationPayload, transport *types.TransportNotification, data map[string]any) {
	cfg := pr.BuildDisplayConfig(p, transport, data)

	pr.logger.Debug("displaying notification",
		"message_id", p.MessageID,
		"title", cfg.Title,
		"has_image", cfg.HasImage(),
	)

	if err := pr.displayer.Display(ctx, cfg); err != nil {
		pr.logger.Error("failed to display notification",
			"message_id", p.MessageID,
			"has_image", cfg.HasImage(),
			"error", err,
		)
		return
	}

	pr.logger.Debug("notification displayed", "message_id", p.MessageID)
}
