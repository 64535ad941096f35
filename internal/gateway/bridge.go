package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civitas-labs/agora/internal/system"
	"go.uber.org/zap"
)

// Bridge feeds inbound chat messages into the coordination system and
// sends the workflow responses back to the originating channel.
type Bridge struct {
	gw       *Gateway
	sys      *system.System
	language string
	logger   *zap.Logger
}

// NewBridge wires the gateway's inbound handler to the system.
func NewBridge(gw *Gateway, sys *system.System, language string, logger *zap.Logger) *Bridge {
	b := &Bridge{gw: gw, sys: sys, language: language, logger: logger}
	gw.SetHandler(b.handle)
	return b
}

// handle processes one inbound message. Each message runs in its own
// goroutine so a slow workflow never blocks the platform event loop.
func (b *Bridge) handle(msg *InboundMessage) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		// Platform-scoped user IDs keep Slack and Discord users apart.
		userID := fmt.Sprintf("%s:%s", msg.Platform, msg.UserID)
		result, err := b.sys.ProcessVoiceCommand(ctx, msg.Content, userID, b.language)

		reply := &OutboundMessage{
			Platform:  msg.Platform,
			ChannelID: msg.ChannelID,
			ReplyTo:   msg.ReplyTo,
		}
		if err != nil {
			reply.Content = "Ihre Nachricht war leer. Womit kann ich helfen?"
		} else {
			reply.Content = formatReply(result)
		}

		if err := b.gw.Send(ctx, reply); err != nil {
			b.logger.Error("gateway reply failed",
				zap.String("platform", msg.Platform),
				zap.String("channel", msg.ChannelID),
				zap.Error(err))
		}
	}()
}

// formatReply renders a workflow result as a single chat message.
func formatReply(result *system.WorkflowResult) string {
	var b strings.Builder
	b.WriteString(result.Response)
	if result.RequiresFollowUp && len(result.FollowUpQuestions) > 0 {
		b.WriteString("\n")
		for _, q := range result.FollowUpQuestions {
			b.WriteString("\n• ")
			b.WriteString(q)
		}
	}
	return b.String()
}
