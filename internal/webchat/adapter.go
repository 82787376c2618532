package webchat

import (
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/conversation"
)

// outboundFromReply converts an engine reply into the widget wire format.
func outboundFromReply(reply conversation.Reply) OutboundMessage {
	return OutboundMessage{
		Type:            "message",
		Role:            "assistant",
		Text:            reply.Text,
		Phase:           string(reply.Phase),
		SessionID:       reply.SessionID,
		QuickReplies:    reply.QuickReplies,
		ReferenceNumber: reply.ReferenceNumber,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
}
