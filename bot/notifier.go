package bot

import (
	"context"
	"fmt"

	"rewarder/bot/common"
	"rewarder/models"

	"github.com/bwmarrin/discordgo"
)

// Notifier delivers messages as Discord direct messages
type Notifier struct {
	api          discordAPI
	interactions *interactionStore
}

// Notify opens (or reuses) the DM channel with the user and posts text with buttons
func (n *Notifier) Notify(ctx context.Context, userID int64, text string, keyboard *models.Keyboard) error {
	channel, err := n.api.UserChannelCreate(common.FormatUserID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	_, err = n.api.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content:    text,
		Components: common.KeyboardComponents(keyboard),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// EditNotification replaces the content and buttons of a message the bot sent earlier
func (n *Notifier) EditNotification(ctx context.Context, chatID, messageID string, text string, keyboard *models.Keyboard) error {
	components := common.KeyboardComponents(keyboard)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}

	_, err := n.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    chatID,
		Content:    &text,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// AcknowledgeAction answers a button press.
// Without text the press is silently accepted; with text a reply is shown, privately when urgent.
func (n *Notifier) AcknowledgeAction(ctx context.Context, actionID string, text string, urgent bool) error {
	interaction, ok := n.interactions.take(actionID)
	if !ok {
		return fmt.Errorf("interaction %s is unknown or expired", actionID)
	}

	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	if text != "" {
		data := &discordgo.InteractionResponseData{Content: text}
		if urgent {
			data.Flags = discordgo.MessageFlagsEphemeral
		}
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}
	}

	if err := n.api.InteractionRespond(interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to respond to interaction: %w", err)
	}
	return nil
}
