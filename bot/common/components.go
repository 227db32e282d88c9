package common

import (
	"github.com/bwmarrin/discordgo"

	"rewarder/models"
)

// Discord limits
const (
	maxRows          = 5
	maxButtonsPerRow = 5
	maxLabelLength   = 80
)

// KeyboardComponents converts a keyboard into action rows of buttons.
// Buttons with a URL become link buttons. Anything beyond Discord's limits is dropped.
func KeyboardComponents(keyboard *models.Keyboard) []discordgo.MessageComponent {
	if keyboard == nil || len(keyboard.Rows) == 0 {
		return nil
	}

	var rows []discordgo.MessageComponent
	for _, row := range keyboard.Rows {
		if len(rows) == maxRows {
			break
		}
		if len(row) == 0 {
			continue
		}

		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			if len(buttons) == maxButtonsPerRow {
				break
			}
			buttons = append(buttons, button(b))
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func button(b models.Button) discordgo.Button {
	label := b.Label
	if len(label) > maxLabelLength {
		label = label[:maxLabelLength]
	}
	if b.URL != "" {
		return discordgo.Button{Label: label, Style: discordgo.LinkButton, URL: b.URL}
	}
	style := discordgo.PrimaryButton
	if b.Action == models.ActionMenuBack || b.Action == models.ActionAdminCancel {
		style = discordgo.SecondaryButton
	}
	return discordgo.Button{Label: label, Style: style, CustomID: b.Action}
}
