package bot

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// fakeAPI records outbound calls and serves canned guild data
type fakeAPI struct {
	mu sync.Mutex

	sent      []*discordgo.MessageSend
	sentTo    []string
	edits     []*discordgo.MessageEdit
	responses []*discordgo.InteractionResponse

	guild     *discordgo.Guild
	members   map[string]*discordgo.Member
	memberErr error
	sendErr   error
}

func (f *fakeAPI) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, data)
	f.sentTo = append(f.sentTo, channelID)
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	if f.guild == nil || f.guild.ID != guildID {
		return nil, errors.New("unknown guild")
	}
	return f.guild, nil
}

func (f *fakeAPI) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	m, ok := f.members[userID]
	if !ok {
		return nil, &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember, Message: "Unknown Member"}}
	}
	return m, nil
}
