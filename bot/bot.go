package bot

import (
	"context"
	"fmt"
	"time"

	"rewarder/bot/common"
	"rewarder/dispatch"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token string
	// EventTimeout bounds the handling of one inbound message or button press
	EventTimeout time.Duration
}

// Handler receives parsed inbound events
type Handler interface {
	HandleMessage(ctx context.Context, msg dispatch.InboundMessage)
	HandleAction(ctx context.Context, act dispatch.InboundAction)
}

// Bot owns the Discord session and translates gateway events into dispatcher calls
type Bot struct {
	config       Config
	session      *discordgo.Session
	interactions *interactionStore
	handler      Handler
	stopCleanup  chan struct{}
}

// New creates the Discord session without connecting.
// The notifier and membership checker are usable before Start.
func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuilds

	if config.EventTimeout <= 0 {
		config.EventTimeout = 30 * time.Second
	}

	return &Bot{
		config:       config,
		session:      dg,
		interactions: newInteractionStore(),
		stopCleanup:  make(chan struct{}),
	}, nil
}

// Notifier returns the outbound adapter bound to this session
func (b *Bot) Notifier() *Notifier {
	return &Notifier{api: b.session, interactions: b.interactions}
}

// MembershipChecker returns the guild membership adapter bound to this session
func (b *Bot) MembershipChecker() *GuildMembershipChecker {
	return &GuildMembershipChecker{api: b.session}
}

// Start registers the gateway handlers and opens the websocket
func (b *Bot) Start(handler Handler) error {
	b.handler = handler
	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	go b.startInteractionCleanup()

	log.WithField("user", b.session.State.User.Username).Info("Discord bot connected")
	return nil
}

// Close stops the cleanup worker and disconnects
func (b *Bot) Close() error {
	close(b.stopCleanup)
	return b.session.Close()
}

// handleMessageCreate forwards direct messages; server messages are ignored
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return
	}

	userID, err := common.ParseUserID(m.Author.ID)
	if err != nil {
		log.WithFields(log.Fields{
			"authorID": m.Author.ID,
			"error":    err,
		}).Warn("Ignoring message with unparseable author id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.config.EventTimeout)
	defer cancel()

	b.handler.HandleMessage(ctx, dispatch.InboundMessage{
		UserID: userID,
		Handle: m.Author.Username,
		Text:   m.Content,
	})
}

// handleInteraction forwards button presses
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	action, ok := b.inboundAction(i.Interaction)
	if !ok {
		return
	}
	b.interactions.put(i.Interaction)

	ctx, cancel := context.WithTimeout(context.Background(), b.config.EventTimeout)
	defer cancel()

	b.handler.HandleAction(ctx, action)
}

func (b *Bot) inboundAction(i *discordgo.Interaction) (dispatch.InboundAction, bool) {
	user := common.InteractionUser(i)
	if user == nil {
		return dispatch.InboundAction{}, false
	}

	userID, err := common.ParseUserID(user.ID)
	if err != nil {
		log.WithFields(log.Fields{
			"discordUserID": user.ID,
			"error":         err,
		}).Warn("Ignoring interaction with unparseable user id")
		return dispatch.InboundAction{}, false
	}

	action := dispatch.InboundAction{
		UserID:       userID,
		Handle:       user.Username,
		ActionID:     i.ID,
		Data:         i.MessageComponentData().CustomID,
		OriginChatID: i.ChannelID,
	}
	if i.Message != nil {
		action.OriginMessageID = i.Message.ID
	}
	return action, true
}

// startInteractionCleanup drops interactions the dispatcher never acknowledged
func (b *Bot) startInteractionCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCleanup:
			return
		case <-ticker.C:
			if removed := b.interactions.prune(); removed > 0 {
				log.WithField("removed", removed).Debug("Pruned stale interactions")
			}
		}
	}
}
