package platform

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/okellohq/sociapay/internal/domain"
)

// MessageHandler is the inbound side of the engine: every adapter normalizes
// its events into a domain.Message and hands them here.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.Message) error
}

// DiscordGateway connects the engine to Discord. Inbound DMs become
// normalized Messages; outbound replies go through a DM channel to the user.
type DiscordGateway struct {
	session *discordgo.Session
	handler MessageHandler
	tracker *ActivityTracker
}

func NewDiscordGateway(token string, handler MessageHandler, tracker *ActivityTracker) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	g := &DiscordGateway{
		session: session,
		handler: handler,
		tracker: tracker,
	}

	session.AddHandler(g.onReady)
	session.AddHandler(g.onMessageCreate)
	session.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	return g, nil
}

func (g *DiscordGateway) Start() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Println("Discord gateway is running")
	return nil
}

func (g *DiscordGateway) Stop() error {
	return g.session.Close()
}

func (g *DiscordGateway) Platform() domain.Platform {
	return domain.PlatformDiscord
}

// SendMessage delivers text to the user over a DM channel.
func (g *DiscordGateway) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	channel, err := g.session.UserChannelCreate(recipientID)
	if err != nil {
		return "", fmt.Errorf("failed to open DM channel: %w", err)
	}
	msg, err := g.session.ChannelMessageSend(channel.ID, text)
	if err != nil {
		return "", fmt.Errorf("failed to send discord message: %w", err)
	}
	return msg.ID, nil
}

func (g *DiscordGateway) IsConnected() bool {
	return g.session.DataReady
}

func (g *DiscordGateway) ActiveUserCount() int {
	return g.tracker.Count(domain.PlatformDiscord)
}

func (g *DiscordGateway) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("%s is connected!", event.User.Username)
}

func (g *DiscordGateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot messages
	if m.Author.Bot {
		return
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	timestamp := m.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	msg := domain.Message{
		Platform:     domain.PlatformDiscord,
		SenderID:     m.Author.ID,
		SenderHandle: m.Author.Username,
		Text:         content,
		MessageID:    m.ID,
		Timestamp:    timestamp,
	}

	if err := g.handler.HandleMessage(context.Background(), msg); err != nil {
		log.Printf("discord message handling failed: %v", err)
	}
}
