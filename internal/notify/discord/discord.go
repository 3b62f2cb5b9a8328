// Package discord presents pending ledger writes in a Discord channel and
// collects operator approvals as reactions.
//
// Each candidate becomes one embed message carrying its fingerprint as a
// field, so the channel itself is the dedup and approval state. ➕ from a
// human approves a candidate, 🔄 marks it claimed for commit, ✅ marks it
// committed and ⚠️ a failed commit. Approvals reach the notifier twice, via
// gateway events while connected and via a history scan that recovers
// reactions added while the process was down; the claim marker keeps the two
// paths from delivering the same approval concurrently.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/example/firefly-kresus-sync/internal/notify"
)

const (
	emojiApprove   = "➕"
	emojiInFlight  = "🔄"
	emojiCommitted = "✅"
	emojiFailed    = "⚠️"

	pendingTitle   = "Missing transaction"
	committedTitle = "Transaction added"
	pendingColor   = 0xFF5733
	committedColor = 0x00FF00

	fingerprintField = "SHA-256"
	errorField       = "Error"

	defaultHistoryLimit = 200
	historyPageSize     = 100
)

// ErrMessageNotFound reports that no message in the history window carries
// the requested fingerprint.
var ErrMessageNotFound = errors.New("discord: no message found for fingerprint")

// Config configures the notifier.
type Config struct {
	// Token is the bot token. Sensitive, never logged.
	Token string

	// ChannelID is the channel announcements go to.
	ChannelID string

	// HistoryLimit caps how many messages the dedup and approval scans
	// walk back. Zero means 200.
	HistoryLimit int
}

// Notifier is the Discord-backed notification channel.
type Notifier struct {
	session      *discordgo.Session
	channelID    string
	historyLimit int
	logger       *slog.Logger

	mu        sync.Mutex
	approvals []notify.Approval
	queued    map[string]bool
}

var _ notify.Channel = (*Notifier)(nil)

// New builds the notifier and registers its gateway handlers. The session
// is not opened; call Open once the caller is ready to receive events.
func New(cfg Config, logger *slog.Logger) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: bot token is required")
	}
	if cfg.ChannelID == "" {
		return nil, errors.New("discord: channel id is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	n := &Notifier{
		session:      session,
		channelID:    cfg.ChannelID,
		historyLimit: historyLimit,
		logger:       logger,
		queued:       make(map[string]bool),
	}
	session.AddHandler(n.onReady)
	session.AddHandler(n.onReactionAdd)
	return n, nil
}

// Open connects to the gateway.
func (n *Notifier) Open() error {
	if err := n.session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (n *Notifier) Close() error {
	return n.session.Close()
}

// Announce posts the candidate embed unless a message with the same
// fingerprint already sits in the history window, then attaches the
// approval reaction as a one-click button.
func (n *Notifier) Announce(ctx context.Context, candidate notify.Candidate) error {
	existing, err := n.findByFingerprint(ctx, candidate.Fingerprint)
	if err != nil && !errors.Is(err, ErrMessageNotFound) {
		return err
	}
	if existing != nil {
		n.logger.Debug("candidate already announced", "fingerprint", candidate.Fingerprint)
		return nil
	}

	msg, err := n.session.ChannelMessageSendEmbed(n.channelID, pendingEmbed(candidate), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: failed to announce candidate: %w", err)
	}
	if err := n.session.MessageReactionAdd(n.channelID, msg.ID, emojiApprove, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: failed to attach approval reaction: %w", err)
	}

	n.logger.Info("candidate announced",
		"fingerprint", candidate.Fingerprint,
		"description", candidate.Transaction.Description,
		"amount", candidate.Transaction.Amount)
	return nil
}

// Approvals drains gateway-fed approvals and scans the history window for
// approvals granted while the process was offline. Every returned message
// is claimed with the in-flight marker first, so neither path returns it
// again until the claim is lifted.
func (n *Notifier) Approvals(ctx context.Context) ([]notify.Approval, error) {
	messages, err := n.history(ctx)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if !awaitingCommit(msg) {
			continue
		}
		fingerprint := fingerprintFrom(msg)
		if fingerprint == "" {
			continue
		}
		if err := n.claim(ctx, msg.ID, fingerprint); err != nil {
			n.logger.Warn("failed to claim approved message", "fingerprint", fingerprint, "error", err)
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.approvals
	n.approvals = nil
	n.queued = make(map[string]bool)
	return out, nil
}

// MarkCommitted recolors the announcement and attaches the committed
// marker.
func (n *Notifier) MarkCommitted(ctx context.Context, fingerprint string) error {
	msg, err := n.findByFingerprint(ctx, fingerprint)
	if err != nil {
		return err
	}
	if len(msg.Embeds) > 0 {
		if _, err := n.session.ChannelMessageEditEmbed(n.channelID, msg.ID, committedEmbed(msg.Embeds[0]), discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: failed to edit announcement: %w", err)
		}
	}
	if err := n.session.MessageReactionAdd(n.channelID, msg.ID, emojiCommitted, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: failed to attach committed reaction: %w", err)
	}
	return nil
}

// MarkFailed surfaces a failed commit on the announcement and lifts the
// in-flight claim, so a later scan can deliver the approval again and the
// commit gets retried.
func (n *Notifier) MarkFailed(ctx context.Context, fingerprint string, cause error) error {
	msg, err := n.findByFingerprint(ctx, fingerprint)
	if err != nil {
		return err
	}
	if len(msg.Embeds) > 0 {
		if _, err := n.session.ChannelMessageEditEmbed(n.channelID, msg.ID, failedEmbed(msg.Embeds[0], cause), discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: failed to edit announcement: %w", err)
		}
	}
	if err := n.session.MessageReactionAdd(n.channelID, msg.ID, emojiFailed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: failed to attach failure reaction: %w", err)
	}
	if err := n.session.MessageReactionRemove(n.channelID, msg.ID, emojiInFlight, "@me", discordgo.WithContext(ctx)); err != nil {
		n.logger.Warn("failed to lift in-flight claim", "fingerprint", fingerprint, "error", err)
	}
	return nil
}

func (n *Notifier) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	n.logger.Info("connected to discord", "user", s.State.User.Username)
}

// onReactionAdd handles live approval reactions from the gateway.
func (n *Notifier) onReactionAdd(s *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if s.State.User != nil && event.UserID == s.State.User.ID {
		return
	}
	if event.ChannelID != n.channelID || event.Emoji.Name != emojiApprove {
		return
	}

	msg, err := s.ChannelMessage(event.ChannelID, event.MessageID)
	if err != nil {
		n.logger.Warn("failed to fetch reacted message", "message_id", event.MessageID, "error", err)
		return
	}
	if !awaitingCommit(msg) {
		return
	}
	fingerprint := fingerprintFrom(msg)
	if fingerprint == "" {
		return
	}
	if err := n.claim(context.Background(), msg.ID, fingerprint); err != nil {
		n.logger.Warn("failed to claim approved message", "fingerprint", fingerprint, "error", err)
	}
}

// claim marks the message in-flight and queues its approval exactly once
// per drain.
func (n *Notifier) claim(ctx context.Context, messageID, fingerprint string) error {
	n.mu.Lock()
	if n.queued[fingerprint] {
		n.mu.Unlock()
		return nil
	}
	n.queued[fingerprint] = true
	n.approvals = append(n.approvals, notify.Approval{Fingerprint: fingerprint})
	n.mu.Unlock()

	n.logger.Info("approval received", "fingerprint", fingerprint)
	return n.session.MessageReactionAdd(n.channelID, messageID, emojiInFlight, discordgo.WithContext(ctx))
}

// findByFingerprint walks the history window for the announcement carrying
// the fingerprint.
func (n *Notifier) findByFingerprint(ctx context.Context, fingerprint string) (*discordgo.Message, error) {
	messages, err := n.history(ctx)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if fingerprintFrom(msg) == fingerprint {
			return msg, nil
		}
	}
	return nil, ErrMessageNotFound
}

// history fetches up to historyLimit messages, newest first.
func (n *Notifier) history(ctx context.Context) ([]*discordgo.Message, error) {
	var (
		all    []*discordgo.Message
		before string
	)
	for len(all) < n.historyLimit {
		pageSize := n.historyLimit - len(all)
		if pageSize > historyPageSize {
			pageSize = historyPageSize
		}
		page, err := n.session.ChannelMessages(n.channelID, pageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("discord: failed to fetch channel history: %w", err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		before = page[len(page)-1].ID
	}
	return all, nil
}

// awaitingCommit reports whether the message carries a human approval and
// has not been claimed or committed yet.
func awaitingCommit(msg *discordgo.Message) bool {
	approved := false
	for _, reaction := range msg.Reactions {
		switch reaction.Emoji.Name {
		case emojiApprove:
			if reaction.Count > 1 || !reaction.Me {
				approved = true
			}
		case emojiInFlight, emojiCommitted:
			return false
		}
	}
	return approved
}

// fingerprintFrom extracts the fingerprint field from an announcement, or
// "" for messages this notifier did not post.
func fingerprintFrom(msg *discordgo.Message) string {
	for _, embed := range msg.Embeds {
		for _, field := range embed.Fields {
			if field.Name == fingerprintField {
				return field.Value
			}
		}
	}
	return ""
}

func pendingEmbed(candidate notify.Candidate) *discordgo.MessageEmbed {
	tx := candidate.Transaction
	return &discordgo.MessageEmbed{
		Title: pendingTitle,
		Color: pendingColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: fingerprintField, Value: candidate.Fingerprint},
			{Name: "Date", Value: tx.DateString()},
			{Name: "Amount", Value: strconv.FormatFloat(tx.Amount, 'f', -1, 64)},
			{Name: "Type", Value: fieldValue(string(tx.Type))},
			{Name: "Description", Value: fieldValue(tx.Description)},
			{Name: "Source", Value: fieldValue(tx.SourceName)},
			{Name: "Destination", Value: fieldValue(tx.DestinationName)},
		},
	}
}

func committedEmbed(src *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	embed := *src
	embed.Title = committedTitle
	embed.Color = committedColor
	return &embed
}

// failedEmbed appends or replaces the error field on a copy of the
// announcement embed.
func failedEmbed(src *discordgo.MessageEmbed, cause error) *discordgo.MessageEmbed {
	embed := *src
	embed.Fields = make([]*discordgo.MessageEmbedField, len(src.Fields))
	copy(embed.Fields, src.Fields)

	value := fieldValue(truncate(cause.Error(), 1000))
	for i, field := range embed.Fields {
		if field.Name == errorField {
			embed.Fields[i] = &discordgo.MessageEmbedField{Name: errorField, Value: value}
			return &embed
		}
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: errorField, Value: value})
	return &embed
}

// fieldValue guards against empty embed field values, which the API
// rejects.
func fieldValue(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
