package chat

import "context"

// Trigger is the uniform capability surface of whatever started a session:
// a slash command, a plain message, or a component interaction. The engine
// never inspects the variant; it only replies through it.
type Trigger interface {
	// UserID is the acting user.
	UserID() string

	// UserName is the acting user's display name, used for thread titles.
	UserName() string

	// GuildID is the server the trigger came from; empty in direct messages.
	GuildID() string

	// ChannelID is the channel the trigger was issued in.
	ChannelID() string

	// Reply sends a response visible to the invoking user.
	Reply(ctx context.Context, content string) error

	// Acknowledge delivers the private "your thread is ready" notice.
	// Variants without a private reply surface drop it silently.
	Acknowledge(ctx context.Context, content string) error
}

// Replier sends a reply for a trigger variant. Implementations decide the
// transport (ephemeral interaction response, channel message, ...).
type Replier func(ctx context.Context, content string) error

// CommandTrigger is a slash-command invocation. Reply and Acknowledge both
// go to the invoker's private (ephemeral) response surface.
type CommandTrigger struct {
	User    string
	Name    string
	Guild   string
	Channel string
	Respond Replier
}

func (t CommandTrigger) UserID() string    { return t.User }
func (t CommandTrigger) UserName() string  { return t.Name }
func (t CommandTrigger) GuildID() string   { return t.Guild }
func (t CommandTrigger) ChannelID() string { return t.Channel }

func (t CommandTrigger) Reply(ctx context.Context, content string) error {
	return t.Respond(ctx, content)
}

func (t CommandTrigger) Acknowledge(ctx context.Context, content string) error {
	return t.Respond(ctx, content)
}

// MessageTrigger is a plain-text command message. Replies go to the channel;
// the private thread-link notice has nowhere to go and is dropped, matching
// the forced-start flow.
type MessageTrigger struct {
	User    string
	Name    string
	Guild   string
	Channel string
	Respond Replier
}

func (t MessageTrigger) UserID() string    { return t.User }
func (t MessageTrigger) UserName() string  { return t.Name }
func (t MessageTrigger) GuildID() string   { return t.Guild }
func (t MessageTrigger) ChannelID() string { return t.Channel }

func (t MessageTrigger) Reply(ctx context.Context, content string) error {
	return t.Respond(ctx, content)
}

func (MessageTrigger) Acknowledge(context.Context, string) error { return nil }

// InteractionTrigger is a component or modal interaction. Both reply surfaces
// are the interaction's ephemeral response.
type InteractionTrigger struct {
	User    string
	Name    string
	Guild   string
	Channel string
	Respond Replier
}

func (t InteractionTrigger) UserID() string    { return t.User }
func (t InteractionTrigger) UserName() string  { return t.Name }
func (t InteractionTrigger) GuildID() string   { return t.Guild }
func (t InteractionTrigger) ChannelID() string { return t.Channel }

func (t InteractionTrigger) Reply(ctx context.Context, content string) error {
	return t.Respond(ctx, content)
}

func (t InteractionTrigger) Acknowledge(ctx context.Context, content string) error {
	return t.Respond(ctx, content)
}

// Interface compliance.
var (
	_ Trigger = CommandTrigger{}
	_ Trigger = MessageTrigger{}
	_ Trigger = InteractionTrigger{}
)
