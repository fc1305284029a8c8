// Package chat defines the surface the session engine consumes from the
// host chat platform: conversation-channel lifecycle, message posting with
// interactive components, and the trigger variants that start sessions.
// The engine never depends on a concrete platform client; see pkg/chatapi
// for the REST implementation.
package chat

import (
	"context"
	"errors"
)

// ErrChannelCreation is returned when a dedicated conversation channel
// cannot be created or the owning user cannot be added to it.
var ErrChannelCreation = errors.New("chat: channel creation failed")

// MessageRef identifies a posted message so it can be edited later.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// EmbedField is one name/value pair of a rich result display.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

// PickerOption is one entry of a select picker.
type PickerOption struct {
	Label       string
	Value       string
	Description string
}

// Picker is a single-select component attached to a message.
type Picker struct {
	CustomID    string
	Placeholder string
	Options     []PickerOption
}

// Button is a clickable component attached to a message.
type Button struct {
	CustomID string
	Label    string
	Danger   bool
}

// Message is an outgoing message with optional rich content and components.
type Message struct {
	Content string
	Embed   *Embed
	Picker  *Picker
	Buttons []Button
}

// Text builds a plain-content message.
func Text(content string) Message {
	return Message{Content: content}
}

// Adapter is the conversation-channel surface the engine consumes.
// CreateThread and AddMember failures surface as ErrChannelCreation;
// LockAndArchive and StripComponents are best-effort for callers.
type Adapter interface {
	// CreateThread creates a private sub-conversation under parentChannelID
	// and returns its channel id.
	CreateThread(ctx context.Context, parentChannelID, title string) (string, error)

	// AddMember invites a user into a thread.
	AddMember(ctx context.Context, channelID, userID string) error

	// LockAndArchive closes a thread for further activity.
	LockAndArchive(ctx context.Context, channelID string) error

	// Post sends a message to a channel and returns a reference to it.
	Post(ctx context.Context, channelID string, msg Message) (MessageRef, error)

	// StripComponents removes the interactive components from a previously
	// posted message, leaving its content in place.
	StripComponents(ctx context.Context, ref MessageRef) error
}
