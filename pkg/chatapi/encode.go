package chatapi

import "github.com/pennantware/warbot/pkg/chat"

// Component type and style codes on the wire.
const (
	componentActionRow = 1
	componentButton    = 2
	componentSelect    = 3

	buttonStyleSecondary = 2
	buttonStyleDanger    = 4
)

// encodeMessage renders a platform-neutral message as the wire payload.
func encodeMessage(msg chat.Message) map[string]any {
	payload := map[string]any{}
	if msg.Content != "" {
		payload["content"] = msg.Content
	}
	if msg.Embed != nil {
		payload["embeds"] = []any{encodeEmbed(msg.Embed)}
	}
	if rows := encodeComponents(msg); len(rows) > 0 {
		payload["components"] = rows
	}
	return payload
}

func encodeEmbed(e *chat.Embed) map[string]any {
	embed := map[string]any{}
	if e.Title != "" {
		embed["title"] = e.Title
	}
	if e.Description != "" {
		embed["description"] = e.Description
	}
	if e.Color != 0 {
		embed["color"] = e.Color
	}

	if len(e.Fields) > 0 {
		fields := make([]any, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, map[string]any{
				"name":   f.Name,
				"value":  f.Value,
				"inline": f.Inline,
			})
		}
		embed["fields"] = fields
	}
	return embed
}

// encodeComponents lays the picker and buttons out as action rows: a select
// occupies a row of its own, buttons share one.
func encodeComponents(msg chat.Message) []any {
	var rows []any

	if p := msg.Picker; p != nil {
		options := make([]any, 0, len(p.Options))
		for _, o := range p.Options {
			opt := map[string]any{
				"label": o.Label,
				"value": o.Value,
			}
			if o.Description != "" {
				opt["description"] = o.Description
			}
			options = append(options, opt)
		}
		rows = append(rows, map[string]any{
			"type": componentActionRow,
			"components": []any{map[string]any{
				"type":        componentSelect,
				"custom_id":   p.CustomID,
				"placeholder": p.Placeholder,
				"options":     options,
			}},
		})
	}

	if len(msg.Buttons) > 0 {
		buttons := make([]any, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			style := buttonStyleSecondary
			if b.Danger {
				style = buttonStyleDanger
			}
			buttons = append(buttons, map[string]any{
				"type":      componentButton,
				"custom_id": b.CustomID,
				"label":     b.Label,
				"style":     style,
			})
		}
		rows = append(rows, map[string]any{
			"type":       componentActionRow,
			"components": buttons,
		})
	}
	return rows
}
