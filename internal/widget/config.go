// Package widget implements the embeddable SmartBotly chat widget: its
// configuration surface, the view-state machine driving a conversation, the
// HTTP client for the chat endpoint, and a terminal front end.
package widget

// Position anchors the widget to a host-page corner.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopRight    Position = "top-right"
	PositionTopLeft     Position = "top-left"
)

// Theme selects the color palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Mood tunes the assistant's register. It is forwarded to the host page and
// prompt layer; the widget itself only validates it.
type Mood string

const (
	MoodFriendly     Mood = "friendly"
	MoodProfessional Mood = "professional"
	MoodCasual       Mood = "casual"
	MoodFormal       Mood = "formal"
)

// Config is the host-supplied widget configuration. The widget treats it as
// read-only and derives all styling from it at render time.
type Config struct {
	APIKey    string
	ChatbotID string

	ChatbotName    string
	Greeting       string
	PrimaryColor   string
	SecondaryColor string
	Position       Position
	Theme          Theme
	ChatbotAvatar  string
	UserAvatar     string
	Mood           Mood

	AutoOpen     bool
	ShowBranding bool
	SoundEnabled bool

	Width        int
	Height       int
	BorderRadius int
	ZIndex       int
}

// DefaultConfig matches the widget's stock appearance.
func DefaultConfig() Config {
	return Config{
		ChatbotName:    "SmartBot",
		Greeting:       "Hi! How can I help you today?",
		PrimaryColor:   "#8B5CF6",
		SecondaryColor: "#3B82F6",
		Position:       PositionBottomRight,
		Theme:          ThemeDark,
		ChatbotAvatar:  "🤖",
		UserAvatar:     "👤",
		Mood:           MoodFriendly,
		ShowBranding:   true,
		SoundEnabled:   true,
		Width:          380,
		Height:         600,
		BorderRadius:   16,
		ZIndex:         10000,
	}
}

// withDefaults fills zero-valued fields so partially populated configs render
// the same as the stock widget.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ChatbotName == "" {
		c.ChatbotName = def.ChatbotName
	}
	if c.Greeting == "" {
		c.Greeting = def.Greeting
	}
	if c.PrimaryColor == "" {
		c.PrimaryColor = def.PrimaryColor
	}
	if c.SecondaryColor == "" {
		c.SecondaryColor = def.SecondaryColor
	}
	if c.Position == "" {
		c.Position = def.Position
	}
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.ChatbotAvatar == "" {
		c.ChatbotAvatar = def.ChatbotAvatar
	}
	if c.UserAvatar == "" {
		c.UserAvatar = def.UserAvatar
	}
	if c.Mood == "" {
		c.Mood = def.Mood
	}
	if c.Width == 0 {
		c.Width = def.Width
	}
	if c.Height == 0 {
		c.Height = def.Height
	}
	if c.BorderRadius == 0 {
		c.BorderRadius = def.BorderRadius
	}
	if c.ZIndex == 0 {
		c.ZIndex = def.ZIndex
	}
	return c
}

// Palette is the theme-derived color set, re-computed on each render.
type Palette struct {
	Background string
	Text       string
	Border     string
	Muted      string
	UserBubble string
	BotBubble  string
}

// Palette resolves the configured theme. Auto currently resolves to dark,
// matching the stock widget's default.
func (c Config) Palette() Palette {
	if c.Theme == ThemeLight {
		return Palette{
			Background: "#FFFFFF",
			Text:       "#111827",
			Border:     "#E5E7EB",
			Muted:      "#6B7280",
			UserBubble: c.SecondaryColor,
			BotBubble:  "#F3F4F6",
		}
	}
	return Palette{
		Background: "#111827",
		Text:       "#FFFFFF",
		Border:     "#374151",
		Muted:      "#9CA3AF",
		UserBubble: c.SecondaryColor,
		BotBubble:  "#374151",
	}
}
