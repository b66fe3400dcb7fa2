package styles

// Template is a predefined holiday look with its default prompt.
type Template struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
	Icon   string `json:"icon"`
}

var templates = []Template{
	{
		ID:     "santa-suit",
		Label:  "Santa Suit",
		Prompt: "Add a realistic, high-quality Santa Claus suit and hat to this pet. The background should be a festive living room with a Christmas tree and warm lighting.",
		Icon:   "🎅",
	},
	{
		ID:     "elf-costume",
		Label:  "Elf Costume",
		Prompt: "Add a cute green Elf costume and a pointed hat with a bell to this pet. The background should be a cozy Santa workshop filled with wooden toys.",
		Icon:   "🧝",
	},
	{
		ID:     "reindeer-hoodie",
		Label:  "Reindeer Hoodie",
		Prompt: "Add a brown Reindeer hoodie with soft antlers and a red nose to this pet. The background should be a snowy outdoor scene at night with stars.",
		Icon:   "🦌",
	},
	{
		ID:     "cozy-sweater",
		Label:  "Cozy Sweater",
		Prompt: "Dress this pet in a warm, knitted red Christmas sweater with snowflake patterns. The background should be a cozy fireplace with stockings hanging.",
		Icon:   "🧶",
	},
	{
		ID:     "winter-wonderland",
		Label:  "Winter Wonderland",
		Prompt: "Place this pet in a magical winter wonderland. No costume, just surrounding it with deep snow, glowing pine trees, and falling snowflakes.",
		Icon:   "❄️",
	},
	{
		ID:     "gift-box",
		Label:  "Gift Box Surprise",
		Prompt: "Place this pet inside a beautifully decorated open Christmas gift box with ribbons and ornaments around it. Festive bokeh background.",
		Icon:   "🎁",
	},
}

// All returns a copy of the catalogue in display order.
func All() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Get looks up a template by id.
func Get(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
