package fluid

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// builtinNames covers ids whose title-cased form reads badly.
var builtinNames = map[ID]string{
	"ic2coolant":        "IC2 Coolant",
	"ic2hotcoolant":     "IC2 Hot Coolant",
	"ic2distilledwater": "Distilled Water",
}

// Names renders display names for fluids. Unknown ids are title-cased in the
// configured language with '_' and '.' read as spaces. A Names value is not
// safe for concurrent use.
type Names struct {
	tag       language.Tag
	caser     cases.Caser
	overrides map[ID]string
}

// NewNames returns a renderer for tag. Overrides take precedence over the
// built-in names.
func NewNames(tag language.Tag, overrides map[ID]string) *Names {
	merged := make(map[ID]string, len(builtinNames)+len(overrides))
	for id, name := range builtinNames {
		merged[id] = name
	}
	for id, name := range overrides {
		merged[id] = name
	}
	return &Names{
		tag:       tag,
		caser:     cases.Title(tag),
		overrides: merged,
	}
}

// Language returns the language names are rendered in.
func (n *Names) Language() language.Tag {
	return n.tag
}

// Name returns the display name of id.
func (n *Names) Name(id ID) string {
	if name, ok := n.overrides[id]; ok {
		return name
	}
	words := strings.NewReplacer("_", " ", ".", " ").Replace(string(id))
	return n.caser.String(words)
}
