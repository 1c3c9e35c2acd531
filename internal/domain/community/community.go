package community

import (
	"fmt"
	"strings"
)

// Community is a tenant namespace with its own storage prefix, approval set,
// notification target, and public channel alias.
type Community string

const (
	Minawan Community = "minawan"
	Goomer  Community = "goomer"
	Minyan  Community = "minyan"
	Wormpal Community = "wormpal"
)

var ErrUnknownCommunity = fmt.Errorf("unknown community")

// All returns every registered community in stable order. Adding a community
// means adding it here and to the Alias switch.
func All() []Community {
	return []Community{Minawan, Goomer, Minyan, Wormpal}
}

func Parse(value string) (Community, error) {
	c := Community(strings.ToLower(strings.TrimSpace(value)))
	switch c {
	case Minawan, Goomer, Minyan, Wormpal:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommunity, value)
	}
}

// Alias is the public channel name used as the key in the aggregate catalog.
func (c Community) Alias() string {
	switch c {
	case Minawan:
		return "cerbervt"
	case Goomer:
		return "gomi"
	case Minyan:
		return "minikomew"
	case Wormpal:
		return "chrchie"
	default:
		return string(c)
	}
}

// LegacyGallery reports whether the community still publishes the
// pre-approval gallery.json document alongside catalog.json.
func (c Community) LegacyGallery() bool {
	return c == Minawan
}

func (c Community) String() string {
	return string(c)
}
