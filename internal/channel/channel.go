// Package channel loads the ordered, read-only list of channel descriptors.
package channel

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/pkg/utils"
)

// ErrInvalidDescriptor is returned for a malformed channel file. It is fatal:
// the service does not start with a bad channel list.
var ErrInvalidDescriptor = errors.New("invalid channel descriptor")

type fileEntry struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	Source    string `mapstructure:"source"`
	Extractor string `mapstructure:"extractor"`
}

type file struct {
	GroupTitle  string      `mapstructure:"group_title"`
	BaseURL     string      `mapstructure:"base_url"`
	MaxChannels int         `mapstructure:"max_channels"`
	Channels    []fileEntry `mapstructure:"channels"`
}

// Store is the immutable descriptor list of one process lifetime.
type Store struct {
	groupTitle  string
	descriptors []entity.ChannelDescriptor
}

// Load reads a channel file (YAML, JSON or TOML, by extension) and validates
// every entry. knownExtractor reports whether an extractor tag is valid; nil
// accepts any tag.
func Load(path string, knownExtractor func(string) bool) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidDescriptor, path, err)
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidDescriptor, path, err)
	}
	return build(f, knownExtractor)
}

func build(f file, knownExtractor func(string) bool) (*Store, error) {
	var base *url.URL
	if f.BaseURL != "" {
		u, err := url.Parse(f.BaseURL)
		if err != nil || !utils.IsHTTPURL(f.BaseURL) {
			return nil, fmt.Errorf("%w: base_url %q is not an absolute http(s) URL", ErrInvalidDescriptor, f.BaseURL)
		}
		base = u
	}

	entries := f.Channels
	if f.MaxChannels > 0 && len(entries) > f.MaxChannels {
		entries = entries[:f.MaxChannels]
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no channels defined", ErrInvalidDescriptor)
	}

	seen := make(map[string]int, len(entries))
	descriptors := make([]entity.ChannelDescriptor, 0, len(entries))
	for i, e := range entries {
		d, err := toDescriptor(e, base, knownExtractor)
		if err != nil {
			return nil, fmt.Errorf("%w: channel #%d: %v", ErrInvalidDescriptor, i+1, err)
		}
		if prev, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: channel #%d: id %q already used by channel #%d", ErrInvalidDescriptor, i+1, d.ID, prev)
		}
		seen[d.ID] = i + 1
		descriptors = append(descriptors, d)
	}

	return &Store{
		groupTitle:  strings.TrimSpace(f.GroupTitle),
		descriptors: descriptors,
	}, nil
}

func toDescriptor(e fileEntry, base *url.URL, knownExtractor func(string) bool) (entity.ChannelDescriptor, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return entity.ChannelDescriptor{}, errors.New("name is required")
	}
	if strings.ContainsAny(name, ",\n\r") {
		return entity.ChannelDescriptor{}, fmt.Errorf("name %q must not contain commas or line breaks", name)
	}

	// The id defaults to the name so simple files can omit it.
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = name
	}

	source := strings.TrimSpace(e.Source)
	if source == "" {
		return entity.ChannelDescriptor{}, fmt.Errorf("%s: source is required", id)
	}
	if !utils.IsHTTPURL(source) {
		if base == nil {
			return entity.ChannelDescriptor{}, fmt.Errorf("%s: source %q is relative and no base_url is set", id, source)
		}
		abs, err := utils.ToAbsoluteURL(base, source)
		if err != nil {
			return entity.ChannelDescriptor{}, fmt.Errorf("%s: source %q: %v", id, source, err)
		}
		source = abs
	}

	extractor := strings.TrimSpace(e.Extractor)
	if extractor != "" && knownExtractor != nil && !knownExtractor(extractor) {
		return entity.ChannelDescriptor{}, fmt.Errorf("%s: unknown extractor %q", id, extractor)
	}

	return entity.ChannelDescriptor{
		ID:        id,
		Name:      name,
		SourceURL: source,
		Extractor: extractor,
	}, nil
}

// GroupTitle is the playlist group configured for the channels.
func (s *Store) GroupTitle() string {
	return s.groupTitle
}

// All returns the descriptors in configured order. The slice is a copy.
func (s *Store) All() []entity.ChannelDescriptor {
	out := make([]entity.ChannelDescriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

// Len returns the number of descriptors.
func (s *Store) Len() int {
	return len(s.descriptors)
}
