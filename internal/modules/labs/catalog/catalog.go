package catalog

import (
	"context"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

const UnknownTopic = "Unknown"

// Source yields the concepts of one knowledge graph in a stable order.
type Source interface {
	Load(ctx context.Context) ([]labs.Concept, error)
}

// normalize trims names, drops unnamed concepts and later duplicates of a name.
func normalize(log *logger.Logger, in []labs.Concept) []labs.Concept {
	out := make([]labs.Concept, 0, len(in))
	seen := make(map[string]int, len(in))
	for i, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		c.Definition = strings.TrimSpace(c.Definition)
		c.TopicName = strings.TrimSpace(c.TopicName)
		if c.TopicName == "" {
			c.TopicName = UnknownTopic
		}
		if c.Name == "" {
			if log != nil {
				log.Warn("Dropping concept without a name", "index", i, "topic", c.TopicName)
			}
			continue
		}
		if first, dup := seen[c.Name]; dup {
			if log != nil {
				log.Warn("Dropping duplicate concept", "concept", c.Name, "index", i, "first_index", first)
			}
			continue
		}
		seen[c.Name] = i
		out = append(out, c)
	}
	return out
}

// Find looks a concept up by name, ignoring case and surrounding whitespace.
func Find(concepts []labs.Concept, name string) (labs.Concept, bool) {
	want := strings.TrimSpace(name)
	for _, c := range concepts {
		if c.Name == want {
			return c, true
		}
	}
	for _, c := range concepts {
		if strings.EqualFold(c.Name, want) {
			return c, true
		}
	}
	return labs.Concept{}, false
}

// Limit returns the first n concepts; n <= 0 means all of them.
func Limit(concepts []labs.Concept, n int) []labs.Concept {
	if n <= 0 || n >= len(concepts) {
		return concepts
	}
	return concepts[:n]
}

func topicSlug(topic string) string {
	return strings.ToLower(strings.Join(strings.Fields(topic), "_"))
}
