package catalog

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

type exportDoc struct {
	Theories []exportTheory `json:"theories"`
}

type exportTheory struct {
	ID       json.RawMessage `json:"id"`
	TopicID  string          `json:"topic_id"`
	Topic    string          `json:"topic"`
	Concepts []exportConcept `json:"concepts"`
}

type exportConcept struct {
	Name         string `json:"name"`
	Definition   string `json:"definition"`
	TextEvidence string `json:"text_evidence"`
}

// FileSource reads a knowledge-graph export: {"theories":[{"topic", "concepts":[...]}]}.
type FileSource struct {
	Path string
	log  *logger.Logger
}

func NewFileSource(log *logger.Logger, path string) *FileSource {
	return &FileSource{Path: path, log: log.With("service", "CatalogFileSource")}
}

func (s *FileSource) Load(ctx context.Context) ([]labs.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, labs.Configurationf("read catalog %s: %v", s.Path, err)
	}
	concepts, err := decodeExport(b)
	if err != nil {
		return nil, labs.Configurationf("parse catalog %s: %v", s.Path, err)
	}
	out := normalize(s.log, concepts)
	s.log.Info("Catalog loaded", "path", s.Path, "concepts", len(out), "dropped", len(concepts)-len(out))
	return out, nil
}

func decodeExport(b []byte) ([]labs.Concept, error) {
	var doc exportDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	var out []labs.Concept
	for _, th := range doc.Theories {
		topic := strings.TrimSpace(th.Topic)
		if topic == "" {
			topic = UnknownTopic
		}
		topicID := strings.TrimSpace(th.TopicID)
		if topicID == "" {
			topicID = rawID(th.ID)
		}
		if topicID == "" {
			topicID = topicSlug(topic)
		}
		for _, c := range th.Concepts {
			out = append(out, labs.Concept{
				Name:         c.Name,
				Definition:   c.Definition,
				TopicName:    topic,
				TopicID:      topicID,
				TextEvidence: c.TextEvidence,
			})
		}
	}
	return out, nil
}

// rawID accepts string or numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}
