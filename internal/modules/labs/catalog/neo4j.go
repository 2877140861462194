package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
	"github.com/yungbote/neurobridge-labgen/internal/platform/neo4jdb"
)

const DefaultConceptQuery = `
MATCH (t:Theory)-[:HAS_CONCEPT]->(c:Concept)
RETURN coalesce(t.topic, '') AS topic,
       coalesce(toString(t.id), '') AS topic_id,
       coalesce(c.name, '') AS name,
       coalesce(c.definition, '') AS definition,
       coalesce(c.text_evidence, '') AS text_evidence
ORDER BY topic, name`

type rowReader interface {
	ReadRows(ctx context.Context, query string) ([]map[string]any, error)
}

// Neo4jSource reads concepts from a live knowledge graph.
type Neo4jSource struct {
	reader rowReader
	query  string
	log    *logger.Logger
}

func NewNeo4jSource(log *logger.Logger, client *neo4jdb.Client, query string) *Neo4jSource {
	return newNeo4jSource(log, &driverReader{client: client}, query)
}

func newNeo4jSource(log *logger.Logger, reader rowReader, query string) *Neo4jSource {
	if strings.TrimSpace(query) == "" {
		query = DefaultConceptQuery
	}
	return &Neo4jSource{reader: reader, query: query, log: log.With("service", "CatalogNeo4jSource")}
}

func (s *Neo4jSource) Load(ctx context.Context) ([]labs.Concept, error) {
	rows, err := s.reader.ReadRows(ctx, s.query)
	if err != nil {
		return nil, labs.Configurationf("read concepts from neo4j: %v", err)
	}
	concepts := make([]labs.Concept, 0, len(rows))
	for _, r := range rows {
		topic := stringField(r, "topic")
		if topic == "" {
			topic = UnknownTopic
		}
		topicID := stringField(r, "topic_id")
		if topicID == "" {
			topicID = topicSlug(topic)
		}
		concepts = append(concepts, labs.Concept{
			Name:         stringField(r, "name"),
			Definition:   stringField(r, "definition"),
			TopicName:    topic,
			TopicID:      topicID,
			TextEvidence: stringField(r, "text_evidence"),
		})
	}
	out := normalize(s.log, concepts)
	s.log.Info("Catalog loaded from neo4j", "concepts", len(out), "dropped", len(concepts)-len(out))
	return out, nil
}

func stringField(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

type driverReader struct {
	client *neo4jdb.Client
}

func (d *driverReader) ReadRows(ctx context.Context, query string) ([]map[string]any, error) {
	if d.client == nil || d.client.Driver == nil {
		return nil, fmt.Errorf("neo4j client not initialized")
	}
	session := d.client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(rec.Keys))
			for i, k := range rec.Keys {
				if i < len(rec.Values) {
					row[k] = rec.Values[i]
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]map[string]any)
	return rows, nil
}
