package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// Document is a scored search hit returned to agents.
type Document struct {
	ID    string
	Score float64
	Text  string
	Meta  map[string]any
}

// VectorStore is the tenant-scoped similarity-search surface. Every call is
// confined to a single tenant namespace; cross-tenant reads are structurally
// impossible because the namespace is derived from the tenant id.
type VectorStore interface {
	Upsert(ctx context.Context, tenantID string, vectors []Vector) error
	Search(ctx context.Context, tenantID string, query []float32, topK int, filter map[string]any) ([]Document, error)
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	nsPrefix  string
}

func NewVectorStore(log *logger.Logger, pc Client) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := envutil.String("PINECONE_INDEX_NAME", "")
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := envutil.String("PINECONE_INDEX_HOST", "")
	nsPrefix := envutil.String("PINECONE_NAMESPACE_PREFIX", "cr")

	// If host missing, bootstrap via describe_index (fine for local/dev; avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		nsPrefix:  nsPrefix,
	}, nil
}

func (s *vectorStore) namespaceFor(tenantID string) string {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = "system"
	}
	return s.nsPrefix + ":" + tenantID
}

func (s *vectorStore) Upsert(ctx context.Context, tenantID string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.namespaceFor(tenantID),
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) Search(ctx context.Context, tenantID string, query []float32, topK int, filter map[string]any) ([]Document, error) {
	if topK <= 0 {
		topK = 5
	}
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.namespaceFor(tenantID),
		Vector:          query,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		text, _ := m.Metadata["text"].(string)
		docs = append(docs, Document{
			ID:    m.ID,
			Score: m.Score,
			Text:  text,
			Meta:  m.Metadata,
		})
	}
	return docs, nil
}
