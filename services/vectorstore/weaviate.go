// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// chunkThreshold is the content length above which documents are split
// before persistence. Search snippets stay well below this; full article
// bodies do not.
const chunkThreshold = 2000

// WeaviateStore implements Store using a Weaviate instance.
//
// # Description
//
// Documents are written through the batch API with deterministic IDs
// derived from a content hash, so re-persisting the same document is an
// upsert rather than a duplicate. Long content is chunked with a recursive
// character splitter before writing; each chunk carries the parent
// document's metadata.
//
// # Thread Safety
//
// Thread-safe. The Weaviate client handles connection pooling.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore creates a Store backed by Weaviate. Panics if client is
// nil (fail-fast for programming errors).
func NewWeaviateStore(client *weaviate.Client) *WeaviateStore {
	if client == nil {
		panic("NewWeaviateStore: client must not be nil")
	}
	return &WeaviateStore{client: client}
}

// AddDocuments implements the Store interface.
func (s *WeaviateStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkThreshold),
		textsplitter.WithChunkOverlap(100),
	)

	var objects []*models.Object
	for _, doc := range docs {
		chunks := []string{doc.Content}
		if len(doc.Content) > chunkThreshold {
			split, err := splitter.SplitText(doc.Content)
			if err != nil {
				slog.Warn("Failed to split document, storing whole",
					"title", doc.Metadata.Title, "error", err)
			} else if len(split) > 0 {
				chunks = split
			}
		}

		retrievedAt := doc.Metadata.RetrievedAt
		if retrievedAt == 0 {
			retrievedAt = time.Now().UnixMilli()
		}

		for _, chunk := range chunks {
			hash := sha256.Sum256([]byte(chunk + "|" + doc.Metadata.URL))
			docUUID, _ := uuid.FromBytes(hash[:16])

			objects = append(objects, &models.Object{
				Class: EvidenceClassName,
				ID:    strfmt.UUID(docUUID.String()),
				Properties: map[string]interface{}{
					"content":      chunk,
					"title":        doc.Metadata.Title,
					"source_name":  doc.Metadata.SourceName,
					"url":          doc.Metadata.URL,
					"published_at": doc.Metadata.PublishedAt,
					"retrieved_at": retrievedAt,
				},
			})
		}
	}

	batcher := s.client.Batch().ObjectsBatcher()
	batcher.WithObjects(objects...)

	resp, err := batcher.Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch-store evidence: %w", err)
	}

	stored := 0
	failed := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			stored++
			continue
		}
		failed++
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in evidence batch item", "error", errItem.Message)
			}
		}
	}

	slog.Debug("Persisted evidence batch", "stored", stored, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d evidence objects failed to store", failed, stored+failed)
	}
	return nil
}

// evidenceHit mirrors one Evidence object in a GraphQL Get response.
type evidenceHit struct {
	Content     string  `json:"content"`
	Title       string  `json:"title"`
	SourceName  string  `json:"source_name"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"published_at"`
	RetrievedAt float64 `json:"retrieved_at"`
	Additional  struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

// evidenceQueryResponse is the expected structure from Weaviate:
// {"Get": {"Evidence": [...]}}.
type evidenceQueryResponse struct {
	Get struct {
		Evidence []evidenceHit `json:"Evidence"`
	} `json:"Get"`
}

// Nearest implements the Store interface.
func (s *WeaviateStore) Nearest(ctx context.Context, queryText string, k int) ([]StoredDocument, error) {
	if k < 1 {
		return nil, nil
	}

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{queryText})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "source_name"},
		{Name: "url"},
		{Name: "published_at"},
		{Name: "retrieved_at"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(EvidenceClassName).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate nearest query failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate nearest query error: %s", result.Errors[0].Message)
	}

	return parseNearestResult(result.Data)
}

// parseNearestResult extracts stored documents from the raw GraphQL
// response data using the marshal/unmarshal pattern for type conversion.
func parseNearestResult(data map[string]models.JSONObject) ([]StoredDocument, error) {
	rawBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}

	var parsed evidenceQueryResponse
	if err := json.Unmarshal(rawBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	docs := make([]StoredDocument, 0, len(parsed.Get.Evidence))
	for _, hit := range parsed.Get.Evidence {
		docs = append(docs, StoredDocument{
			Content: hit.Content,
			Metadata: Metadata{
				Title:       hit.Title,
				SourceName:  hit.SourceName,
				URL:         hit.URL,
				PublishedAt: hit.PublishedAt,
				RetrievedAt: int64(hit.RetrievedAt),
			},
			Certainty: hit.Additional.Certainty,
		})
	}
	return docs, nil
}

var _ Store = (*WeaviateStore)(nil)
