// Copyright (C) 2025 TruthSpotter
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

import (
	"context"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// EvidenceClassName is the Weaviate class holding researched evidence.
const EvidenceClassName = "Evidence"

// GetEvidenceSchema returns the class definition for researched evidence
// documents.
func GetEvidenceSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       EvidenceClassName,
		Description: "A researched evidence document with source attribution.",
		Vectorizer:  "text2vec-transformers",
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The evidence text (title plus snippet).",
				Tokenization: "word",
			},
			{
				Name:            "title",
				DataType:        []string{"text"},
				Description:     "The document title.",
				Tokenization:    "word",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "source_name",
				DataType:        []string{"text"},
				Description:     "The publishing source (e.g., outlet name or host).",
				Tokenization:    "field",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "url",
				DataType:        []string{"text"},
				Description:     "The canonical URL of the document, if any.",
				Tokenization:    "field",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "published_at",
				DataType:        []string{"text"},
				Description:     "The publication date string as reported by the provider.",
				Tokenization:    "field",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "retrieved_at",
				DataType:        []string{"number"},
				Description:     "Timestamp (Unix ms) of when the document was fetched.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureSchema creates the Evidence class if it does not exist yet.
// Idempotent; safe to call on every startup.
func EnsureSchema(ctx context.Context, client *weaviate.Client) error {
	exists, err := client.Schema().ClassExistenceChecker().
		WithClassName(EvidenceClassName).
		Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		slog.Debug("Evidence schema already present")
		return nil
	}

	slog.Info("Creating Evidence schema in Weaviate")
	return client.Schema().ClassCreator().
		WithClass(GetEvidenceSchema()).
		Do(ctx)
}
