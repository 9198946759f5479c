package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/rachid48133/studygenie/internal/models"
)

// chunk metadata keys
const (
	MetaChunkID = "chunk_id"
	MetaPage    = "page"
	MetaSlide   = "slide"
	MetaCourse  = "course_name"
)

// ExportCourse writes the snapshot as a chromem-go collection file, optionally
// compressed and encrypted (the key must be 32 bytes). Chunks whose embedding
// failed carry a zero vector and are left out. It returns the number of
// exported documents.
func ExportCourse(ctx context.Context, snap *models.Snapshot, collectionName, filePath, encryptionKey string, compress bool) (int, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}
	if collectionName == "" {
		return 0, errors.New("collection name is required")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, map[string]string{MetaCourse: snap.Metadata.CourseName}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create collection: %v", err)
	}

	docs := make([]chromem.Document, 0, len(snap.Chunks))
	for i, c := range snap.Chunks {
		if isZero(snap.Vectors[i]) {
			log.Debug().Int("chunk", c.ID).Msg("Skipping chunk without embedding")
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(c.ID),
			Content:   c.Content,
			Metadata:  chunkMetadata(c),
			Embedding: snap.Vectors[i],
		})
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("%w: no embedded chunks to export", models.ErrEmptyIndex)
	}

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("failed to add documents: %v", err)
	}

	log.Debug().
		Str("collection", collectionName).
		Str("file", filePath).
		Bool("compress", compress).
		Bool("encrypted", encryptionKey != "").
		Int("documents", len(docs)).
		Msg("Exporting collection")
	if err := db.ExportToFile(filePath, compress, encryptionKey, collectionName); err != nil {
		return 0, fmt.Errorf("failed to export database: %v", err)
	}
	return len(docs), nil
}

// FileName returns the export file name for a collection, suffixed the way
// chromem-go names its own exports.
func FileName(collectionName string, compress, encrypted bool) string {
	name := collectionName + ".gob"
	if compress {
		name += ".gz"
	}
	if encrypted {
		name += ".enc"
	}
	return name
}

func chunkMetadata(c models.Chunk) map[string]string {
	meta := map[string]string{MetaChunkID: strconv.Itoa(c.ID)}
	if c.Page != nil {
		meta[MetaPage] = strconv.Itoa(*c.Page)
	}
	if c.Slide != nil {
		meta[MetaSlide] = strconv.Itoa(*c.Slide)
	}
	return meta
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func importCollection(filePath, encryptionKey, collectionName string) (*chromem.Collection, error) {
	db := chromem.NewDB()
	if err := db.ImportFromFile(filePath, encryptionKey, collectionName); err != nil {
		return nil, fmt.Errorf("failed to import database: %v", err)
	}
	c := db.GetCollection(collectionName, nil)
	if c == nil {
		return nil, fmt.Errorf("collection %s not found in %s", collectionName, filePath)
	}
	return c, nil
}

// ImportCount reads an exported file back and returns its document count.
func ImportCount(filePath, encryptionKey, collectionName string) (int, error) {
	c, err := importCollection(filePath, encryptionKey, collectionName)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Search queries an exported collection by embedding, most similar first.
func Search(ctx context.Context, filePath, encryptionKey, collectionName string, query []float32, n int) ([]chromem.Result, error) {
	if len(query) == 0 {
		return nil, errors.New("query embedding is required")
	}
	c, err := importCollection(filePath, encryptionKey, collectionName)
	if err != nil {
		return nil, err
	}
	n = min(n, c.Count())
	if n <= 0 {
		return []chromem.Result{}, nil
	}
	results, err := c.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	return results, nil
}
