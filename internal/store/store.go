// Package store persists one snapshot per indexed course on local disk.
package store

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rachid48133/studygenie/internal/models"
)

const snapshotFile = "snapshot.gob"

// Store keeps course snapshots under <root>/users/<user>/courses/<course>/.
type Store struct {
	root  string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(root string) *Store {
	return &Store{root: root, locks: make(map[string]*sync.Mutex)}
}

// storedChunk is the on-disk form of models.Chunk. gob drops zero values
// behind pointers, so attribution is kept as a number plus a flag.
type storedChunk struct {
	ID       int
	Content  string
	Page     int
	HasPage  bool
	Slide    int
	HasSlide bool
	Length   int
}

type storedSnapshot struct {
	Version  int
	Vectors  [][]float32
	Chunks   []storedChunk
	Metadata models.CourseMetadata
}

func encodeSnapshot(snap *models.Snapshot) *storedSnapshot {
	out := &storedSnapshot{
		Version:  snap.Version,
		Vectors:  snap.Vectors,
		Chunks:   make([]storedChunk, len(snap.Chunks)),
		Metadata: snap.Metadata,
	}
	for i, c := range snap.Chunks {
		sc := storedChunk{ID: c.ID, Content: c.Content, Length: c.Length}
		if c.Page != nil {
			sc.Page, sc.HasPage = *c.Page, true
		}
		if c.Slide != nil {
			sc.Slide, sc.HasSlide = *c.Slide, true
		}
		out.Chunks[i] = sc
	}
	return out
}

func decodeSnapshot(in *storedSnapshot) *models.Snapshot {
	snap := &models.Snapshot{
		Version:  in.Version,
		Vectors:  in.Vectors,
		Chunks:   make([]models.Chunk, len(in.Chunks)),
		Metadata: in.Metadata,
	}
	for i, sc := range in.Chunks {
		c := models.Chunk{ID: sc.ID, Content: sc.Content, Length: sc.Length}
		if sc.HasPage {
			page := sc.Page
			c.Page = &page
		}
		if sc.HasSlide {
			slide := sc.Slide
			c.Slide = &slide
		}
		snap.Chunks[i] = c
	}
	return snap
}

// validID rejects ids that would leave the course directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

func (s *Store) courseDir(userID, courseID string) (string, error) {
	if !validID(userID) || !validID(courseID) {
		return "", fmt.Errorf("%w: user %q course %q", models.ErrInvalidID, userID, courseID)
	}
	return filepath.Join(s.root, "users", userID, "courses", courseID), nil
}

func (s *Store) lock(userID, courseID string) *sync.Mutex {
	key := userID + "/" + courseID
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Persist replaces the course snapshot. The new file is written beside the
// old one and renamed over it, so readers never see a partial snapshot.
func (s *Store) Persist(userID, courseID string, snap *models.Snapshot) error {
	dir, err := s.courseDir(userID, courseID)
	if err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("refusing to persist snapshot: %w", err)
	}
	snap.Version = models.SnapshotVersion

	l := s.lock(userID, courseID)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create course directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, snapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := gob.NewEncoder(tmp).Encode(encodeSnapshot(snap)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, snapshotFile)); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	log.Debug().
		Str("user_id", userID).
		Str("course_id", courseID).
		Int("chunks", len(snap.Chunks)).
		Msg("Snapshot persisted")
	return nil
}

// Load reads the course snapshot, or returns models.ErrNotFound.
func (s *Store) Load(userID, courseID string) (*models.Snapshot, error) {
	dir, err := s.courseDir(userID, courseID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, snapshotFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: user %s course %s", models.ErrNotFound, userID, courseID)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var stored storedSnapshot
	if err := gob.NewDecoder(f).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if stored.Version != models.SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", stored.Version)
	}
	snap := decodeSnapshot(&stored)
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) LoadMetadata(userID, courseID string) (*models.CourseMetadata, error) {
	snap, err := s.Load(userID, courseID)
	if err != nil {
		return nil, err
	}
	return &snap.Metadata, nil
}

// Delete removes the course directory. Deleting a missing course is not an error.
func (s *Store) Delete(userID, courseID string) error {
	dir, err := s.courseDir(userID, courseID)
	if err != nil {
		return err
	}
	l := s.lock(userID, courseID)
	l.Lock()
	defer l.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	return nil
}
