package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"smartBidFloor/business/floors"
	"smartBidFloor/business/model"
)

// Document is the on-disk form of a model bundle. Model holds an XGBoost
// JSON model inline; ModelFile points to one relative to the document.
type Document struct {
	Kind          floors.Variant        `json:"kind,omitempty"`
	Epsilon       *float64              `json:"epsilon,omitempty"`
	ValueReplacer *floors.ValueReplacer `json:"valueReplacer,omitempty"`
	Features      *floors.Features      `json:"features,omitempty"`
	Model         json.RawMessage       `json:"model,omitempty"`
	ModelFile     string                `json:"modelFile,omitempty"`
	Nearest       *floors.NearestConfig `json:"nearest,omitempty"`
}

// FileStore keeps one document per key under Dir/<customer>/<app>/<model>.json.
type FileStore struct {
	Dir string
}

var _ floors.ArtifactRepository = (*FileStore)(nil)

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key floors.ModelKey) (string, error) {
	for _, part := range []string{key.CustomerID, key.AppID, key.ModelID} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("invalid model key %q", key.String())
		}
	}
	return filepath.Join(s.Dir, key.CustomerID, key.AppID, key.ModelID+".json"), nil
}

func (s *FileStore) LoadArtifact(ctx context.Context, key floors.ModelKey) (floors.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return floors.Artifact{}, fmt.Errorf("context error: %w", err)
	}

	p, err := s.path(key)
	if err != nil {
		return floors.Artifact{}, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return floors.Artifact{}, fmt.Errorf("%w: %s", floors.ErrModelNotFound, key)
	}
	if err != nil {
		return floors.Artifact{}, fmt.Errorf("failed to read artifact: %w", err)
	}

	a, err := Decode(b, filepath.Dir(p))
	if err != nil {
		return floors.Artifact{}, fmt.Errorf("artifact %s: %w", key, err)
	}
	return a, nil
}

// Decode builds an artifact from a document. A relative ModelFile is
// resolved against baseDir.
func Decode(b []byte, baseDir string) (floors.Artifact, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return floors.Artifact{}, fmt.Errorf("failed to decode artifact: %w", err)
	}

	a := floors.Artifact{
		Kind:          doc.Kind,
		Epsilon:       doc.Epsilon,
		ValueReplacer: doc.ValueReplacer,
		Features:      doc.Features,
		Nearest:       doc.Nearest,
	}
	if a.ValueReplacer == nil {
		a.ValueReplacer = floors.NewValueReplacer(nil, floors.DefaultCategory)
	}

	raw := bytes.TrimSpace(doc.Model)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = nil
	}
	if raw == nil && doc.ModelFile != "" {
		p := doc.ModelFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		mb, err := os.ReadFile(p)
		if err != nil {
			return floors.Artifact{}, fmt.Errorf("failed to read model file: %w", err)
		}
		raw = mb
	}
	if raw != nil {
		m, err := model.ParseXGBoostJSON(raw)
		if err != nil {
			return floors.Artifact{}, fmt.Errorf("%w: %v", floors.ErrModelExpected, err)
		}
		if names := m.FeatureNames(); len(names) > 0 && a.Features != nil && !sameNames(names, a.Features.Names()) {
			return floors.Artifact{}, fmt.Errorf("%w: model features %v, schema %v", floors.ErrModelExpected, names, a.Features.Names())
		}
		a.Model = m
	}

	if _, err := a.Variant(); err != nil {
		return floors.Artifact{}, err
	}
	return a, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Encode renders an artifact without a trained model. Trained models are
// produced by the training pipeline and referenced through ModelFile.
func Encode(a floors.Artifact) (Document, error) {
	if a.Model != nil {
		return Document{}, errors.New("trained models cannot be re-encoded")
	}
	return Document{
		Kind:          a.Kind,
		Epsilon:       a.Epsilon,
		ValueReplacer: a.ValueReplacer,
		Features:      a.Features,
		Nearest:       a.Nearest,
	}, nil
}

// Save writes doc for key, replacing any previous document.
func (s *FileStore) Save(ctx context.Context, key floors.ModelKey, doc Document) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Keys lists every stored document whose path matches the store layout.
func (s *FileStore) Keys(ctx context.Context) ([]floors.ModelKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var keys []floors.ModelKey
	err := filepath.WalkDir(s.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(s.Dir, p)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		keys = append(keys, floors.ModelKey{
			CustomerID: parts[0],
			AppID:      parts[1],
			ModelID:    strings.TrimSuffix(parts[2], ".json"),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}
