package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/agentkb/schema"
	"go.uber.org/zap"
)

// Normalizer reads raw spreadsheet/PDF files and emits clean text records
// with provenance. It has no side effect beyond reading files.
type Normalizer struct {
	fs     afs.Service
	filter *Filter
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the structured logger; skipped files are reported on it.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithFilter sets inclusion/exclusion rules applied while walking locations.
func WithFilter(filter *Filter) Option {
	return func(n *Normalizer) { n.filter = filter }
}

// WithClock overrides the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// New creates a normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		fs:     afs.New(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize extracts SourceDocuments from the file or directory at location.
// Per-file failures are logged as IngestionError and skipped; the batch
// continues. Files are visited in lexical order so output is deterministic.
func (n *Normalizer) Normalize(ctx context.Context, location string, kind schema.SourceKind) ([]schema.SourceDocument, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
	objects, err := n.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", location, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].URL() < objects[j].URL() })

	var docs []schema.SourceDocument
	for _, object := range objects {
		path := url.Path(object.URL())
		if object.IsDir() {
			if url.Equals(path, location) || object.URL() == location {
				continue
			}
			sub, err := n.Normalize(ctx, url.Join(location, object.Name()), kind)
			if err != nil {
				return nil, err
			}
			docs = append(docs, sub...)
			continue
		}
		if n.filter.IsExcluded(path, int(object.Size())) {
			continue
		}
		fileDocs, err := n.normalizeFile(ctx, path, object.URL(), kind)
		if err != nil {
			ingErr := &IngestionError{Location: path, Err: err}
			n.logger.Warn("skipping source file", zap.String("path", path), zap.Error(ingErr))
			continue
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func (n *Normalizer) normalizeFile(ctx context.Context, path, sourceURL string, kind schema.SourceKind) ([]schema.SourceDocument, error) {
	data, err := n.fs.DownloadWithURL(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	extractedAt := n.now()
	switch kind {
	case schema.KindTabular:
		switch ext {
		case ".xlsx", ".xlsm":
			return normalizeExcel(path, data, extractedAt)
		case ".xls":
			return normalizeXLS(path, data, extractedAt)
		}
	case schema.KindNarrative:
		switch ext {
		case ".pdf":
			return normalizePDF(path, data, extractedAt)
		case ".txt", ".md":
			return normalizeText(path, data, extractedAt)
		}
	}
	return nil, fmt.Errorf("unsupported %s extension %q", kind, ext)
}
