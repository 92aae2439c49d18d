package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/agentkb/schema"
)

func TestNormalizer_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	good := buildWorkbook(t, "Sheet1", [][]string{
		{"Policy", "Value"},
		{"Refund Window", "30 days"},
	})
	if err := os.WriteFile(filepath.Join(dir, "a_policies.xlsx"), good, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b_broken.xlsx"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	docs, err := New().Normalize(context.Background(), dir, schema.KindTabular)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, corrupt file must be skipped, got %d", len(docs))
	}
	if docs[0].Text != "Policy: Refund Window\nValue: 30 days" {
		t.Fatalf("unexpected text: %q", docs[0].Text)
	}
}

func TestNormalizer_RecursesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "playbooks")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "refunds.txt"), []byte("Refunds are accepted within 30 days."), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	docs, err := New().Normalize(context.Background(), dir, schema.KindNarrative)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestNormalizer_UnsupportedExtensionSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.docx"), []byte("binary"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	docs, err := New().Normalize(context.Background(), dir, schema.KindNarrative)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestNormalizer_InvalidKind(t *testing.T) {
	if _, err := New().Normalize(context.Background(), t.TempDir(), "audio"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestNormalizer_FilterExcludes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "draft_policies.xlsx"), buildWorkbook(t, "Sheet1", [][]string{
		{"Policy", "Value"},
		{"Draft", "ignore me"},
	}), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	normalizer := New(WithFilter(NewFilter(WithExclusions("draft_"))))
	docs, err := normalizer.Normalize(context.Background(), dir, schema.KindTabular)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("excluded file was ingested")
	}
}
