package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "")
	t.Setenv("RETRIEVAL_BUDGET_PRICE_CAP", "")
	t.Setenv("RETRIEVAL_SUPERLATIVE_LIMIT", "")
	t.Setenv("PROMPT_HISTORY_WINDOW", "")
	t.Setenv("ANSWER_TEMPERATURE", "")

	cfg := Load()
	if cfg.RetrievalTopK != 3 {
		t.Fatalf("expected default top k 3, got %d", cfg.RetrievalTopK)
	}
	if cfg.BudgetPriceCap != 10 {
		t.Fatalf("expected default budget cap 10, got %v", cfg.BudgetPriceCap)
	}
	if cfg.SuperlativeLimit != 5 {
		t.Fatalf("expected default superlative limit 5, got %d", cfg.SuperlativeLimit)
	}
	if cfg.HistoryWindow != 6 {
		t.Fatalf("expected default history window 6, got %d", cfg.HistoryWindow)
	}
	if cfg.AnswerTemperature != 0.7 {
		t.Fatalf("expected default answer temperature 0.7, got %v", cfg.AnswerTemperature)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("RETRIEVAL_BUDGET_PRICE_CAP", "25.5")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("QDRANT_COLLECTION", "test_products")

	cfg := Load()
	if cfg.RetrievalTopK != 7 {
		t.Fatalf("expected top k override 7, got %d", cfg.RetrievalTopK)
	}
	if cfg.BudgetPriceCap != 25.5 {
		t.Fatalf("expected budget cap override, got %v", cfg.BudgetPriceCap)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.QdrantCollection != "test_products" {
		t.Fatalf("expected collection override, got %q", cfg.QdrantCollection)
	}
}

func TestLoadFallsBackOnUnparsableNumbers(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "lots")

	cfg := Load()
	if cfg.RetrievalTopK != 3 {
		t.Fatalf("expected fallback top k 3, got %d", cfg.RetrievalTopK)
	}
}

func TestLoadVocabularyFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	content := []byte("categories:\n  - cheddar\n  - manchego\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write vocabulary file: %v", err)
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if len(vocab.Categories) != 2 || vocab.Categories[1] != "manchego" {
		t.Fatalf("unexpected categories: %v", vocab.Categories)
	}
}

func TestLoadVocabularyEmptyPathUsesDefaults(t *testing.T) {
	vocab, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if len(vocab.Categories) == 0 {
		t.Fatal("expected default categories")
	}
}

func TestLoadVocabularyMissingFileErrors(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
