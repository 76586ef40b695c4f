package usecase

import "testing"

func TestPatternDetectorDispatchPriority(t *testing.T) {
	detector := newPatternDetector([]string{"cheddar", "gouda", "blue cheese"}, 10)

	cases := []struct {
		name     string
		question string
		want     queryKind
	}{
		{"superlative", "what is the most expensive cheese?", kindSuperlative},
		{"superlative wins over category", "most expensive cheddar you have", kindSuperlative},
		{"bounded price", "show me cheeses under $15", kindPriceBound},
		{"cheap without amount", "any cheap cheese?", kindPriceBound},
		{"location", "cheeses from Wisconsin", kindLocation},
		{"category", "do you carry gouda?", kindCategory},
		{"semantic", "something creamy for a picnic", kindSemantic},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := detector.detect(tc.question)
			if got.kind != tc.want {
				t.Fatalf("detect(%q).kind = %d, want %d", tc.question, got.kind, tc.want)
			}
		})
	}
}

func TestPatternDetectorExtractsPriceBound(t *testing.T) {
	detector := newPatternDetector(nil, 10)

	got := detector.detect("cheeses under $7.50 please")
	if got.kind != kindPriceBound {
		t.Fatalf("expected price-bound dispatch, got %d", got.kind)
	}
	if got.maxPrice != 7.50 {
		t.Fatalf("maxPrice = %v, want 7.50", got.maxPrice)
	}

	got = detector.detect("anything affordable?")
	if got.maxPrice != 10 {
		t.Fatalf("default cap = %v, want 10", got.maxPrice)
	}
}

func TestPatternDetectorExtractsLocation(t *testing.T) {
	detector := newPatternDetector(nil, 10)

	got := detector.detect("what cheeses are from France")
	if got.kind != kindLocation {
		t.Fatalf("expected location dispatch, got %d", got.kind)
	}
	if got.location != "France" {
		t.Fatalf("location = %q, want France", got.location)
	}
}

func TestMatchesStructuredCoversAllStructuredKinds(t *testing.T) {
	detector := newPatternDetector([]string{"brie"}, 10)

	for _, question := range []string{
		"priciest cheese in stock",
		"budget options",
		"cheese from Vermont",
		"got any brie?",
	} {
		if !detector.matchesStructured(question) {
			t.Fatalf("matchesStructured(%q) = false, want true", question)
		}
	}
	if detector.matchesStructured("what pairs well with red wine?") {
		t.Fatal("semantic question should not match structured patterns")
	}
}
