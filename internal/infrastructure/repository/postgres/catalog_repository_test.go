package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

var itemColumns = []string{
	"id", "name", "description", "cheese_type", "cheese_form", "brand", "location",
	"price_each", "price_per_lb", "lb_per_each", "case_size", "sku", "upc", "image_url", "source_url",
}

func newCatalogRepoWithMock(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CatalogRepository{db: db, listLimit: 20}, mock, func() { _ = db.Close() }
}

func productRow() *sqlmock.Rows {
	return sqlmock.NewRows(itemColumns).AddRow(
		"p1", "Aged Gouda Wheel", "A nutty aged gouda.", "Gouda", "Wheel", "Beemster", "Wisconsin",
		24.99, 12.50, 2.0, "No", "SKU1", "No", "", "https://example.com/p1",
	)
}

func TestTopByPriceOrdersDescendingForSuperlatives(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("ORDER BY price_each DESC").
		WithArgs(5).
		WillReturnRows(productRow())

	items, err := repo.TopByPrice(context.Background(), domain.PriceDescending, 5)
	if err != nil {
		t.Fatalf("TopByPrice() error = %v", err)
	}
	if len(items) != 1 || items[0].Name != "Aged Gouda Wheel" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestByPriceRangeEmptyResultIsNotAnError(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("price_each >=").
		WithArgs(0.0, 10.0, 20).
		WillReturnRows(sqlmock.NewRows(itemColumns))

	items, err := repo.ByPriceRange(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("ByPriceRange() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestByTypeMatchesNameOrType(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("cheese_type ILIKE").
		WithArgs("gouda", 20).
		WillReturnRows(productRow())

	items, err := repo.ByType(context.Background(), "gouda")
	if err != nil {
		t.Fatalf("ByType() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLexicalSearchUsesFullTextRank(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("plainto_tsquery").
		WithArgs("smoked gouda", 20).
		WillReturnRows(productRow())

	items, err := repo.LexicalSearch(context.Background(), "smoked gouda")
	if err != nil {
		t.Fatalf("LexicalSearch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestQueryFailuresMapToBackendUnavailable(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM cheese_products").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ByLocation(context.Background(), "Wisconsin")
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
