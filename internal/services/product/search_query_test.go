package product

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/bazar-api/internal/storage"
)

// parseSearchRequest прогоняет запрос через Fiber и возвращает разобранный фильтр
func parseSearchRequest(t *testing.T, target string) (storage.SearchFilter, storage.SearchOptions, error) {
	t.Helper()

	var (
		filter   storage.SearchFilter
		opts     storage.SearchOptions
		parseErr error
	)

	app := fiber.New()
	app.Get("/search", func(c fiber.Ctx) error {
		filter, opts, parseErr = parseSearchQuery(c)
		return nil
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("ошибка выполнения запроса: %v", err)
	}
	resp.Body.Close()

	return filter, opts, parseErr
}

func TestParseSearchQueryRadiusKm(t *testing.T) {
	filter, _, err := parseSearchRequest(t, "/search?lat=34.7&lon=33.0&radiusKm=5")
	if err != nil {
		t.Fatalf("разбор параметров: %v", err)
	}

	if filter.Coords == nil {
		t.Fatal("координаты должны быть разобраны")
	}
	if filter.RadiusKm == nil || *filter.RadiusKm != 5 {
		t.Error("параметр radiusKm должен ограничивать радиус поиска")
	}
}

func TestParseSearchQueryRadiusAlias(t *testing.T) {
	filter, _, err := parseSearchRequest(t, "/search?lat=34.7&lon=33.0&radius=7")
	if err != nil {
		t.Fatalf("разбор параметров: %v", err)
	}

	if filter.RadiusKm == nil || *filter.RadiusKm != 7 {
		t.Error("прежнее имя параметра radius должно приниматься")
	}
}

func TestParseSearchQueryWithoutRadius(t *testing.T) {
	filter, _, err := parseSearchRequest(t, "/search?lat=34.7&lon=33.0")
	if err != nil {
		t.Fatalf("разбор параметров: %v", err)
	}

	if filter.Coords == nil {
		t.Fatal("координаты должны быть разобраны")
	}
	if filter.RadiusKm != nil {
		t.Error("без параметра радиуса поиск не ограничивается расстоянием")
	}
}

func TestParseSearchQueryInvalidRadius(t *testing.T) {
	for _, target := range []string{
		"/search?lat=34.7&lon=33.0&radiusKm=abc",
		"/search?lat=34.7&lon=33.0&radiusKm=-2",
	} {
		if _, _, err := parseSearchRequest(t, target); err == nil {
			t.Errorf("%s: некорректный радиус должен отклоняться", target)
		}
	}
}

func TestParseSearchQueryGeoNeedsBothCoords(t *testing.T) {
	filter, _, err := parseSearchRequest(t, "/search?lat=34.7&radiusKm=5")
	if err != nil {
		t.Fatalf("разбор параметров: %v", err)
	}

	if filter.Coords != nil || filter.RadiusKm != nil {
		t.Error("гео-режим включается только при обеих координатах")
	}
}

func TestParseSearchQueryFiltersAndPaging(t *testing.T) {
	filter, opts, err := parseSearchRequest(t,
		"/search?keywords=ноутбук&location=Лимасол&condition=used&minPrice=100&maxPrice=500&page=2&limit=10")
	if err != nil {
		t.Fatalf("разбор параметров: %v", err)
	}

	if filter.Keywords != "ноутбук" || filter.City != "Лимасол" || filter.Condition != "used" {
		t.Error("текстовые фильтры должны переноситься как есть")
	}
	if filter.MinPrice == nil || *filter.MinPrice != 100 || filter.MaxPrice == nil || *filter.MaxPrice != 500 {
		t.Error("границы цены должны быть разобраны")
	}
	if opts.Page != 2 || opts.Limit != 10 {
		t.Errorf("пагинация: ожидалось page=2 limit=10, получено page=%d limit=%d", opts.Page, opts.Limit)
	}
}
