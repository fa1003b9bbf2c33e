package health_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/SergeyBurlaka/muzei/internal/health"
	"github.com/SergeyBurlaka/muzei/internal/logger"
	"go.uber.org/zap"

	memoryDatabase "github.com/SergeyBurlaka/muzei/internal/database/memory"
	mockDatabase "github.com/SergeyBurlaka/muzei/internal/database/mock"

	memoryCache "github.com/SergeyBurlaka/muzei/internal/cache/memory"
	mockCache "github.com/SergeyBurlaka/muzei/internal/cache/mock"

	mockStorage "github.com/SergeyBurlaka/muzei/internal/storage/mock"

	mockProvider "github.com/SergeyBurlaka/muzei/internal/provider/mock"
)

func TestHealth(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := memoryDatabase.New()
	cache := memoryCache.New()

	checker := &health.Checker{Ctx: ctx, Database: db, Cache: cache, Log: log}
	mockCacheChecker := &health.Checker{Ctx: ctx, Database: db, Cache: &mockCache.Provider{FailGet: true}, Log: log}
	mockStorageChecker := &health.Checker{Ctx: ctx, Database: db, Cache: cache, Storage: &mockStorage.Provider{}, Log: log}
	mockDbChecker := &health.Checker{Ctx: ctx, Database: &mockDatabase.Store{}, Log: log}

	selectedDb := memoryDatabase.New()
	if _, _, err := selectedDb.SelectProvider(ctx, "http://provider.example"); err != nil {
		t.Fatal(err)
	}
	clients := mockProvider.NewFactory()
	clients.Register(mockProvider.New("http://provider.example"))
	providerChecker := &health.Checker{Ctx: ctx, Database: selectedDb, Clients: clients, Log: log}

	unreachable := mockProvider.New("http://gone.example")
	unreachable.Fail("get_load_info")
	unreachableClients := mockProvider.NewFactory()
	unreachableClients.Register(unreachable)
	unreachableDb := memoryDatabase.New()
	if _, _, err := unreachableDb.SelectProvider(ctx, "http://gone.example"); err != nil {
		t.Fatal(err)
	}
	unreachableChecker := &health.Checker{Ctx: ctx, Database: unreachableDb, Clients: unreachableClients, Log: log}

	tests := []struct {
		Name           string
		ExpectedStatus health.Status
		Checker        *health.Checker
	}{
		{
			Name: "runs checks and returns correct status",
			ExpectedStatus: health.Status{
				Healthy:  true,
				Database: "healthy",
				Cache:    "healthy",
			},
			Checker: checker,
		},
		{
			Name: "runs checks and returns correct status with broken cache",
			ExpectedStatus: health.Status{
				Healthy:  false,
				Database: "healthy",
				Cache:    "unhealthy",
			},
			Checker: mockCacheChecker,
		},
		{
			Name: "runs checks and returns correct status with broken storage",
			ExpectedStatus: health.Status{
				Healthy:  false,
				Database: "healthy",
				Cache:    "healthy",
				Storage:  "unhealthy",
			},
			Checker: mockStorageChecker,
		},
		{
			Name: "runs checks and returns correct status with a broken database",
			ExpectedStatus: health.Status{
				Healthy:  false,
				Database: "unhealthy",
			},
			Checker: mockDbChecker,
		},
		{
			Name: "reports provider reachability",
			ExpectedStatus: health.Status{
				Healthy:  true,
				Database: "healthy",
				Provider: "reachable",
			},
			Checker: providerChecker,
		},
		{
			Name: "reports an unreachable provider without going unhealthy",
			ExpectedStatus: health.Status{
				Healthy:  true,
				Database: "healthy",
				Provider: "unreachable",
			},
			Checker: unreachableChecker,
		},
	}

	for _, test := range tests {
		test.Checker.Run()
		status := test.Checker.Status()

		if !reflect.DeepEqual(status, test.ExpectedStatus) {
			t.Errorf("%s: wrong status %+v", test.Name, status)
		}
	}
}
