//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fastcopy/printshop/internal/checkout/adapters/postgres"
	"github.com/fastcopy/printshop/internal/checkout/domain"
	"github.com/fastcopy/printshop/internal/checkout/ports"
	"github.com/fastcopy/printshop/internal/database"
	"github.com/fastcopy/printshop/internal/delivery"
	"github.com/fastcopy/printshop/internal/pricing"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	projectRoot := findProjectRoot(t)
	migrationsPath := filepath.Join(projectRoot, "migrations")

	if err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func draftOrder(userID, batchToken, gatewayOrderID string) domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.Order{
		UserID:            userID,
		Service:           pricing.ServicePrinting,
		Mode:              pricing.ModeBW,
		Sides:             pricing.SidesSingle,
		Pages:             10,
		Copies:            2,
		TotalAmount:       decimal.NewFromInt(20),
		DiscountAmount:    decimal.Zero,
		PaymentStatus:     domain.PaymentPending,
		FulfillmentStatus: domain.FulfillmentPending,
		BatchToken:        batchToken,
		GatewayOrderID:    gatewayOrderID,
		StagedPath:        "staging/abc.pdf",
		EstimatedDelivery: delivery.DateOf(now.AddDate(0, 0, 1)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestOrderRepositoryCreateDraftAndAssignCode(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewOrderRepository(pool)
	ctx := context.Background()

	id, err := repo.CreateDraft(ctx, draftOrder("user-1", "CART_t1", "gw-1"))
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a nonzero id")
	}

	code, err := repo.AssignCode(ctx, id)
	if err != nil {
		t.Fatalf("failed to assign code: %v", err)
	}
	if code != domain.FormatCode(id) {
		t.Errorf("expected code %s, got %s", domain.FormatCode(id), code)
	}

	// Assigning again must return the same code.
	again, err := repo.AssignCode(ctx, id)
	if err != nil {
		t.Fatalf("failed to re-assign code: %v", err)
	}
	if again != code {
		t.Errorf("expected idempotent code %s, got %s", code, again)
	}

	retrieved, err := repo.GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("failed to retrieve order by code: %v", err)
	}
	if retrieved.ID != id {
		t.Errorf("expected id %d, got %d", id, retrieved.ID)
	}
	if !retrieved.TotalAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected total 20, got %s", retrieved.TotalAmount)
	}
}

func TestOrderRepositoryGetByID_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewOrderRepository(pool)

	_, err := repo.GetByID(context.Background(), 424242)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderRepositoryListByGatewayOrderID(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewOrderRepository(pool)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.CreateDraft(ctx, draftOrder("user-1", "CART_t2", "gw-2"))
		if err != nil {
			t.Fatalf("failed to create draft: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := repo.CreateDraft(ctx, draftOrder("user-2", "CART_t3", "gw-other")); err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}

	orders, err := repo.ListByGatewayOrderID(ctx, "gw-2")
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}

	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	for i, order := range orders {
		if order.ID != ids[i] {
			t.Errorf("expected creation order %v, got %d at %d", ids, order.ID, i)
		}
	}
}

func TestOrderRepositorySetPaymentOutcome(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewOrderRepository(pool)
	ctx := context.Background()

	id, err := repo.CreateDraft(ctx, draftOrder("user-1", "CART_t4", "gw-4"))
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}

	err = repo.SetPaymentOutcome(ctx, id, ports.PaymentOutcome{
		Payment:     domain.PaymentSuccess,
		Fulfillment: domain.FulfillmentPending,
		FilePath:    "orders/FC000001.pdf",
	})
	if err != nil {
		t.Fatalf("failed to set outcome: %v", err)
	}

	updated, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to retrieve order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentSuccess {
		t.Errorf("expected payment success, got %s", updated.PaymentStatus)
	}
	if updated.FilePath != "orders/FC000001.pdf" {
		t.Errorf("unexpected file path %s", updated.FilePath)
	}
}

func TestOrderRepositoryListStalePendingGatewayIDs(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewOrderRepository(pool)
	ctx := context.Background()

	old := draftOrder("user-1", "CART_t5", "gw-stale")
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if _, err := repo.CreateDraft(ctx, old); err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}
	if _, err := repo.CreateDraft(ctx, old); err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}
	if _, err := repo.CreateDraft(ctx, draftOrder("user-1", "CART_t6", "gw-fresh")); err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}

	ids, err := repo.ListStalePendingGatewayIDs(ctx, time.Now().UTC().Add(-10*time.Minute), 10)
	if err != nil {
		t.Fatalf("failed to list stale ids: %v", err)
	}

	if len(ids) != 1 || ids[0] != "gw-stale" {
		t.Errorf("expected [gw-stale], got %v", ids)
	}
}

func TestStagingStoreCartAndSnapshots(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStagingStore(pool)
	ctx := context.Background()

	item := domain.StagedItem{
		UserID:    "user-1",
		Service:   pricing.ServicePrinting,
		Mode:      pricing.ModeBW,
		Sides:     pricing.SidesSingle,
		Pages:     12,
		Copies:    1,
		FilePath:  "staging/a.pdf",
		UnitPrice: decimal.NewFromInt(12),
	}

	first, err := store.Add(ctx, item)
	if err != nil {
		t.Fatalf("failed to add cart item: %v", err)
	}
	second, err := store.Add(ctx, item)
	if err != nil {
		t.Fatalf("failed to add cart item: %v", err)
	}
	snap, err := store.AddSnapshot(ctx, item, "DIRECT_t1")
	if err != nil {
		t.Fatalf("failed to add snapshot item: %v", err)
	}

	t.Run("cart excludes snapshots", func(t *testing.T) {
		cart, err := store.ListCart(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to list cart: %v", err)
		}
		if len(cart) != 2 {
			t.Fatalf("expected 2 cart items, got %d", len(cart))
		}
		if cart[0].ID != first.ID || cart[1].ID != second.ID {
			t.Errorf("expected creation order [%d %d], got [%d %d]", first.ID, second.ID, cart[0].ID, cart[1].ID)
		}
	})

	t.Run("snapshot lists its own items", func(t *testing.T) {
		items, err := store.ListSnapshot(ctx, "DIRECT_t1")
		if err != nil {
			t.Fatalf("failed to list snapshot: %v", err)
		}
		if len(items) != 1 || items[0].ID != snap.ID {
			t.Errorf("expected [%d], got %v", snap.ID, items)
		}
	})

	t.Run("release moves snapshot back into cart", func(t *testing.T) {
		if err := store.ReleaseSnapshot(ctx, "DIRECT_t1"); err != nil {
			t.Fatalf("failed to release snapshot: %v", err)
		}
		cart, err := store.ListCart(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to list cart: %v", err)
		}
		if len(cart) != 3 {
			t.Errorf("expected 3 cart items after release, got %d", len(cart))
		}
	})

	t.Run("clear cart leaves nothing", func(t *testing.T) {
		if err := store.ClearCart(ctx, "user-1"); err != nil {
			t.Fatalf("failed to clear cart: %v", err)
		}
		cart, err := store.ListCart(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to list cart: %v", err)
		}
		if len(cart) != 0 {
			t.Errorf("expected empty cart, got %d items", len(cart))
		}
	})
}

func TestBatchRepositorySingleActiveBatch(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewBatchRepository(pool)
	ctx := context.Background()

	firstToken := domain.MintToken(domain.OriginCart)
	err := repo.Create(ctx, domain.OrderBatch{
		Token:  firstToken,
		Origin: domain.BatchOrigin{Kind: domain.OriginCart},
		UserID: "user-1",
		Active: true,
	})
	if err != nil {
		t.Fatalf("failed to create batch: %v", err)
	}

	secondToken := domain.MintToken(domain.OriginDirect)
	err = repo.Create(ctx, domain.OrderBatch{
		Token:  secondToken,
		Origin: domain.BatchOrigin{Kind: domain.OriginDirect, ItemID: 7},
		UserID: "user-1",
		Active: true,
	})
	if err != nil {
		t.Fatalf("failed to create second batch: %v", err)
	}

	active, err := repo.GetActiveByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to get active batch: %v", err)
	}
	if active.Token != secondToken {
		t.Errorf("expected active batch %s, got %s", secondToken, active.Token)
	}
	if active.Origin.Kind != domain.OriginDirect || active.Origin.ItemID != 7 {
		t.Errorf("unexpected origin %+v", active.Origin)
	}

	old, err := repo.GetByToken(ctx, firstToken)
	if err != nil {
		t.Fatalf("failed to get first batch: %v", err)
	}
	if old.Active {
		t.Error("expected first batch to be deactivated")
	}
}

func TestBatchRepositoryGatewayLookup(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewBatchRepository(pool)
	ctx := context.Background()

	token := domain.MintToken(domain.OriginCart)
	err := repo.Create(ctx, domain.OrderBatch{
		Token:  token,
		Origin: domain.BatchOrigin{Kind: domain.OriginCart},
		UserID: "user-1",
		Active: true,
	})
	if err != nil {
		t.Fatalf("failed to create batch: %v", err)
	}

	gatewayID := domain.MintGatewayOrderID(token)
	if err := repo.SetGatewayOrderID(ctx, token, gatewayID); err != nil {
		t.Fatalf("failed to set gateway id: %v", err)
	}

	found, err := repo.GetByGatewayOrderID(ctx, gatewayID)
	if err != nil {
		t.Fatalf("failed to get batch by gateway id: %v", err)
	}
	if found.Token != token {
		t.Errorf("expected token %s, got %s", token, found.Token)
	}
}

func TestRateRepositoryRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewRateRepository(pool)
	ctx := context.Background()

	table := pricing.Table{
		Version: 1,
		Regular: pricing.RateCard{
			PerPageSingle: decimal.NewFromFloat(1.5),
			PerPageDouble: decimal.NewFromInt(1),
		},
		Dealer: pricing.RateCard{
			PerPageSingle: decimal.NewFromInt(1),
		},
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Save(ctx, table); err != nil {
		t.Fatalf("failed to save rate sheet: %v", err)
	}

	active, err := repo.Active(ctx)
	if err != nil {
		t.Fatalf("failed to load rate sheet: %v", err)
	}
	if active.Version != 1 {
		t.Errorf("expected version 1, got %d", active.Version)
	}
	if !active.Regular.PerPageSingle.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("expected regular single rate 1.5, got %s", active.Regular.PerPageSingle)
	}
}

func TestCouponRepositoryIncrementUsage(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCouponRepository(pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO coupons (code, percent, active, valid_from, valid_until, min_amount, usage_limit, used_count)
		VALUES ('SAVE10', 10, TRUE, now() - interval '1 day', now() + interval '1 day', 100, 5, 0)
	`)
	if err != nil {
		t.Fatalf("failed to seed coupon: %v", err)
	}

	if err := repo.IncrementUsage(ctx, "SAVE10"); err != nil {
		t.Fatalf("failed to increment usage: %v", err)
	}

	c, err := repo.GetByCode(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("failed to get coupon: %v", err)
	}
	if c.UsedCount != 1 {
		t.Errorf("expected used count 1, got %d", c.UsedCount)
	}
	if !c.Percent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected percent 10, got %s", c.Percent)
	}
}

func TestTransactorRollsBackOnError(t *testing.T) {
	pool := setupTestDB(t)
	orders := postgres.NewOrderRepository(pool)
	tx := database.NewTransactor(pool)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := orders.CreateDraft(ctx, draftOrder("user-1", "CART_tx", "gw-tx")); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	listed, err := orders.ListByGatewayOrderID(ctx, "gw-tx")
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected rollback to discard the draft, got %d rows", len(listed))
	}
}
