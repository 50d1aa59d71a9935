package inmemory

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
)

func TestStore_SubmitRunningAverage(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	avg, err := store.Submit(ctx, "Es Teh", 5)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if avg != 5.0 {
		t.Errorf("first average = %v, want 5", avg)
	}

	avg, err = store.Submit(ctx, "Es Teh", 3)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if avg != 4.0 {
		t.Errorf("second average = %v, want 4", avg)
	}

	agg, ok, err := store.Get(ctx, "Es Teh")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", agg, ok, err)
	}
	if agg.Total != 8 || agg.Count != 2 {
		t.Errorf("aggregate = %+v, want total 8 count 2", agg)
	}
}

func TestStore_ProductsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, _ = store.Submit(ctx, "Es Teh", 5)
	avg, _ := store.Submit(ctx, "Kopi Susu", 1)
	if avg != 1.0 {
		t.Errorf("Kopi Susu average = %v, want 1", avg)
	}

	if _, ok, _ := store.Get(ctx, "Mie Rebus"); ok {
		t.Error("Get() on unrated product returned ok")
	}

	all, _ := store.All(ctx)
	if len(all) != 2 {
		t.Fatalf("All() returned %d products, want 2", len(all))
	}
	// Returned map is a copy.
	delete(all, "Es Teh")
	if _, ok, _ := store.Get(ctx, "Es Teh"); !ok {
		t.Error("mutating All() result affected the store")
	}
}

func TestStore_RejectsBlankProduct(t *testing.T) {
	store := NewStore()
	_, err := store.Submit(context.Background(), " ", 5)
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Submit(blank) error = %v, want validation error", err)
	}
}

func TestStore_ConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Submit(ctx, "Es Teh", 4)
		}()
	}
	wg.Wait()

	agg, _, _ := store.Get(ctx, "Es Teh")
	if agg.Count != 50 || agg.Total != 200 {
		t.Errorf("aggregate = %+v, want total 200 count 50", agg)
	}
}

// Ratings live only in process memory; a new store starts empty.
func TestStore_NotDurable(t *testing.T) {
	ctx := context.Background()
	first := NewStore()
	_, _ = first.Submit(ctx, "Es Teh", 5)
	_ = first.Close()

	second := NewStore()
	if _, ok, _ := second.Get(ctx, "Es Teh"); ok {
		t.Error("new store should not see ratings from a previous store")
	}
}
