package favorites

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/dvloznov/warmindo-recommender/internal/jobs"
	"github.com/dvloznov/warmindo-recommender/internal/storage/local"
)

// Rows are deliberately out of id order: the last row does not carry the maximum.
const salesCSV = `id,invoice_id,tanggal,customer_id,nama_produk,jenis_produk,kategori_produk,quantity,harga_jual,jenis_pembayaran,jenis_pesanan,nilai_penjualan
1,1,10/01/22,101,Nasi Goreng,Nasi,makanan,2,12000,CASH,Dine In,24000
10,10,10/02/22,102,es teh,Minuman,minuman,1,4000,CASH,Dine In,4000
2,2,10/01/22,103,Kopi Susu,Minuman,minuman,1,8000,QRIS,Take Away,8000
`

var fixedNow = time.Date(2026, 3, 7, 15, 4, 5, 0, time.Local)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*jobs.RefreshSimilarityJob
	err  error
}

func (p *recordingPublisher) PublishRefresh(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newLocalRepository(t *testing.T) (*dataset.Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Penjualan warmindo.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))

	repo := dataset.NewRepository(local.NewStore(path))
	require.NoError(t, repo.Load(context.Background()))
	return repo, path
}

func newService(repo Dataset, pub jobs.Publisher) *Service {
	opts := []Option{WithClock(func() time.Time { return fixedNow })}
	if pub != nil {
		opts = append(opts, WithPublisher(pub))
	}
	return NewService(repo, zerolog.Nop(), opts...)
}

func TestNormalizeQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"2", 2},
		{" 7 ", 7},
		{"", 1},
		{"0", 1},
		{"-3", 1},
		{"abc", 1},
		{"2.5", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuantity(tt.raw), "raw %q", tt.raw)
	}
}

func TestAppendFavorite(t *testing.T) {
	repo, _ := newLocalRepository(t)
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	rec, err := svc.AppendFavorite(context.Background(), "Es Teh", "Minuman", "2")
	require.NoError(t, err)

	// Max id and invoice are 10 even though the last row holds 2.
	assert.Equal(t, int64(11), rec.ID)
	assert.Equal(t, int64(11), rec.InvoiceID)
	assert.Equal(t, civil.Date{Year: 2026, Month: 3, Day: 7}, rec.Date)
	assert.Equal(t, domain.FavoriteCustomerID, rec.CustomerID)
	assert.Equal(t, "Es Teh", rec.ProductName)
	assert.Equal(t, "Minuman", rec.ProductType)
	assert.Equal(t, "minuman", rec.ProductCategory)
	assert.Equal(t, int64(2), rec.Quantity)
	assert.True(t, decimal.NewFromInt(4000).Equal(rec.UnitPrice))
	assert.True(t, decimal.NewFromInt(8000).Equal(rec.SaleValue))
	assert.Equal(t, domain.FavoritePaymentType, rec.PaymentType)
	assert.Equal(t, domain.FavoriteOrderType, rec.OrderType)

	assert.Equal(t, 4, repo.Len())
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, jobs.ReasonFavoriteAppended, pub.jobs[0].Reason)
	assert.Equal(t, int64(11), pub.jobs[0].RecordID)
}

func TestAppendFavorite_RoundTrip(t *testing.T) {
	repo, path := newLocalRepository(t)
	svc := newService(repo, nil)

	rec, err := svc.AppendFavorite(context.Background(), "kopi susu", "Minuman", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Quantity)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "11,11,03/07/26,9999,Kopi Susu,Minuman,minuman,1,8000,FAVORIT,Favorit,8000", lines[len(lines)-1])

	reloaded := dataset.NewRepository(local.NewStore(path))
	require.NoError(t, reloaded.Load(context.Background()))
	records := reloaded.Records()
	require.Len(t, records, 4)

	last := records[len(records)-1]
	assert.Equal(t, rec.ID, last.ID)
	assert.Equal(t, rec.InvoiceID, last.InvoiceID)
	assert.Equal(t, rec.Date, last.Date)
	assert.Equal(t, rec.CustomerID, last.CustomerID)
	assert.Equal(t, rec.ProductName, last.ProductName)
	assert.Equal(t, rec.ProductType, last.ProductType)
	assert.Equal(t, rec.ProductCategory, last.ProductCategory)
	assert.Equal(t, rec.Quantity, last.Quantity)
	assert.True(t, rec.UnitPrice.Equal(last.UnitPrice))
	assert.True(t, rec.SaleValue.Equal(last.SaleValue))
	assert.Equal(t, rec.PaymentType, last.PaymentType)
	assert.Equal(t, rec.OrderType, last.OrderType)
}

func TestAppendFavorite_MissingFieldsDoNotMutate(t *testing.T) {
	repo, path := newLocalRepository(t)
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	for _, tc := range []struct{ product, category string }{
		{"", "Minuman"},
		{"Es Teh", ""},
		{"  ", "  "},
	} {
		_, err := svc.AppendFavorite(context.Background(), tc.product, tc.category, "1")
		assert.True(t, apperrors.Is(err, apperrors.ErrValidation), "product %q category %q: %v", tc.product, tc.category, err)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, salesCSV, string(raw))
	assert.Equal(t, 3, repo.Len())
	assert.Empty(t, pub.jobs)
}

func TestAppendFavorite_UnknownProduct(t *testing.T) {
	repo, _ := newLocalRepository(t)
	svc := newService(repo, nil)

	_, err := svc.AppendFavorite(context.Background(), "Rendang", "Lauk", "1")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, 3, repo.Len())
}

type failingDataset struct {
	Dataset
}

func (failingDataset) Append(ctx context.Context, rec domain.TransactionRecord) error {
	return apperrors.Persistence("append record", errors.New("disk full"))
}

func TestAppendFavorite_PersistenceFailure(t *testing.T) {
	repo, _ := newLocalRepository(t)
	pub := &recordingPublisher{}
	svc := newService(failingDataset{Dataset: repo}, pub)

	_, err := svc.AppendFavorite(context.Background(), "Es Teh", "Minuman", "1")
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistence))
	assert.Equal(t, 3, repo.Len())
	assert.Empty(t, pub.jobs)
}

func TestAppendFavorite_PublishFailureKeepsRecord(t *testing.T) {
	repo, _ := newLocalRepository(t)
	svc := newService(repo, &recordingPublisher{err: errors.New("queue is closed")})

	_, err := svc.AppendFavorite(context.Background(), "Es Teh", "Minuman", "1")
	require.NoError(t, err)
	assert.Equal(t, 4, repo.Len())
}

func TestAppendFavorite_ConcurrentIDsAreUnique(t *testing.T) {
	repo, _ := newLocalRepository(t)
	svc := newService(repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AppendFavorite(context.Background(), "Es Teh", "Minuman", "1")
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, rec := range repo.Records() {
		assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
	}
	assert.Equal(t, 13, repo.Len())
}
