package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/api/middleware"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/dvloznov/warmindo-recommender/internal/metrics"
	"github.com/dvloznov/warmindo-recommender/internal/ratings"
	"github.com/dvloznov/warmindo-recommender/internal/recommend"
)

// FavoriteSavedPage is returned after a favorite is stored.
const FavoriteSavedPage = "<script>alert('Terima kasih, menu favorit Anda sudah disimpan!');window.location='/'</script>"

// Catalog lists what the dataset currently contains.
type Catalog interface {
	Categories() []string
	Products() []string
	Len() int
}

// Recommender answers both recommendation strategies.
type Recommender interface {
	RecommendSimilar(product, category string, topN int) []string
	RecommendByCategory(category string, topN int) []recommend.Popularity
}

// FavoriteWriter appends favorite submissions to the dataset.
type FavoriteWriter interface {
	AppendFavorite(ctx context.Context, product, category, quantityRaw string) (domain.TransactionRecord, error)
}

// PagesHandler serves the HTML pages.
type PagesHandler struct {
	catalog     Catalog
	recommender Recommender
	ratings     ratings.Store
	favorites   FavoriteWriter
	popularTopN int
	log         zerolog.Logger
}

// NewPagesHandler creates a new pages handler. popularTopN is the number of
// category recommendations shown on the home page.
func NewPagesHandler(catalog Catalog, recommender Recommender, ratingStore ratings.Store, favorites FavoriteWriter, popularTopN int, log zerolog.Logger) *PagesHandler {
	return &PagesHandler{
		catalog:     catalog,
		recommender: recommender,
		ratings:     ratingStore,
		favorites:   favorites,
		popularTopN: popularTopN,
		log:         log,
	}
}

type recommendationRow struct {
	Product    string
	Percentage float64
	Average    float64
	Count      int64
}

type indexPage struct {
	Title      string
	Categories []string
	Products   []string
	Selected   string
	Rows       []recommendationRow
	Stars      []int
}

// Index handles GET / and POST /. A POST with a kategori form value lists
// that category's best sellers.
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := indexPage{
		Title:      "Beranda",
		Categories: h.catalog.Categories(),
		Products:   h.catalog.Products(),
		Stars:      []int{1, 2, 3, 4, 5},
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			middleware.WriteText(w, http.StatusBadRequest, "Form tidak valid")
			return
		}
		page.Selected = strings.TrimSpace(r.PostFormValue("kategori"))
	}

	if page.Selected != "" {
		popular := h.recommender.RecommendByCategory(page.Selected, h.popularTopN)
		metrics.RecordRecommendation(metrics.StrategyCategory, len(popular))

		all, err := h.ratings.All(ctx)
		if err != nil {
			// Ratings are decoration on this page; show the list without them.
			h.log.Error().Err(err).Msg("Failed to load ratings")
			all = nil
		}
		for _, p := range popular {
			agg := all[p.Product]
			page.Rows = append(page.Rows, recommendationRow{
				Product:    p.Product,
				Percentage: p.Percentage,
				Average:    agg.Average(),
				Count:      agg.Count,
			})
		}
	}

	h.writePage(w, "index", page)
}

// Favorit handles POST /favorit.
func (h *PagesHandler) Favorit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteText(w, http.StatusBadRequest, "Data tidak lengkap")
		return
	}

	rec, err := h.favorites.AppendFavorite(r.Context(),
		r.PostFormValue("menu_favorit"),
		r.PostFormValue("kategori"),
		r.PostFormValue("quantity"),
	)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.CodeValidation:
			metrics.RecordFavorite("invalid")
			middleware.WriteText(w, http.StatusBadRequest, "Data tidak lengkap")
		case apperrors.CodeNotFound:
			metrics.RecordFavorite("unknown_product")
			middleware.WriteText(w, http.StatusNotFound, errorMessage(err))
		default:
			metrics.RecordFavorite("error")
			h.log.Error().Err(err).Msg("Failed to append favorite")
			middleware.WriteText(w, http.StatusInternalServerError, "Gagal menyimpan menu favorit")
		}
		return
	}

	metrics.RecordFavorite("appended")
	h.log.Info().Int64("id", rec.ID).Str("product", rec.ProductName).Msg("Favorite saved")
	middleware.WriteHTML(w, http.StatusOK, []byte(FavoriteSavedPage))
}

type aboutPage struct {
	Title    string
	Records  int
	Products int
}

// About handles GET /about.
func (h *PagesHandler) About(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, "about", aboutPage{
		Title:    "Tentang",
		Records:  h.catalog.Len(),
		Products: len(h.catalog.Products()),
	})
}

func (h *PagesHandler) writePage(w http.ResponseWriter, name string, data any) {
	html, err := render(name, data)
	if err != nil {
		h.log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		middleware.WriteText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	middleware.WriteHTML(w, http.StatusOK, html)
}

func errorMessage(err error) string {
	var appErr *apperrors.Error
	if apperrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
