package prediction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/pkg/id"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	// UploadPrefix is the object-storage folder holding every uploaded scan.
	UploadPrefix = "uploads/"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Upload is an image received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// Page is one page of an account's prediction history.
type Page struct {
	Predictions []domain.Prediction `json:"predictions"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
	TotalPages  int                 `json:"totalPages"`
}

type Service interface {
	Predict(ctx context.Context, accountID string, up Upload) (*domain.Prediction, error)
	List(ctx context.Context, accountID string, page, limit int) (*Page, error)
	Get(ctx context.Context, accountID, predictionID string) (*domain.Prediction, error)
	Statistics(ctx context.Context, accountID string) (*domain.UserStatistics, error)
	OpenImage(ctx context.Context, imageName string) (io.ReadCloser, error)
}

type classifier interface {
	Classify(ctx context.Context, img []byte) (domain.Classification, error)
}

type predictionStore interface {
	Put(ctx context.Context, p *domain.Prediction) error
	Get(ctx context.Context, predictionID string) (*domain.Prediction, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Prediction, error)
	Tally(ctx context.Context, accountID string) (domain.PredictionTally, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type service struct {
	classifier  classifier
	predictions predictionStore
	objects     objectStore
	clock       clock.Clock
}

type ServiceDeps struct {
	Classifier  classifier
	Predictions predictionStore
	Objects     objectStore
	Clock       clock.Clock
}

func NewService(deps ServiceDeps) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &service{
		classifier:  deps.Classifier,
		predictions: deps.Predictions,
		objects:     deps.Objects,
		clock:       clk,
	}
}

// Predict classifies the upload, stores the image and records the result.
// An empty accountID records an anonymous prediction.
func (s *service) Predict(ctx context.Context, accountID string, up Upload) (*domain.Prediction, error) {
	name := filepath.Base(strings.ReplaceAll(up.Filename, "\\", "/"))
	contentType, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]
	if name == "" || name == "." || name == "/" || !ok {
		return nil, fmt.Errorf("invalid file format: %w", domain.ErrBadRequest)
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("empty image: %w", domain.ErrBadRequest)
	}
	if s.classifier == nil {
		return nil, fmt.Errorf("model server not configured: %w", domain.ErrUnavailable)
	}

	verdict, err := s.classifier.Classify(ctx, up.Data)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	now := s.clock.Now().UTC()
	imageName := now.Format("20060102_150405") + "_" + name
	if _, err := s.objects.Upload(ctx, UploadPrefix+imageName, bytes.NewReader(up.Data), contentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	p := &domain.Prediction{
		PredictionID: id.New(),
		AccountID:    accountID,
		ImageName:    imageName,
		Result:       verdict.Result,
		Confidence:   verdict.Confidence,
		IsAnonymous:  accountID == "",
		CreatedAt:    now,
	}
	if err := s.predictions.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("save prediction: %w", err)
	}
	slog.Info("prediction recorded", "prediction_id", p.PredictionID, "result", p.Result, "anonymous", p.IsAnonymous)
	return p, nil
}

func (s *service) List(ctx context.Context, accountID string, page, limit int) (*Page, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	all, err := s.predictions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	total := len(all)
	// page is caller supplied; compare before multiplying so it cannot overflow.
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := min(start+limit, total)

	items := make([]domain.Prediction, end-start)
	copy(items, all[start:end])
	return &Page{
		Predictions: items,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

// Get returns a prediction only to the account that made it.
func (s *service) Get(ctx context.Context, accountID, predictionID string) (*domain.Prediction, error) {
	p, err := s.predictions.Get(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	if p.AccountID == "" || p.AccountID != accountID {
		return nil, fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *service) Statistics(ctx context.Context, accountID string) (*domain.UserStatistics, error) {
	tally, err := s.predictions.Tally(ctx, accountID)
	if err != nil {
		return nil, err
	}
	stats := &domain.UserStatistics{
		TotalPredictions:   tally.Total,
		TumorPredictions:   tally.Tumor,
		NoTumorPredictions: tally.NoTumor,
	}
	if tally.Total == 0 {
		return stats, nil
	}
	stats.TumorPercentage = float64(tally.Tumor) / float64(tally.Total) * 100
	stats.NoTumorPercentage = float64(tally.NoTumor) / float64(tally.Total) * 100

	recent, err := s.predictions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		stats.MostRecent = &recent[0]
	}
	return stats, nil
}

// OpenImage streams a stored scan by the name recorded on its prediction.
func (s *service) OpenImage(ctx context.Context, imageName string) (io.ReadCloser, error) {
	name := filepath.Base(imageName)
	if name != imageName || name == "." || name == "/" || name == ".." {
		return nil, fmt.Errorf("image not found: %w", domain.ErrNotFound)
	}
	return s.objects.Download(ctx, UploadPrefix+name)
}
