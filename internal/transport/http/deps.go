package http

import (
	"context"
	"io"

	"github.com/neuroscan-api/internal/application/auth"
	"github.com/neuroscan-api/internal/application/otp"
	"github.com/neuroscan-api/internal/application/registration"
	"github.com/neuroscan-api/internal/domain"
	"github.com/neuroscan-api/internal/pkg/clock"
	"github.com/neuroscan-api/internal/transport/http/handler"
)

// AccountRepository is the minimal interface the router requires from an account store.
type AccountRepository interface {
	Put(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
	Count(ctx context.Context) (int, error)
}

// PredictionRepository is the minimal interface the router requires from a prediction store.
type PredictionRepository interface {
	Put(ctx context.Context, p *domain.Prediction) error
	Get(ctx context.Context, predictionID string) (*domain.Prediction, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Prediction, error)
	Tally(ctx context.Context, accountID string) (domain.PredictionTally, error)
}

// VisitorRepository is the minimal interface the router requires from a visitor store.
type VisitorRepository interface {
	Put(ctx context.Context, v *domain.Visitor) error
	GetBySession(ctx context.Context, sessionID string) (*domain.Visitor, error)
	Count(ctx context.Context) (int, error)
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Classifier labels a single scan.
type Classifier interface {
	Classify(ctx context.Context, img []byte) (domain.Classification, error)
}

// StatsCache holds the public statistics aggregate.
type StatsCache interface {
	GetPublic(ctx context.Context) (*domain.PublicStatistics, bool, error)
	SetPublic(ctx context.Context, s *domain.PublicStatistics) error
	Invalidate(ctx context.Context) error
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Sign(accountID string) (string, error)
	AccountID(token string) (string, bool)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Check(plain, hash string) bool
}

// Deps holds all infrastructure dependencies for the router. Classifier,
// StatsCache and Health may be nil.
type Deps struct {
	Clock         clock.Clock
	Accounts      AccountRepository
	Registrations registration.Store
	OTPs          otp.Store
	Predictions   PredictionRepository
	Visitors      VisitorRepository
	Objects       ObjectStore
	Sender        auth.Sender
	Tokens        TokenIssuer
	Hasher        PasswordHasher
	Classifier    Classifier
	StatsCache    StatsCache
	Health        handler.Pinger
}
