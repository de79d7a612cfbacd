package service

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var portfolioTracer = otel.Tracer("service/portfolio")

// PortfolioPage is every holding with invested and current totals.
type PortfolioPage struct {
	Holdings []domain.InvestmentHolding `json:"holdings"`
	Totals   domain.PortfolioTotals     `json:"totals"`
}

// PortfolioService is the investment portfolio page.
type PortfolioService struct {
	holdings *Collection[domain.InvestmentHolding]
	api      port.PortfolioAPI
	logger   *zap.Logger
}

// NewPortfolioService creates a new portfolio service.
func NewPortfolioService(holdings *Collection[domain.InvestmentHolding], api port.PortfolioAPI, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{holdings: holdings, api: api, logger: logger}
}

// Page loads the holdings and sums them.
func (s *PortfolioService) Page(ctx context.Context) (*PortfolioPage, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Page")
	defer span.End()

	holdings, err := s.holdings.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newPortfolioPage(holdings), nil
}

// ImportCSV uploads a broker export, then refetches the holdings. It
// returns how many holdings the server imported.
func (s *PortfolioService) ImportCSV(ctx context.Context, broker, filename string, file io.Reader) (int, *PortfolioPage, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.ImportCSV")
	defer span.End()
	span.SetAttributes(attribute.String("broker", broker), attribute.String("file.name", filename))

	if broker == "" {
		return 0, nil, &domain.ErrValidation{Field: "broker", Message: "broker is required"}
	}
	res, err := s.api.ImportCSV(ctx, broker, filename, file)
	if err != nil {
		return 0, nil, domain.Failed(err, "Import failed")
	}
	s.logger.Info("holdings imported", zap.String("broker", broker), zap.Int("count", res.Count))

	page, err := s.Page(ctx)
	if err != nil {
		return res.Count, nil, err
	}
	return res.Count, page, nil
}

func newPortfolioPage(holdings []domain.InvestmentHolding) *PortfolioPage {
	return &PortfolioPage{Holdings: holdings, Totals: domain.TotalPortfolio(holdings)}
}
