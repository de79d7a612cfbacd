package service

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var exportTracer = otel.Tracer("service/export")

// Download is a workbook ready to stream to the browser. The caller closes Body.
type Download struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
}

// ExportRequest selects what goes into a workbook. Range applies to the
// transactions export, FinancialYear to the CA report.
type ExportRequest struct {
	Kind          domain.ExportKind
	Range         domain.DateRange
	FinancialYear string
}

// ExportService streams the server's workbooks.
type ExportService struct {
	api    port.ExportAPI
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService creates a new export service.
func NewExportService(api port.ExportAPI, logger *zap.Logger) *ExportService {
	return &ExportService{api: api, now: time.Now, logger: logger}
}

// Export starts the download of one workbook.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (*Download, error) {
	ctx, span := exportTracer.Start(ctx, "ExportService.Export")
	defer span.End()
	span.SetAttributes(attribute.String("export.kind", string(req.Kind)))

	if !req.Kind.Valid() {
		return nil, &domain.ErrValidation{Field: "kind", Message: "unknown export"}
	}

	query := rangeParams(req.Range)
	if req.Kind == domain.ExportCAReport {
		if req.FinancialYear == "" {
			req.FinancialYear = domain.FinancialYear(s.now())
		}
		query.Set("financial_year", req.FinancialYear)
	}

	body, contentType, err := s.api.Export(ctx, req.Kind, query)
	if err != nil {
		return nil, domain.Failed(err, "Export failed")
	}
	s.logger.Info("export started", zap.String("kind", string(req.Kind)))
	return &Download{
		Body:        body,
		FileName:    domain.ExportFileName(req.Kind, req.FinancialYear),
		ContentType: contentType,
	}, nil
}
