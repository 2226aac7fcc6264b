package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/transportops/backoffice/internal/domain/billing"
	"go.uber.org/zap"
)

// NumberService issues invoice and bill numbers.
//
// A number is reserved from the document_sequences counter, locked for the
// rest of the caller's transaction so concurrent creators are serialized. The
// counter never falls behind numbers already stored in the document table,
// compared numerically. Any failure yields a timestamp-based fallback number
// instead of an error.
type NumberService struct {
	scope    TransactionScope
	settings Settings
	now      func() time.Time
	logger   *zap.Logger
	metrics  Metrics
}

// NewNumberService creates a new NumberService
func NewNumberService(scope TransactionScope, settings Settings, logger *zap.Logger) *NumberService {
	return &NumberService{
		scope:    scope,
		settings: settings.withDefaults(),
		now:      time.Now,
		logger:   logger,
		metrics:  noopMetrics{},
	}
}

// SetMetrics installs a metrics sink
func (s *NumberService) SetMetrics(m Metrics) {
	s.metrics = m
}

// Prefix returns the configured prefix for kind
func (s *NumberService) Prefix(kind billing.DocumentKind) (string, error) {
	switch kind {
	case billing.DocumentInvoice:
		return s.settings.InvoicePrefix, nil
	case billing.DocumentBill:
		return s.settings.BillPrefix, nil
	}
	return "", fmt.Errorf("unknown document kind %q", kind)
}

// GenerateInvoiceNumber reserves the next invoice number in its own transaction
func (s *NumberService) GenerateInvoiceNumber(ctx context.Context) string {
	return s.generate(ctx, billing.DocumentInvoice)
}

// GenerateBillNumber reserves the next bill number in its own transaction
func (s *NumberService) GenerateBillNumber(ctx context.Context) string {
	return s.generate(ctx, billing.DocumentBill)
}

func (s *NumberService) generate(ctx context.Context, kind billing.DocumentKind) string {
	var number string
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		number = s.Reserve(ctx, repos, kind)
		return nil
	})
	if err != nil {
		return s.fallback(ctx, kind, err)
	}
	return number
}

// Reserve issues the next number for kind inside repos' transaction. The
// reservation runs in a savepoint so a failed lookup leaves the caller's
// transaction usable.
func (s *NumberService) Reserve(ctx context.Context, repos TransactionalRepositories, kind billing.DocumentKind) string {
	prefix, err := s.Prefix(kind)
	if err != nil {
		return s.fallback(ctx, kind, err)
	}

	var number string
	err = repos.Savepoint(ctx, func(sp TransactionalRepositories) error {
		issued, err := issuedNumbers(ctx, sp, kind, prefix)
		if err != nil {
			return err
		}
		seq, err := sp.Sequences().Reserve(ctx, prefix, billing.HighestSequence(prefix, issued))
		if err != nil {
			return err
		}
		number = billing.FormatNumber(prefix, seq)
		return nil
	})
	if err != nil {
		return s.fallback(ctx, kind, err)
	}
	return number
}

// Preview returns the number the next reservation would produce without
// reserving it
func (s *NumberService) Preview(ctx context.Context, kind billing.DocumentKind) (*NextNumberResponse, error) {
	prefix, err := s.Prefix(kind)
	if err != nil {
		return nil, err
	}

	var next int64
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		issued, err := issuedNumbers(ctx, repos, kind, prefix)
		if err != nil {
			return err
		}
		current, err := repos.Sequences().Current(ctx, prefix)
		if err != nil {
			return err
		}
		next = max(current, billing.HighestSequence(prefix, issued)) + 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &NextNumberResponse{
		Kind:   string(kind),
		Prefix: prefix,
		Number: billing.FormatNumber(prefix, next),
	}, nil
}

func (s *NumberService) fallback(ctx context.Context, kind billing.DocumentKind, cause error) string {
	prefix, err := s.Prefix(kind)
	if err != nil {
		prefix = billing.DefaultInvoicePrefix
		if kind == billing.DocumentBill {
			prefix = billing.DefaultBillPrefix
		}
	}
	number := billing.FallbackNumber(prefix, s.now())
	s.metrics.NumberFallback(ctx, kind)
	s.logger.Warn("document sequence unavailable, using fallback number",
		zap.String("kind", string(kind)),
		zap.String("number", number),
		zap.Error(cause),
	)
	return number
}

func issuedNumbers(ctx context.Context, repos TransactionalRepositories, kind billing.DocumentKind, prefix string) ([]string, error) {
	if kind == billing.DocumentBill {
		return repos.Bills().NumbersWithPrefix(ctx, prefix)
	}
	return repos.Invoices().NumbersWithPrefix(ctx, prefix)
}
