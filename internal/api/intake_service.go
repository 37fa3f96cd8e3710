package api

import (
	"context"
	"fmt"

	"caseintake/internal/batchjob"
	"caseintake/internal/cases"
	"caseintake/internal/codes"
	"caseintake/internal/progress"
	"caseintake/internal/receiving"
	"caseintake/internal/services"
)

// Receiver classifies inline submissions.
type Receiver interface {
	Classify(ctx context.Context, orderID, warehouseOrgID string, rawTokens []string) []receiving.Result
}

// BatchCoordinator drives batch jobs.
type BatchCoordinator interface {
	Start(ctx context.Context, batchID string) (batchjob.StartResult, error)
	Tick(ctx context.Context, batchID string) (batchjob.TickResult, error)
	Reset(ctx context.Context, batchID string) (cases.JobStatus, error)
	Status(ctx context.Context, batchID string) (batchjob.JobView, error)
}

// OverviewReader computes order overviews.
type OverviewReader interface {
	Overview(ctx context.Context, orderID, warehouseOrgID string) (*progress.Overview, error)
}

// IntakeService is the client surface for master-case intake.
type IntakeService struct {
	receiver    Receiver
	batches     BatchCoordinator
	overviews   OverviewReader
	inlineLimit int
}

// NewIntakeService wires the service. inlineLimit caps the number of tokens
// one inline receive may carry; zero disables the cap.
func NewIntakeService(receiver Receiver, batches BatchCoordinator, overviews OverviewReader, inlineLimit int) *IntakeService {
	return &IntakeService{
		receiver:    receiver,
		batches:     batches,
		overviews:   overviews,
		inlineLimit: inlineLimit,
	}
}

// SubmitReceive classifies the submitted codes and returns one result per token.
func (s *IntakeService) SubmitReceive(ctx context.Context, req ReceiveRequest) (*ReceiveResponse, error) {
	if err := checkRequest("receive", req); err != nil {
		return nil, err
	}

	tokens := append([]string(nil), req.Codes...)
	stats := ParseStats{}
	if req.Raw != "" {
		parsed := codes.Parse(req.Raw)
		tokens = append(tokens, parsed.RawTokens...)
		stats.Invalid = parsed.InvalidCount
	}
	if len(tokens) == 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "receive", "no codes submitted", nil)
	}
	if s.inlineLimit > 0 && len(tokens) > s.inlineLimit {
		return nil, services.Wrap(services.ErrValidation, "api", "receive",
			fmt.Sprintf("%d codes exceeds the inline limit of %d; start a batch job instead", len(tokens), s.inlineLimit), nil)
	}

	ctx = services.WithOrderID(ctx, req.OrderID)
	results := s.receiver.Classify(ctx, req.OrderID, req.WarehouseOrgID, tokens)

	stats.Tokens = len(tokens)
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.Code == "" {
			continue
		}
		if _, dup := seen[r.Code]; dup {
			stats.Duplicates++
			continue
		}
		seen[r.Code] = struct{}{}
		stats.Unique++
	}

	return &ReceiveResponse{
		Results: FromResults(results),
		Summary: receiving.Summarize(results),
		Parse:   stats,
	}, nil
}

// StartBatchJob queues a batch job.
func (s *IntakeService) StartBatchJob(ctx context.Context, batchID string) (StartResponse, error) {
	res, err := s.batches.Start(services.WithBatchID(ctx, batchID), batchID)
	if err != nil {
		return StartResponse{}, err
	}
	return StartResponse{
		BatchID: batchID,
		Status:  string(res.Status),
		Started: res.Started,
		Message: res.Message,
	}, nil
}

// TickBatchJob advances a batch by one slice.
func (s *IntakeService) TickBatchJob(ctx context.Context, batchID string) (TickResponse, error) {
	res, err := s.batches.Tick(services.WithBatchID(ctx, batchID), batchID)
	if err != nil {
		return TickResponse{}, err
	}
	return FromTickResult(res), nil
}

// GetBatchJobStatus returns the polled job view.
func (s *IntakeService) GetBatchJobStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	view, err := s.batches.Status(ctx, batchID)
	if err != nil {
		return BatchStatus{}, err
	}
	return FromJobView(view), nil
}

// ResetBatchJob returns the job to idle.
func (s *IntakeService) ResetBatchJob(ctx context.Context, batchID string) (ResetResponse, error) {
	status, err := s.batches.Reset(services.WithBatchID(ctx, batchID), batchID)
	if err != nil {
		return ResetResponse{}, err
	}
	return ResetResponse{BatchID: batchID, Status: string(status)}, nil
}

// GetOrderMovementOverview returns nil when the order has no cases.
func (s *IntakeService) GetOrderMovementOverview(ctx context.Context, orderID, warehouseOrgID string) (*Overview, error) {
	ov, err := s.overviews.Overview(services.WithOrderID(ctx, orderID), orderID, warehouseOrgID)
	if err != nil {
		return nil, err
	}
	return FromOverview(ov), nil
}
