package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"toolshelf/internal/config"
	"toolshelf/internal/email"
	"toolshelf/internal/middleware"
	"toolshelf/internal/models"
	"toolshelf/internal/repository"

	"gorm.io/gorm"
)

// ReviewService applies admin review decisions to pending submissions.
type ReviewService struct {
	toolRepo repository.ToolRepository
	userRepo repository.UserRepository
	sender   email.Sender
	tmpl     *email.Templates
	cfg      *config.Config
}

// NewReviewService creates a new review service.
func NewReviewService(
	toolRepo repository.ToolRepository,
	userRepo repository.UserRepository,
	sender email.Sender,
	tmpl *email.Templates,
	cfg *config.Config,
) *ReviewService {
	return &ReviewService{
		toolRepo: toolRepo,
		userRepo: userRepo,
		sender:   sender,
		tmpl:     tmpl,
		cfg:      cfg,
	}
}

// ListPending returns the review queue, oldest submissions first.
func (s *ReviewService) ListPending(ctx context.Context, limit, offset int) ([]*models.Tool, int64, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	tools, total, err := s.toolRepo.List(ctx, repository.ToolListFilter{
		Status: models.ToolStatusPending,
		Sort:   "latest",
		Limit:  limit,
		Offset: offset,
	})
	return tools, total, err
}

// Approve moves a pending submission to approved and notifies the submitter.
// The status change and its audit row commit together; the notification is
// sent after the commit and a delivery failure never rolls the decision back.
func (s *ReviewService) Approve(ctx context.Context, adminID, toolID uint) (*models.Tool, error) {
	tool, submitter, err := s.loadPending(ctx, toolID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tool.Status = models.ToolStatusApproved
	tool.ApprovedAt = &now

	history := &models.ToolHistory{
		ActorUserID: adminID,
		EventType:   models.HistoryApproved,
	}
	if err := s.toolRepo.UpdateWithHistory(ctx, tool, history); err != nil {
		return nil, err
	}
	middleware.ReviewDecisions.WithLabelValues("approved").Inc()

	subject, htmlBody, textBody := s.tmpl.ToolApproved(tool)
	s.notify(ctx, submitter.Email, subject, htmlBody, textBody)

	return tool, nil
}

// Reject declines a pending submission, with an optional reason relayed to
// the submitter. Once the submission has been rejected as many times as the
// configured allowance, it becomes permanently rejected and can no longer be
// edited or resubmitted.
func (s *ReviewService) Reject(ctx context.Context, adminID, toolID uint, reason string) (*models.Tool, error) {
	reason = strings.TrimSpace(reason)

	tool, submitter, err := s.loadPending(ctx, toolID)
	if err != nil {
		return nil, err
	}

	tool.RejectionCount++
	permanent := tool.RejectionCount >= s.cfg.ResubmissionLimit
	if permanent {
		tool.Status = models.ToolStatusPermanentlyRejected
	} else {
		tool.Status = models.ToolStatusRejected
	}

	history := &models.ToolHistory{
		ActorUserID: adminID,
		EventType:   models.HistoryRejected,
		Reason:      reason,
	}
	if err := s.toolRepo.UpdateWithHistory(ctx, tool, history); err != nil {
		return nil, err
	}

	var subject, htmlBody, textBody string
	if permanent {
		middleware.ReviewDecisions.WithLabelValues("permanently_rejected").Inc()
		subject, htmlBody, textBody = s.tmpl.ToolPermanentlyRejected(tool, reason)
	} else {
		middleware.ReviewDecisions.WithLabelValues("rejected").Inc()
		subject, htmlBody, textBody = s.tmpl.ToolRejected(tool, reason)
	}
	s.notify(ctx, submitter.Email, subject, htmlBody, textBody)

	return tool, nil
}

// loadPending fetches a tool and its submitter, rejecting decisions on
// listings that are not awaiting review. The submitter lookup happens before
// any write so a missing account fails the operation with nothing changed.
func (s *ReviewService) loadPending(ctx context.Context, toolID uint) (*models.Tool, *models.User, error) {
	tool, err := s.toolRepo.GetByID(ctx, toolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.NewNotFoundError("tool", toolID)
		}
		return nil, nil, err
	}
	if tool.Status != models.ToolStatusPending {
		return nil, nil, models.NewValidationError("Only pending submissions can be reviewed")
	}

	submitter, err := s.userRepo.GetByID(ctx, tool.SubmittedByUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.NewInternalError(errors.New("submitter account missing"))
		}
		return nil, nil, err
	}
	return tool, submitter, nil
}

func (s *ReviewService) notify(ctx context.Context, to, subject, htmlBody, textBody string) {
	if err := s.sender.Send([]string{to}, subject, htmlBody, textBody); err != nil {
		middleware.Logger.ErrorContext(ctx, "review notification failed",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
	}
}
