package response

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nidhamu/core"
	"github.com/trezcool/nidhamu/core/record"
	"github.com/trezcool/nidhamu/core/user"
)

var (
	ErrNotFound       = core.NewNotFoundError("response not found")
	errAlreadyDecided = errors.New("response has already been decided")
)

type (
	Repository interface {
		CreateResponse(ctx context.Context, rsp Response) (Response, error)
		QueryAllResponses(ctx context.Context) ([]Response, error)
		QueryResponsesByUser(ctx context.Context, userID string) ([]Response, error)
		GetResponseByID(ctx context.Context, id string) (Response, error)
		UpdateResponse(ctx context.Context, rsp Response) (Response, error)
	}

	Service struct {
		repo       Repository
		recordRepo record.Repository
		mailSvc    core.EmailService
		syncMail   bool // send mails synchronously (tests)
	}
)

func NewService(repo Repository, recordRepo record.Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, recordRepo: recordRepo, mailSvc: mailSvc}
}

// NewServiceMock returns a Service that delivers mails synchronously.
func NewServiceMock(repo Repository, recordRepo record.Repository, mailSvc core.EmailService) *Service {
	svc := NewService(repo, recordRepo, mailSvc)
	svc.syncMail = true
	return svc
}

// Create files an appeal by usr against a record form.
func (svc *Service) Create(ctx context.Context, usr user.User, nr NewResponse) (Response, error) {
	rec, err := svc.recordRepo.GetRecordByID(ctx, nr.RecordFormID)
	if err != nil {
		return Response{}, err
	}
	now := time.Now().UTC()
	rsp := Response{
		ID:           uuid.New().String(),
		RecordFormID: rec.ID,
		UserID:       usr.ID,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		Content:      nr.Content,
		State:        StatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateResponse(ctx, rsp)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Response, error) {
	return svc.repo.QueryAllResponses(ctx)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Response, error) {
	return svc.repo.QueryResponsesByUser(ctx, userID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Response, error) {
	return svc.repo.GetResponseByID(ctx, id)
}

// Decide transitions a pending response to accepted or rejected and notifies
// the author. Decided responses cannot be decided again.
func (svc *Service) Decide(ctx context.Context, id string, d Decision) (Response, error) {
	rsp, err := svc.repo.GetResponseByID(ctx, id)
	if err != nil {
		return Response{}, err
	}
	if rsp.State.Terminal() {
		return Response{}, core.NewValidationError(errAlreadyDecided,
			core.FieldError{Field: "state", Error: errAlreadyDecided.Error()})
	}

	rsp.State = StateRejected
	if d.Accept {
		rsp.State = StateAccepted
	}
	rsp.AdminReply = d.AdminReply
	rsp.UpdatedAt = time.Now().UTC()

	rsp, err = svc.repo.UpdateResponse(ctx, rsp)
	if err != nil {
		return Response{}, err
	}

	if svc.syncMail {
		svc.sendDecisionMail(rsp)
	} else {
		go svc.sendDecisionMail(rsp)
	}
	return rsp, nil
}

func (svc *Service) sendDecisionMail(rsp Response) {
	if rsp.Email == "" {
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour appeal has been %s.", rsp.FirstName, rsp.State)
	if rsp.AdminReply != "" {
		body += fmt.Sprintf("\n\nAdmin reply:\n%s", rsp.AdminReply)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: rsp.FirstName + " " + rsp.LastName, Address: rsp.Email}},
		Subject: "Appeal " + string(rsp.State),
		BodyStr: body,
	})
}
