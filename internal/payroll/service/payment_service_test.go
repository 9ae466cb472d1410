package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"roadbook/internal/payroll/models"
	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
	"roadbook/pkg/platform/sentinel"
	"roadbook/pkg/requestcontext"
)

// =============================================================================
// CreatePayment Tests
// =============================================================================

func (s *PayrollServiceSuite) TestCreatePayment() {
	s.Run("stores a draft with an allocated reference", func() {
		p := s.createFee("Lena Moreau")

		s.Equal("PAY-2026-00001", p.Reference)
		s.Equal(models.StatusDraft, p.Status)
		s.Equal(s.now, p.CreatedAt)

		found, err := s.service.GetPayment(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.Reference, found.Reference)
	})

	s.Run("references increment within the year", func() {
		first := s.createFee("Payee One")
		second := s.createFee("Payee Two")
		s.NotEqual(first.Reference, second.Reference)
		s.True(models.ValidReference(second.Reference))
	})

	s.Run("accepts a per diem with tour and day", func() {
		date := time.Date(2026, 4, 9, 13, 0, 0, 0, time.UTC)
		p, err := s.service.CreatePayment(s.ctx, CreatePaymentInput{
			PayeeID:     id.NewPersonID(),
			PayeeName:   "Marc Dubois",
			TourID:      id.NewTourID(),
			Kind:        models.KindPerDiem,
			Amount:      decimal.NewFromInt(45),
			Currency:    money.EUR,
			PerDiemDate: &date,
		})
		s.Require().NoError(err)
		s.Require().NotNil(p.PerDiemDate)
		s.Equal(time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), *p.PerDiemDate)
	})

	s.Run("duplicate per diem for the same day conflicts", func() {
		payeeID := id.NewPersonID()
		tourID := id.NewTourID()
		date := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
		in := CreatePaymentInput{
			PayeeID:     payeeID,
			PayeeName:   "Marc Dubois",
			TourID:      tourID,
			Kind:        models.KindPerDiem,
			Amount:      decimal.NewFromInt(45),
			Currency:    money.EUR,
			PerDiemDate: &date,
		}

		_, err := s.service.CreatePayment(s.ctx, in)
		s.Require().NoError(err)

		_, err = s.service.CreatePayment(s.ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "Marc Dubois")
		s.Contains(err.Error(), "2026-04-10")
	})

	s.Run("rejects bad input", func() {
		date := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
		valid := CreatePaymentInput{
			PayeeID:   id.NewPersonID(),
			PayeeName: "Lena Moreau",
			Kind:      models.KindFee,
			Amount:    decimal.NewFromInt(100),
			Currency:  money.EUR,
		}

		cases := []struct {
			name     string
			mutate   func(*CreatePaymentInput)
			fragment string
		}{
			{"nil payee", func(in *CreatePaymentInput) { in.PayeeID = id.PersonID{} }, "payee id"},
			{"blank name", func(in *CreatePaymentInput) { in.PayeeName = "  " }, "payee name"},
			{"unknown kind", func(in *CreatePaymentInput) { in.Kind = "bonus" }, "kind"},
			{"zero amount", func(in *CreatePaymentInput) { in.Amount = decimal.Zero }, "positive"},
			{"negative amount", func(in *CreatePaymentInput) { in.Amount = decimal.NewFromInt(-5) }, "positive"},
			{"bad currency", func(in *CreatePaymentInput) { in.Currency = "EURO" }, "currency"},
			{"per diem without tour", func(in *CreatePaymentInput) {
				in.Kind = models.KindPerDiem
				in.PerDiemDate = &date
			}, "tour id"},
			{"per diem without day", func(in *CreatePaymentInput) {
				in.Kind = models.KindPerDiem
				in.TourID = id.NewTourID()
			}, "tour day"},
			{"fee with a tour day", func(in *CreatePaymentInput) { in.PerDiemDate = &date }, "per diem"},
		}

		for _, tc := range cases {
			s.Run(tc.name, func() {
				in := valid
				tc.mutate(&in)
				_, err := s.service.CreatePayment(s.ctx, in)
				s.Require().Error(err)
				s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
				s.Contains(err.Error(), tc.fragment)
			})
		}
	})
}

// =============================================================================
// Lookup Tests
// =============================================================================

func (s *PayrollServiceSuite) TestLookups() {
	s.Run("finds by reference", func() {
		p := s.createFee("Lena Moreau")
		found, err := s.service.GetPaymentByReference(s.ctx, p.Reference)
		s.Require().NoError(err)
		s.Equal(p.ID, found.ID)
	})

	s.Run("malformed reference is rejected before the store", func() {
		_, err := s.service.GetPaymentByReference(s.ctx, "PAY-2026-1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown payment is not found", func() {
		_, err := s.service.GetPayment(s.ctx, id.NewPaymentID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.service.GetPaymentByReference(s.ctx, "PAY-2026-99999")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("nil payment id is rejected", func() {
		_, err := s.service.GetPayment(s.ctx, id.PaymentID{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func (s *PayrollServiceSuite) TestLifecycle() {
	s.Run("a draft travels submit, approve, schedule, pay", func() {
		p := s.createFee("Lena Moreau")

		submitted, err := s.service.SubmitForApproval(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingApproval, submitted.Status)
		s.Require().NotNil(submitted.SubmittedAt)
		s.Equal(s.now, *submitted.SubmittedAt)

		approved, err := s.service.Approve(s.ctx, p.ID, validProfile(p.PayeeID))
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.Equal(s.actor, approved.ApprovedBy)

		payDate := s.now.AddDate(0, 0, 14)
		scheduled, err := s.service.Schedule(s.ctx, p.ID, payDate)
		s.Require().NoError(err)
		s.Equal(models.StatusScheduled, scheduled.Status)
		s.Require().NotNil(scheduled.ScheduledFor)
		s.Equal(payDate, *scheduled.ScheduledFor)

		paid, err := s.service.MarkPaid(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPaid, paid.Status)
		s.Require().NotNil(paid.PaidAt)
	})

	s.Run("a draft cannot jump straight to paid", func() {
		p := s.createFee("Lena Moreau")

		_, err := s.service.MarkPaid(s.ctx, p.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition), "got %v", err)
		s.Contains(err.Error(), p.Reference)

		found, err := s.service.GetPayment(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusDraft, found.Status)
	})

	s.Run("a rejected payment returns to draft and can resubmit", func() {
		p := s.pendingFee("Lena Moreau")

		rejected, err := s.service.Reject(s.ctx, p.ID, "IBAN missing from payee file")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)
		s.Equal("IBAN missing from payee file", rejected.RejectionReason)

		draft, err := s.service.ReturnToDraft(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusDraft, draft.Status)
		// The rejection trail survives the return to draft.
		s.Equal("IBAN missing from payee file", draft.RejectionReason)

		resubmitted, err := s.service.SubmitForApproval(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingApproval, resubmitted.Status)
	})

	s.Run("paid is terminal", func() {
		p := s.paidFee("Lena Moreau")

		_, err := s.service.SubmitForApproval(s.ctx, p.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))

		_, err = s.service.Reject(s.ctx, p.ID, "too late")
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))

		_, err = s.service.ReturnToDraft(s.ctx, p.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("reject requires a reason", func() {
		p := s.pendingFee("Lena Moreau")
		_, err := s.service.Reject(s.ctx, p.ID, "   ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("schedule requires a pay date", func() {
		p := s.approvedFee("Lena Moreau")
		_, err := s.service.Schedule(s.ctx, p.ID, time.Time{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Approval Gate Tests
// =============================================================================

func (s *PayrollServiceSuite) TestApprovalGate() {
	s.Run("a valid IBAN passes the gate", func() {
		p := s.pendingFee("Lena Moreau")
		approved, err := s.service.Approve(s.ctx, p.ID, validProfile(p.PayeeID))
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
	})

	s.Run("missing IBAN keeps the payment pending and names the payee", func() {
		p := s.pendingFee("Marc Dubois")

		_, err := s.service.Approve(s.ctx, p.ID, models.PayeeBankProfile{PayeeID: p.PayeeID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingBankDetails), "got %v", err)
		s.Contains(err.Error(), "Marc Dubois")
		s.Contains(err.Error(), p.Reference)

		found, err := s.service.GetPayment(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingApproval, found.Status)
	})

	s.Run("a corrupted IBAN fails the checksum", func() {
		p := s.pendingFee("Marc Dubois")

		profile := validProfile(p.PayeeID)
		profile.IBAN = corruptedIBAN
		_, err := s.service.Approve(s.ctx, p.ID, profile)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingBankDetails))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidChecksum), "checksum failure should be in the chain: %v", err)

		found, err := s.service.GetPayment(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingApproval, found.Status)
	})

	s.Run("an invalid BIC blocks approval", func() {
		p := s.pendingFee("Marc Dubois")

		profile := validProfile(p.PayeeID)
		profile.BIC = "BNP1FRPP"
		_, err := s.service.Approve(s.ctx, p.ID, profile)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingBankDetails))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidFormat))
	})

	s.Run("a missing BIC is fine", func() {
		p := s.pendingFee("Marc Dubois")

		profile := validProfile(p.PayeeID)
		profile.BIC = ""
		_, err := s.service.Approve(s.ctx, p.ID, profile)
		s.Require().NoError(err)
	})

	s.Run("a profile for another payee is refused", func() {
		p := s.pendingFee("Marc Dubois")

		_, err := s.service.Approve(s.ctx, p.ID, validProfile(id.NewPersonID()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		found, err := s.service.GetPayment(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPendingApproval, found.Status)
	})

	s.Run("a profile without a payee id skips the ownership check", func() {
		p := s.pendingFee("Marc Dubois")

		_, err := s.service.Approve(s.ctx, p.ID, models.PayeeBankProfile{IBAN: validIBAN})
		s.Require().NoError(err)
	})

	s.Run("approving a draft is an illegal transition, not a gate refusal", func() {
		p := s.createFee("Marc Dubois")

		_, err := s.service.Approve(s.ctx, p.ID, models.PayeeBankProfile{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition), "got %v", err)
	})
}

// =============================================================================
// Approval Batch Tests
// =============================================================================

func (s *PayrollServiceSuite) TestApproveBatch() {
	s.Run("reports one outcome per request and never aborts", func() {
		ok := s.pendingFee("Lena Moreau")
		noBank := s.pendingFee("Marc Dubois")
		stillDraft := s.createFee("Nadia Kessler")

		outcomes := s.service.ApproveBatch(s.ctx, []models.ApprovalRequest{
			{PaymentID: ok.ID, Profile: validProfile(ok.PayeeID)},
			{PaymentID: noBank.ID, Profile: models.PayeeBankProfile{PayeeID: noBank.PayeeID}},
			{PaymentID: stillDraft.ID, Profile: validProfile(stillDraft.PayeeID)},
		})

		s.Require().Len(outcomes, 3)

		s.Equal(ok.ID, outcomes[0].PaymentID)
		s.Require().NoError(outcomes[0].Err)
		s.Equal(ok.Reference, outcomes[0].Reference)
		s.Equal(models.StatusApproved, outcomes[0].Payment.Status)

		s.Equal(noBank.ID, outcomes[1].PaymentID)
		s.Require().Error(outcomes[1].Err)
		s.True(dErrors.HasCode(outcomes[1].Err, dErrors.CodeMissingBankDetails))
		s.Contains(outcomes[1].Err.Error(), "Marc Dubois")

		s.Equal(stillDraft.ID, outcomes[2].PaymentID)
		s.Require().Error(outcomes[2].Err)
		s.True(dErrors.HasCode(outcomes[2].Err, dErrors.CodeIllegalTransition))
	})

	s.Run("refused payments stay pending for the next batch", func() {
		p := s.pendingFee("Marc Dubois")

		outcomes := s.service.ApproveBatch(s.ctx, []models.ApprovalRequest{
			{PaymentID: p.ID, Profile: models.PayeeBankProfile{PayeeID: p.PayeeID}},
		})
		s.Require().Error(outcomes[0].Err)

		outcomes = s.service.ApproveBatch(s.ctx, []models.ApprovalRequest{
			{PaymentID: p.ID, Profile: validProfile(p.PayeeID)},
		})
		s.Require().NoError(outcomes[0].Err)
		s.Equal(models.StatusApproved, outcomes[0].Payment.Status)
	})

	s.Run("a cancelled context fails remaining requests individually", func() {
		p := s.pendingFee("Lena Moreau")

		ctx, cancel := context.WithCancel(s.ctx)
		cancel()

		outcomes := s.service.ApproveBatch(ctx, []models.ApprovalRequest{
			{PaymentID: p.ID, Profile: validProfile(p.PayeeID)},
		})
		s.Require().Len(outcomes, 1)
		s.Require().ErrorIs(outcomes[0].Err, context.Canceled)
	})
}

// =============================================================================
// Reference Allocation Tests
// =============================================================================

func (s *PayrollServiceSuite) TestReferenceAllocation() {
	s.Run("an exhausted yearly space surfaces as internal", func() {
		svc := New(s.payments, fixedAllocator{seq: models.MaxSequencePerYear + 1},
			WithLogger(discardLogger()))

		_, err := svc.CreatePayment(s.ctx, CreatePaymentInput{
			PayeeID:   id.NewPersonID(),
			PayeeName: "Lena Moreau",
			Kind:      models.KindFee,
			Amount:    decimal.NewFromInt(100),
			Currency:  money.EUR,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorIs(err, sentinel.ErrSequenceExhausted)
	})

	s.Run("an allocator failure surfaces as internal", func() {
		svc := New(s.payments, fixedAllocator{err: errors.New("connection refused")},
			WithLogger(discardLogger()))

		_, err := svc.CreatePayment(s.ctx, CreatePaymentInput{
			PayeeID:   id.NewPersonID(),
			PayeeName: "Lena Moreau",
			Kind:      models.KindFee,
			Amount:    decimal.NewFromInt(100),
			Currency:  money.EUR,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// TestConcurrentCreation verifies that racing creations all succeed and
// never share a reference.
func (s *PayrollServiceSuite) TestConcurrentCreation() {
	const callers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	references := make(map[string]bool, callers)
	var failures atomic.Int32

	for range callers {
		wg.Go(func() {
			p, err := s.service.CreatePayment(s.ctx, CreatePaymentInput{
				PayeeID:   id.NewPersonID(),
				PayeeName: "Stampede Payee",
				Kind:      models.KindFee,
				Amount:    decimal.NewFromInt(100),
				Currency:  money.EUR,
			})
			if err != nil {
				failures.Add(1)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			references[p.Reference] = true
		})
	}

	wg.Wait()

	s.Equal(int32(0), failures.Load(), "every creation should succeed")
	s.Len(references, callers, "every payment should carry a distinct reference")
}

// =============================================================================
// Bank Profile Report Tests
// =============================================================================

func (s *PayrollServiceSuite) TestBankProfileReport() {
	s.Run("a fully valid profile is approval ready", func() {
		report := s.service.BankProfileReport(models.PayeeBankProfile{
			PayeeID: id.NewPersonID(),
			IBAN:    validIBAN,
			BIC:     validBIC,
			SIRET:   "73282932000074",
			SIREN:   "732829320",
			VAT:     "FR44732829320",
			NIR:     "2 55 08 14 168 025 38",
		})

		s.True(report.ApprovalReady)
		s.Len(report.Fields, 6)
		for _, field := range report.Fields {
			s.True(field.Present, "field %s should be present", field.Field)
			s.True(field.Verdict.Valid, "field %s should be valid: %s", field.Field, field.Verdict.Reason)
		}
	})

	s.Run("a missing IBAN is not approval ready", func() {
		report := s.service.BankProfileReport(models.PayeeBankProfile{BIC: validBIC})
		s.False(report.ApprovalReady)

		iban := report.Field("iban")
		s.Require().NotNil(iban)
		s.False(iban.Present)
		s.True(iban.Verdict.Valid, "absence is not a validation failure")
	})

	s.Run("an invalid tax identifier does not block readiness", func() {
		report := s.service.BankProfileReport(models.PayeeBankProfile{
			IBAN:  validIBAN,
			SIRET: "73282932000075",
		})

		s.True(report.ApprovalReady)
		siret := report.Field("siret")
		s.Require().NotNil(siret)
		s.True(siret.Present)
		s.False(siret.Verdict.Valid)
		s.Contains(siret.Verdict.Reason, "checksum")
	})

	s.Run("a corrupted IBAN is reported with its reason", func() {
		report := s.service.BankProfileReport(models.PayeeBankProfile{IBAN: corruptedIBAN})

		s.False(report.ApprovalReady)
		iban := report.Field("iban")
		s.Require().NotNil(iban)
		s.False(iban.Verdict.Valid)
		s.Contains(iban.Verdict.Reason, "checksum")
	})
}

// =============================================================================
// Audit Trail Tests
// =============================================================================

func (s *PayrollServiceSuite) TestAuditTrail() {
	s.Run("a full lifecycle leaves an ordered trail", func() {
		p := s.paidFee("Lena Moreau")

		events, err := s.auditStore.ListByPayment(context.Background(), p.ID)
		s.Require().NoError(err)

		actions := make([]string, len(events))
		for i, evt := range events {
			actions[i] = evt.Action
		}
		s.Equal([]string{
			"payment_created",
			"payment_submitted",
			"payment_approved",
			"payment_scheduled",
			"payment_paid",
		}, actions)

		for _, evt := range events {
			s.Equal(p.Reference, evt.Reference)
			s.Equal(s.actor.String(), evt.ActorID)
			s.Equal(s.now, evt.Timestamp)
		}
	})

	s.Run("a refused approval is recorded", func() {
		p := s.pendingFee("Marc Dubois")

		_, err := s.service.Approve(s.ctx, p.ID, models.PayeeBankProfile{PayeeID: p.PayeeID})
		s.Require().Error(err)

		events, err := s.auditStore.ListByPayment(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Require().NotEmpty(events)

		last := events[len(events)-1]
		s.Equal("payment_approval_refused", last.Action)
		s.Contains(last.Detail, "Marc Dubois")
	})

	s.Run("the request id rides along when the context carries one", func() {
		ctx := requestcontext.WithRequestID(s.ctx, "req-7f3a")

		p, err := s.service.CreatePayment(ctx, CreatePaymentInput{
			PayeeID:   id.NewPersonID(),
			PayeeName: "Nina Valette",
			Kind:      models.KindFee,
			Amount:    decimal.NewFromInt(900),
			Currency:  money.EUR,
		})
		s.Require().NoError(err)

		events, err := s.auditStore.ListByPayment(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal("req-7f3a", events[0].RequestID)
	})
}
