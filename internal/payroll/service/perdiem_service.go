package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"roadbook/internal/audit"
	"roadbook/internal/payroll/models"
	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
	"roadbook/pkg/platform/sentinel"
	"roadbook/pkg/requestcontext"
)

// GeneratePerDiems creates one per-diem draft per eligible person per
// eligible schedule day. People are processed concurrently; days within a
// person sequentially. Re-running over an overlapping range is idempotent:
// existing (payee, tour, day) payments are skipped, never duplicated.
//
// The batch never fails as a whole. The error return covers request
// validation only; per-candidate failures land in the outcome rows.
func (s *Service) GeneratePerDiems(ctx context.Context, req models.PerDiemRequest) (*models.PerDiemBatch, error) {
	if err := validatePerDiemRequest(req); err != nil {
		return nil, err
	}
	req.ExcludedDayTypes = req.NormalizedExclusions()
	amounts, currency, err := s.resolvePerDiemAmounts(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	perPerson := make([][]models.PerDiemOutcome, len(req.People))

	g, gctx := errgroup.WithContext(ctx)
	for i, person := range req.People {
		g.Go(func() error {
			perPerson[i] = s.generatePersonPerDiems(gctx, req, person, amounts[person.Role], currency)
			return nil
		})
	}
	// Workers record failures as outcomes, never as errors.
	_ = g.Wait()

	batch := &models.PerDiemBatch{BatchID: id.NewBatchID(), TourID: req.TourID}
	for _, rows := range perPerson {
		batch.Outcomes = append(batch.Outcomes, rows...)
	}
	for i := range batch.Outcomes {
		switch batch.Outcomes[i].Status {
		case models.PerDiemCreated:
			batch.Created++
		case models.PerDiemSkippedDay:
			batch.SkippedDayType++
		case models.PerDiemSkippedExists:
			batch.SkippedExisting++
		case models.PerDiemFailed:
			batch.Failed++
		}
		s.metrics.IncrementPerDiemOutcome(string(batch.Outcomes[i].Status))
	}
	s.metrics.ObservePerDiemBatchSize(len(batch.Outcomes))

	s.logAudit(ctx, audit.EventPerDiemBatchGenerated, nil,
		fmt.Sprintf("tour %s: %d created, %d skipped, %d failed",
			batch.TourID, batch.Created, batch.SkippedDayType+batch.SkippedExisting, batch.Failed),
		"batch_id", batch.BatchID.String(),
		"tour_id", batch.TourID.String(),
		"created", batch.Created,
		"skipped_day_type", batch.SkippedDayType,
		"skipped_existing", batch.SkippedExisting,
		"failed", batch.Failed,
		"duration", time.Since(start),
	)
	return batch, nil
}

func validatePerDiemRequest(req models.PerDiemRequest) error {
	if req.TourID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tour id is required")
	}
	if len(req.Schedule) == 0 {
		return dErrors.New(dErrors.CodeValidation, "schedule has no days")
	}
	if len(req.People) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no people to pay")
	}
	seen := make(map[id.PersonID]struct{}, len(req.People))
	for i, person := range req.People {
		if person.ID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("person at index %d has no id", i))
		}
		if strings.TrimSpace(person.Name) == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("person at index %d has no name", i))
		}
		if _, dup := seen[person.ID]; dup {
			return dErrors.New(dErrors.CodeValidation, "person "+person.Name+" listed twice")
		}
		seen[person.ID] = struct{}{}
	}
	for i, day := range req.Schedule {
		if day.Date.IsZero() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("schedule day at index %d has no date", i))
		}
	}
	return nil
}

// resolvePerDiemAmounts maps each role in the request to a daily amount.
// An explicit request amount applies to everyone in the request currency;
// otherwise rates and currency come from the rate table.
func (s *Service) resolvePerDiemAmounts(req models.PerDiemRequest) (map[models.Role]decimal.Decimal, money.Currency, error) {
	amounts := make(map[models.Role]decimal.Decimal, len(req.People))

	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, "", dErrors.New(dErrors.CodeValidation, "per diem amount must be positive")
		}
		currency, err := money.ParseCurrency(string(req.Currency))
		if err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeValidation, "per diem currency")
		}
		for _, person := range req.People {
			amounts[person.Role] = *req.Amount
		}
		return amounts, currency, nil
	}

	currency := s.rates.Currency()
	if req.Currency != "" && req.Currency != currency {
		return nil, "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("rate table is denominated in %s, not %s", currency, req.Currency))
	}
	for _, person := range req.People {
		rate, ok := s.rates.DailyRate(person.Role)
		if !ok {
			return nil, "", dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("no daily rate configured for role %s", person.Role))
		}
		amounts[person.Role] = rate
	}
	return amounts, currency, nil
}

func (s *Service) generatePersonPerDiems(ctx context.Context, req models.PerDiemRequest, person models.PerDiemPerson, amount decimal.Decimal, currency money.Currency) []models.PerDiemOutcome {
	outcomes := make([]models.PerDiemOutcome, 0, len(req.Schedule))
	for _, day := range req.Schedule {
		date := models.CivilDate(day.Date)

		var outcome models.PerDiemOutcome
		switch {
		case ctx.Err() != nil:
			outcome = models.PerDiemOutcome{
				PersonID: person.ID,
				Date:     date,
				Status:   models.PerDiemFailed,
				Reason:   "batch cancelled",
				Err:      ctx.Err(),
			}
		case req.Excluded(day.Type):
			outcome = models.PerDiemOutcome{
				PersonID: person.ID,
				Date:     date,
				Status:   models.PerDiemSkippedDay,
				Reason:   "day type " + string(day.Type) + " excluded",
			}
		default:
			outcome = s.createPerDiem(ctx, req.TourID, person, date, amount, currency)
		}

		outcomes = append(outcomes, outcome)
		s.logger.DebugContext(ctx, "per diem candidate",
			"person", person.Name,
			"date", date.Format("2006-01-02"),
			"status", string(outcome.Status),
		)
	}
	return outcomes
}

// createPerDiem handles one (person, day) candidate. The pre-check keeps
// reruns cheap; the store's natural-key uniqueness still backstops races,
// where the lost sequence number burns but no duplicate is written.
func (s *Service) createPerDiem(ctx context.Context, tourID id.TourID, person models.PerDiemPerson, date time.Time, amount decimal.Decimal, currency money.Currency) models.PerDiemOutcome {
	outcome := models.PerDiemOutcome{PersonID: person.ID, Date: date}

	exists, err := s.payments.HasPerDiem(ctx, person.ID, tourID, date)
	if err != nil {
		outcome.Status = models.PerDiemFailed
		outcome.Reason = "store lookup failed"
		outcome.Err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing per diem")
		return outcome
	}
	if exists {
		outcome.Status = models.PerDiemSkippedExists
		outcome.Reason = "per diem already recorded"
		return outcome
	}

	now := requestcontext.Now(ctx)
	reference, err := s.nextReference(ctx, now.Year())
	if err != nil {
		outcome.Status = models.PerDiemFailed
		outcome.Reason = "reference allocation failed"
		outcome.Err = err
		return outcome
	}

	payment, err := models.NewPayment(id.NewPaymentID(), reference, person.ID, person.Name, models.KindPerDiem, amount, currency, now)
	if err != nil {
		outcome.Status = models.PerDiemFailed
		outcome.Reason = "payment construction failed"
		outcome.Err = err
		return outcome
	}
	payment.TourID = tourID
	payment.PerDiemDate = &date
	payment.Description = "per diem for " + date.Format("2006-01-02")

	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			outcome.Status = models.PerDiemSkippedExists
			outcome.Reason = "per diem already recorded"
			return outcome
		}
		outcome.Status = models.PerDiemFailed
		outcome.Reason = "store create failed"
		outcome.Err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to create per diem payment")
		return outcome
	}

	s.metrics.IncrementCreated(string(models.KindPerDiem))
	s.logAudit(ctx, audit.EventPaymentCreated, payment, "per diem batch", "payee", person.Name)
	outcome.Status = models.PerDiemCreated
	outcome.Payment = payment
	return outcome
}
