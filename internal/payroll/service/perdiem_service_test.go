package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"roadbook/internal/payroll/models"
	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
)

// =============================================================================
// Per-Diem Generation Tests
// =============================================================================

func tourSchedule() []models.TourDay {
	return []models.TourDay{
		{Date: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), Type: models.DayTypeShow},
		{Date: time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC), Type: models.DayTypeTravel},
		{Date: time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC), Type: models.DayTypeOff},
		{Date: time.Date(2026, 4, 23, 0, 0, 0, 0, time.UTC), Type: models.DayTypeShow},
	}
}

func tourPeople() []models.PerDiemPerson {
	return []models.PerDiemPerson{
		{ID: id.NewPersonID(), Name: "Lena Moreau", Role: models.RoleMusician},
		{ID: id.NewPersonID(), Name: "Marc Dubois", Role: models.RoleCrew},
		{ID: id.NewPersonID(), Name: "Nadia Kessler", Role: models.RoleDriver},
	}
}

func (s *PayrollServiceSuite) TestGeneratePerDiems() {
	req := models.PerDiemRequest{
		TourID:           id.NewTourID(),
		Schedule:         tourSchedule(),
		People:           tourPeople(),
		ExcludedDayTypes: []models.DayType{models.DayTypeOff},
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)

	s.False(batch.BatchID.IsNil())
	s.Equal(req.TourID, batch.TourID)

	// 3 people x 3 eligible days created, the day off skipped for everyone.
	s.Equal(9, batch.Created)
	s.Equal(3, batch.SkippedDayType)
	s.Zero(batch.SkippedExisting)
	s.Zero(batch.Failed)
	s.Len(batch.Outcomes, 12)

	references := make(map[string]bool)
	for _, outcome := range batch.Outcomes {
		switch outcome.Status {
		case models.PerDiemCreated:
			s.Require().NotNil(outcome.Payment)
			p := outcome.Payment
			s.Equal(models.StatusDraft, p.Status)
			s.Equal(models.KindPerDiem, p.Kind)
			s.Equal(req.TourID, p.TourID)
			s.Equal(money.EUR, p.Currency)
			s.Require().NotNil(p.PerDiemDate)
			s.Equal(outcome.Date, *p.PerDiemDate)
			s.Equal("per diem for "+outcome.Date.Format("2006-01-02"), p.Description)
			references[p.Reference] = true
		case models.PerDiemSkippedDay:
			s.Equal(time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC), outcome.Date)
			s.Contains(outcome.Reason, "day_off")
		default:
			s.Failf("unexpected outcome", "status %s for %s", outcome.Status, outcome.PersonID)
		}
	}
	s.Len(references, 9, "every created per diem should carry a distinct reference")
}

// Exclusion lists come in from spreadsheets, so casing, padding, and
// duplicates must not change what gets skipped.
func (s *PayrollServiceSuite) TestGeneratePerDiems_MessyExclusionList() {
	req := models.PerDiemRequest{
		TourID:           id.NewTourID(),
		Schedule:         tourSchedule(),
		People:           tourPeople()[:1],
		ExcludedDayTypes: []models.DayType{" Day_Off ", "DAY_OFF", "travel_day "},
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(2, batch.Created)
	s.Equal(2, batch.SkippedDayType)
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_RoleRates() {
	people := tourPeople()
	req := models.PerDiemRequest{
		TourID:   id.NewTourID(),
		Schedule: tourSchedule()[:1],
		People:   people,
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(3, batch.Created)

	wantRates := map[id.PersonID]string{
		people[0].ID: "45",   // musician
		people[1].ID: "40",   // crew
		people[2].ID: "42.5", // driver
	}
	for _, outcome := range batch.Outcomes {
		s.Require().NotNil(outcome.Payment)
		want := decimal.RequireFromString(wantRates[outcome.PersonID])
		s.True(outcome.Payment.Amount.Equal(want),
			"amount %s != %s for %s", outcome.Payment.Amount, want, outcome.PersonID)
	}
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_ExplicitAmount() {
	amount := decimal.RequireFromString("60.50")
	req := models.PerDiemRequest{
		TourID:   id.NewTourID(),
		Schedule: tourSchedule()[:2],
		People:   tourPeople(),
		Amount:   &amount,
		Currency: money.USD,
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(6, batch.Created)

	for _, outcome := range batch.Outcomes {
		s.Require().NotNil(outcome.Payment)
		s.True(outcome.Payment.Amount.Equal(amount))
		s.Equal(money.USD, outcome.Payment.Currency)
	}
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_Idempotent() {
	req := models.PerDiemRequest{
		TourID:           id.NewTourID(),
		Schedule:         tourSchedule(),
		People:           tourPeople(),
		ExcludedDayTypes: []models.DayType{models.DayTypeOff},
	}

	first, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(9, first.Created)

	s.Run("a re-run creates nothing new", func() {
		second, err := s.service.GeneratePerDiems(s.ctx, req)
		s.Require().NoError(err)

		s.Zero(second.Created)
		s.Equal(9, second.SkippedExisting)
		s.Equal(3, second.SkippedDayType)
		s.Zero(second.Failed)

		for _, outcome := range second.Outcomes {
			if outcome.Status == models.PerDiemSkippedExists {
				s.Equal("per diem already recorded", outcome.Reason)
				s.Nil(outcome.Payment)
			}
		}
	})

	s.Run("extending the window only fills the gap", func() {
		req.Schedule = append(tourSchedule(),
			models.TourDay{Date: time.Date(2026, 4, 24, 0, 0, 0, 0, time.UTC), Type: models.DayTypeShow})

		third, err := s.service.GeneratePerDiems(s.ctx, req)
		s.Require().NoError(err)

		s.Equal(3, third.Created, "one new day for three people")
		s.Equal(9, third.SkippedExisting)
		s.Equal(3, third.SkippedDayType)
	})
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_CivilDates() {
	paris, err := time.LoadLocation("Europe/Paris")
	s.Require().NoError(err)

	req := models.PerDiemRequest{
		TourID: id.NewTourID(),
		People: tourPeople()[:1],
		Schedule: []models.TourDay{
			// 15:00 in Paris is still April 20 in UTC.
			{Date: time.Date(2026, 4, 20, 15, 0, 0, 0, paris), Type: models.DayTypeShow},
		},
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)
	s.Require().Equal(1, batch.Created)

	created := batch.Outcomes[0]
	s.Equal(time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), created.Date)
	s.Require().NotNil(created.Payment.PerDiemDate)
	s.True(created.Payment.PerDiemDate.Equal(created.Date))
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_Validation() {
	valid := models.PerDiemRequest{
		TourID:   id.NewTourID(),
		Schedule: tourSchedule(),
		People:   tourPeople(),
	}

	cases := []struct {
		name     string
		mutate   func(*models.PerDiemRequest)
		fragment string
	}{
		{"nil tour", func(r *models.PerDiemRequest) { r.TourID = id.TourID{} }, "tour id"},
		{"empty schedule", func(r *models.PerDiemRequest) { r.Schedule = nil }, "schedule"},
		{"no people", func(r *models.PerDiemRequest) { r.People = nil }, "people"},
		{"person without id", func(r *models.PerDiemRequest) {
			r.People = append(r.People, models.PerDiemPerson{Name: "Ghost", Role: models.RoleCrew})
		}, "has no id"},
		{"person without name", func(r *models.PerDiemRequest) {
			r.People = append(r.People, models.PerDiemPerson{ID: id.NewPersonID(), Role: models.RoleCrew})
		}, "has no name"},
		{"person listed twice", func(r *models.PerDiemRequest) {
			r.People = append(r.People, r.People[0])
		}, "listed twice"},
		{"day without date", func(r *models.PerDiemRequest) {
			r.Schedule = append(r.Schedule, models.TourDay{Type: models.DayTypeShow})
		}, "has no date"},
		{"negative explicit amount", func(r *models.PerDiemRequest) {
			negative := decimal.NewFromInt(-5)
			r.Amount = &negative
			r.Currency = money.EUR
		}, "positive"},
		{"explicit amount without currency", func(r *models.PerDiemRequest) {
			amount := decimal.NewFromInt(50)
			r.Amount = &amount
		}, "currency"},
		{"currency fighting the rate table", func(r *models.PerDiemRequest) {
			r.Currency = money.USD
		}, "denominated in EUR"},
		{"role without a daily rate", func(r *models.PerDiemRequest) {
			r.People = append(r.People, models.PerDiemPerson{
				ID: id.NewPersonID(), Name: "Pia Brandt", Role: "pyrotechnician",
			})
		}, "pyrotechnician"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := valid
			req.People = append([]models.PerDiemPerson(nil), valid.People...)
			req.Schedule = append([]models.TourDay(nil), valid.Schedule...)
			tc.mutate(&req)

			_, err := s.service.GeneratePerDiems(s.ctx, req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
			s.Contains(err.Error(), tc.fragment)
		})
	}
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_Cancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	req := models.PerDiemRequest{
		TourID:   id.NewTourID(),
		Schedule: tourSchedule()[:2],
		People:   tourPeople(),
	}

	batch, err := s.service.GeneratePerDiems(ctx, req)
	s.Require().NoError(err, "cancellation lands in outcome rows, not the batch error")

	s.Equal(len(batch.Outcomes), batch.Failed)
	for _, outcome := range batch.Outcomes {
		s.Equal(models.PerDiemFailed, outcome.Status)
		s.Equal("batch cancelled", outcome.Reason)
		s.ErrorIs(outcome.Err, context.Canceled)
	}
}

// TestGeneratePerDiems_ManyPeople exercises the per-person fan-out: every
// candidate lands exactly once with a distinct reference.
func (s *PayrollServiceSuite) TestGeneratePerDiems_ManyPeople() {
	people := make([]models.PerDiemPerson, 20)
	for i := range people {
		people[i] = models.PerDiemPerson{
			ID:   id.NewPersonID(),
			Name: fmt.Sprintf("Crew Member %02d", i),
			Role: models.RoleCrew,
		}
	}
	schedule := make([]models.TourDay, 5)
	for i := range schedule {
		schedule[i] = models.TourDay{
			Date: time.Date(2026, 5, 1+i, 0, 0, 0, 0, time.UTC),
			Type: models.DayTypeShow,
		}
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, models.PerDiemRequest{
		TourID:   id.NewTourID(),
		Schedule: schedule,
		People:   people,
	})
	s.Require().NoError(err)

	s.Equal(100, batch.Created)
	s.Zero(batch.Failed)

	references := make(map[string]bool, batch.Created)
	for _, outcome := range batch.Outcomes {
		s.Require().NotNil(outcome.Payment)
		references[outcome.Payment.Reference] = true
	}
	s.Len(references, 100)
}

func (s *PayrollServiceSuite) TestGeneratePerDiems_AuditTrail() {
	req := models.PerDiemRequest{
		TourID:   id.NewTourID(),
		Schedule: tourSchedule()[:1],
		People:   tourPeople(),
	}

	batch, err := s.service.GeneratePerDiems(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(3, batch.Created)

	s.Run("the batch summary lands in the trail", func() {
		events, err := s.auditStore.ListRecent(context.Background(), 1)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal("per_diem_batch_generated", events[0].Action)
		s.Contains(events[0].Detail, "3 created")
	})

	s.Run("each created payment is recorded", func() {
		for _, outcome := range batch.Outcomes {
			events, err := s.auditStore.ListByPayment(context.Background(), outcome.Payment.ID)
			s.Require().NoError(err)
			s.Require().Len(events, 1)
			s.Equal("payment_created", events[0].Action)
		}
	})
}
