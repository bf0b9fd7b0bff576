package record

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nidhamu/core"
	"github.com/trezcool/nidhamu/core/rule"
	"github.com/trezcool/nidhamu/core/school"
)

var ErrNotFound = core.NewNotFoundError("record form not found")

type (
	// ClassDelta is one signed adjustment to one class's point balance.
	ClassDelta struct {
		ClassID string
		Delta   int
	}

	// Move is the full plan for modifying a record form: the updated record,
	// the roster change when the student changed, and the class point
	// adjustments. The repository applies the whole plan atomically.
	Move struct {
		Record       RecordForm
		OldStudentID string // non-empty when the student changed
		ClassDeltas  []ClassDelta
	}

	Repository interface {
		GetRecordByID(ctx context.Context, id string) (RecordForm, error)
		QueryAllRecords(ctx context.Context) ([]RecordForm, error)
		QueryRecordCodes(ctx context.Context) ([]string, error)
		FilterRecords(ctx context.Context, filter Filter) ([]RecordForm, error)

		// ApplyCreate inserts the record, adds delta to its class's points and
		// appends the record to its student's recordForms, atomically.
		ApplyCreate(ctx context.Context, rec RecordForm, delta int) (RecordForm, error)
		// ApplyDelete removes the record, adds reversal to its class's points
		// and pulls the record from its student's recordForms, atomically.
		ApplyDelete(ctx context.Context, rec RecordForm, reversal int) error
		// ApplyMove persists a Move plan atomically.
		ApplyMove(ctx context.Context, plan Move) (RecordForm, error)
	}

	Service struct {
		repo       Repository
		schoolRepo school.Repository
		ruleRepo   rule.Repository
	}
)

func NewService(repo Repository, schoolRepo school.Repository, ruleRepo rule.Repository) *Service {
	return &Service{repo: repo, schoolRepo: schoolRepo, ruleRepo: ruleRepo}
}

func (svc *Service) QueryAll(ctx context.Context) ([]RecordForm, error) {
	return svc.repo.QueryAllRecords(ctx)
}

func (svc *Service) Filter(ctx context.Context, filter Filter) ([]RecordForm, error) {
	return svc.repo.FilterRecords(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (RecordForm, error) {
	return svc.repo.GetRecordByID(ctx, id)
}

// Create logs a new record form for userID and applies the rule's signed
// delta to the target class's point balance. A missing rule is a hard
// failure: nothing is written.
func (svc *Service) Create(ctx context.Context, userID string, nr NewRecord) (RecordForm, error) {
	st, err := svc.schoolRepo.GetStudentByID(ctx, nr.StudentID)
	if err != nil {
		return RecordForm{}, err
	}
	clsID := nr.ClassID
	if clsID == "" {
		clsID = st.ClassID
	}
	if _, err = svc.schoolRepo.GetClassByID(ctx, clsID); err != nil {
		return RecordForm{}, err
	}
	rl, err := svc.ruleRepo.GetRuleByID(ctx, nr.RuleID)
	if err != nil {
		return RecordForm{}, err
	}

	codes, err := svc.repo.QueryRecordCodes(ctx)
	if err != nil {
		return RecordForm{}, err
	}
	happenedAt := nr.HappenedAt
	if happenedAt.IsZero() {
		happenedAt = time.Now()
	}
	now := time.Now().UTC()
	rec := RecordForm{
		ID:         uuid.New().String(),
		Code:       core.NextCode(CodePrefix, codes),
		HappenedAt: happenedAt.UTC(),
		UserID:     userID,
		StudentID:  st.ID,
		ClassID:    clsID,
		RuleID:     rl.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.ApplyCreate(ctx, rec, rl.Delta())
}

// Delete removes a record form and reverses its point contribution. When the
// record's rule no longer exists the contribution counts as zero and no
// reversal is applied.
func (svc *Service) Delete(ctx context.Context, id string) error {
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return err
	}
	reversal := 0
	if rl, err := svc.ruleRepo.GetRuleByID(ctx, rec.RuleID); err == nil {
		reversal = -rl.Delta()
	} else if err != rule.ErrNotFound {
		return err
	}
	return svc.repo.ApplyDelete(ctx, rec, reversal)
}

// Update reattributes a record form: student, class and rule may all change
// in one call. The affected class balances are adjusted so that each class
// ends up holding exactly the sum of its currently-attributed deltas; when
// the class is unchanged the net difference is applied once.
func (svc *Service) Update(ctx context.Context, id, userID string, ur UpdateRecord) (RecordForm, error) {
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return RecordForm{}, err
	}

	newRule, err := svc.ruleRepo.GetRuleByID(ctx, ur.RuleID)
	if err != nil {
		return RecordForm{}, err
	}
	newDelta := newRule.Delta()

	oldDelta := 0
	if oldRule, err := svc.ruleRepo.GetRuleByID(ctx, rec.RuleID); err == nil {
		oldDelta = oldRule.Delta()
	} else if err != rule.ErrNotFound {
		return RecordForm{}, err
	}

	plan := Move{Record: rec}

	if ur.StudentID != rec.StudentID {
		if _, err = svc.schoolRepo.GetStudentByID(ctx, ur.StudentID); err != nil {
			return RecordForm{}, err
		}
		plan.OldStudentID = rec.StudentID
		plan.Record.StudentID = ur.StudentID
	}

	if ur.ClassID != rec.ClassID {
		if _, err = svc.schoolRepo.GetClassByID(ctx, ur.ClassID); err != nil {
			return RecordForm{}, err
		}
		plan.ClassDeltas = []ClassDelta{
			{ClassID: rec.ClassID, Delta: -oldDelta},
			{ClassID: ur.ClassID, Delta: newDelta},
		}
		plan.Record.ClassID = ur.ClassID
	} else if net := newDelta - oldDelta; net != 0 {
		plan.ClassDeltas = []ClassDelta{{ClassID: rec.ClassID, Delta: net}}
	}

	plan.Record.RuleID = newRule.ID
	if userID != "" {
		plan.Record.UserID = userID
	}
	if !ur.HappenedAt.IsZero() {
		plan.Record.HappenedAt = ur.HappenedAt.UTC()
	}
	plan.Record.UpdatedAt = time.Now().UTC()

	return svc.repo.ApplyMove(ctx, plan)
}

// WeeklyReport sums the signed point contributions of record forms per class
// per ISO week over [from, to]. Records whose rule has been deleted count as
// zero.
func (svc *Service) WeeklyReport(ctx context.Context, from, to time.Time) ([]WeeklyClassPoints, error) {
	recs, err := svc.repo.FilterRecords(ctx, Filter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	rules, err := svc.ruleRepo.QueryAllRules(ctx)
	if err != nil {
		return nil, err
	}
	deltas := make(map[string]int, len(rules))
	for _, rl := range rules {
		deltas[rl.ID] = rl.Delta()
	}

	type bucket struct {
		classID    string
		year, week int
	}
	sums := make(map[bucket]*WeeklyClassPoints)
	for _, rec := range recs {
		year, week := rec.HappenedAt.ISOWeek()
		key := bucket{classID: rec.ClassID, year: year, week: week}
		row, ok := sums[key]
		if !ok {
			row = &WeeklyClassPoints{ClassID: rec.ClassID, Year: year, Week: week}
			sums[key] = row
		}
		row.Points += deltas[rec.RuleID]
		row.Records++
	}

	report := make([]WeeklyClassPoints, 0, len(sums))
	for _, row := range sums {
		report = append(report, *row)
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].Year != report[j].Year {
			return report[i].Year < report[j].Year
		}
		if report[i].Week != report[j].Week {
			return report[i].Week < report[j].Week
		}
		return report[i].ClassID < report[j].ClassID
	})
	return report, nil
}
