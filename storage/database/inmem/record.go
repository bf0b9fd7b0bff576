package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/nidhamu/core/record"
)

type recordRepository struct {
	db *DB
}

var _ record.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) *recordRepository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) GetRecordByID(_ context.Context, id string) (record.RecordForm, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.records[id]; ok {
		return *rec, nil
	}
	return record.RecordForm{}, record.ErrNotFound
}

func (repo *recordRepository) QueryAllRecords(_ context.Context) ([]record.RecordForm, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(record.Filter{}), nil
}

func (repo *recordRepository) QueryRecordCodes(_ context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	codes := make([]string, 0, len(repo.db.records))
	for _, rec := range repo.db.records {
		codes = append(codes, rec.Code)
	}
	return codes, nil
}

func (repo *recordRepository) FilterRecords(_ context.Context, filter record.Filter) ([]record.RecordForm, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(filter), nil
}

// query returns matching records, most recent first. Callers must hold the lock.
func (repo *recordRepository) query(filter record.Filter) []record.RecordForm {
	recs := make([]record.RecordForm, 0, len(repo.db.records))
	for _, rec := range repo.db.records {
		if filter.ClassID != "" && rec.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if !filter.From.IsZero() && rec.HappenedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.HappenedAt.After(filter.To) {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].HappenedAt.After(recs[j].HappenedAt) })
	return recs
}

func (repo *recordRepository) ApplyCreate(_ context.Context, rec record.RecordForm, delta int) (record.RecordForm, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.records[rec.ID] = &rec
	if cls, ok := repo.db.classes[rec.ClassID]; ok {
		cls.Points += delta
	}
	if st, ok := repo.db.students[rec.StudentID]; ok {
		st.RecordForms = appendUniqueStr(st.RecordForms, rec.ID)
	}
	return rec, nil
}

func (repo *recordRepository) ApplyDelete(_ context.Context, rec record.RecordForm, reversal int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.records[rec.ID]; !ok {
		return record.ErrNotFound
	}
	if cls, ok := repo.db.classes[rec.ClassID]; ok {
		cls.Points += reversal
	}
	if st, ok := repo.db.students[rec.StudentID]; ok {
		st.RecordForms = withoutStr(st.RecordForms, rec.ID)
	}
	delete(repo.db.records, rec.ID)
	return nil
}

func (repo *recordRepository) ApplyMove(_ context.Context, plan record.Move) (record.RecordForm, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.records[plan.Record.ID]
	if !ok {
		return record.RecordForm{}, record.ErrNotFound
	}
	if plan.OldStudentID != "" {
		if st, ok := repo.db.students[plan.OldStudentID]; ok {
			st.RecordForms = withoutStr(st.RecordForms, rec.ID)
		}
		if st, ok := repo.db.students[plan.Record.StudentID]; ok {
			st.RecordForms = appendUniqueStr(st.RecordForms, rec.ID)
		}
	}
	for _, cd := range plan.ClassDeltas {
		if cls, ok := repo.db.classes[cd.ClassID]; ok {
			cls.Points += cd.Delta
		}
	}
	*rec = plan.Record
	return *rec, nil
}
