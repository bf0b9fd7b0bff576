package inmemdb

import (
	"sync"

	"github.com/trezcool/nidhamu/core/record"
	"github.com/trezcool/nidhamu/core/response"
	"github.com/trezcool/nidhamu/core/rule"
	"github.com/trezcool/nidhamu/core/school"
	"github.com/trezcool/nidhamu/core/user"
)

// DB is an in-memory store keyed by entity id. A single lock guards all
// tables so cross-entity batches stay atomic, mirroring the transactional
// guarantees of the SQL store.
type DB struct {
	mutex sync.RWMutex

	classes   map[string]*school.Class
	teachers  map[string]*school.Teacher
	students  map[string]*school.Student
	rules     map[string]*rule.Rule
	records   map[string]*record.RecordForm
	users     map[string]*user.User
	responses map[string]*response.Response
}

func Open() (*DB, error) {
	return &DB{
		classes:   make(map[string]*school.Class),
		teachers:  make(map[string]*school.Teacher),
		students:  make(map[string]*school.Student),
		rules:     make(map[string]*rule.Rule),
		records:   make(map[string]*record.RecordForm),
		users:     make(map[string]*user.User),
		responses: make(map[string]*response.Response),
	}, nil
}

// helpers

func copyStrs(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func withoutStr(src []string, s string) []string {
	dst := make([]string, 0, len(src))
	for _, v := range src {
		if v != s {
			dst = append(dst, v)
		}
	}
	return dst
}

func appendUniqueStr(src []string, s string) []string {
	for _, v := range src {
		if v == s {
			return src
		}
	}
	return append(src, s)
}
