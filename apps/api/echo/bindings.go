package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/nidhamu/core"
	"github.com/trezcool/nidhamu/core/record"
)

// accepted formats for the `from`/`to` query params
var dateFormats = []string{time.RFC3339, "2006-01-02"}

type RecordFilter struct {
	Filter record.Filter
}

func (rf *RecordFilter) Bind(ctx echo.Context) error {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return nil
	}

	rf.Filter.ClassID = data.Get("class_id")
	rf.Filter.StudentID = data.Get("student_id")

	var err error
	if rf.Filter.From, err = parseDateParam(data.Get("from")); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "from", Error: err.Error()})
	}
	if rf.Filter.To, err = parseDateParam(data.Get("to")); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: err.Error()})
	}
	return nil
}

func parseDateParam(val string) (time.Time, error) {
	if val == "" {
		return time.Time{}, nil
	}
	var t time.Time
	var err error
	for _, format := range dateFormats {
		if t, err = time.Parse(format, val); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
