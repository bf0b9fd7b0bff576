package rule

import (
	"time"

	"github.com/trezcool/nidhamu/core"
)

// CodePrefix prefixes sequential rule codes: RL-001, RL-002, ...
const CodePrefix = "RL"

// Rule is a scoring policy entry. Points is always stored as a positive
// magnitude; the signed contribution is derived from IsBonus via Delta.
type Rule struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Content   string    `json:"content"`
	Points    int       `json:"points"`
	IsBonus   bool      `json:"is_bonus"` // true adds points, false subtracts
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Delta returns the signed point contribution of one application of the rule.
func (r Rule) Delta() int {
	if r.IsBonus {
		return r.Points
	}
	return -r.Points
}

type NewRule struct {
	Content string `json:"content" validate:"required"`
	Points  int    `json:"points" validate:"required,gt=0"`
	IsBonus bool   `json:"is_bonus"`
}

func (nr *NewRule) Validate() error {
	nr.Content = core.CleanString(nr.Content)
	return core.Validate.Struct(nr)
}

type UpdateRule struct {
	Content string `json:"content"`
	Points  int    `json:"points" validate:"omitempty,gt=0"`
	IsBonus *bool  `json:"is_bonus"`
}

func (ur *UpdateRule) Validate() error {
	ur.Content = core.CleanString(ur.Content)
	return core.Validate.Struct(ur)
}
