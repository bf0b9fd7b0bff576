package main

import (
	"context"
	"fmt"

	"github.com/trezcool/nidhamu/core/rule"
)

var defaultRules = []rule.NewRule{
	{Content: "Late arrival to class", Points: 2},
	{Content: "Uniform violation", Points: 2},
	{Content: "Disruptive behavior during lessons", Points: 5},
	{Content: "Skipping class without permission", Points: 10},
	{Content: "Fighting or physical aggression", Points: 20},
	{Content: "Classroom kept clean for the whole week", Points: 5, IsBonus: true},
	{Content: "Outstanding participation in school activities", Points: 10, IsBonus: true},
}

// seedRules loads the default conduct rules. It refuses to run on a
// non-empty rule table to keep hand-edited rule sets intact.
func (cli *commandLine) seedRules() error {
	ctx := context.Background()
	svc := rule.NewService(cli.ruleRepo)

	existing, err := svc.QueryAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("rule table is not empty (%d rules); refusing to seed", len(existing))
	}

	for _, nr := range defaultRules {
		if _, err = svc.Create(ctx, nr); err != nil {
			return err
		}
	}
	fmt.Printf("seeded %d rules\n", len(defaultRules))
	return nil
}
