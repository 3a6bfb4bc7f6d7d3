package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/koscakluka/vox-core/core/tools"
)

type rollParams struct {
	Sides int `json:"sides,omitempty" jsonschema:"description=Number of sides on the die,default=6"`
}

func demoTools() []tools.Provider {
	return []tools.Provider{
		tools.NewFunc("current_time", "Returns the current local date and time.",
			func(context.Context, struct{}) (string, error) {
				return time.Now().Format(time.RFC1123), nil
			}),
		tools.NewFunc("roll_dice", "Rolls a die and returns the result.",
			func(_ context.Context, params rollParams) (string, error) {
				sides := params.Sides
				if sides <= 0 {
					sides = 6
				}
				return fmt.Sprintf("rolled %d on a d%d", rand.IntN(sides)+1, sides), nil
			}),
	}
}
