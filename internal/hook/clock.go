/*
Copyright 2025 The Cozystack Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package hook

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// Sleep pauses for d on clk unless ctx is already done.
// Polling loops call it between two reads of remote state.
func Sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	clk.Sleep(d)
	return ctx.Err()
}

// PollUntil calls condition every interval until it returns true or an
// error, or until timeout has passed on clk.
func PollUntil(ctx context.Context, clk clock.Clock, interval, timeout time.Duration, condition func(context.Context) (bool, error)) error {
	if clk == nil {
		clk = clock.RealClock{}
	}
	start := clk.Now()
	for {
		done, err := condition(ctx)
		if err != nil || done {
			return err
		}
		if clk.Since(start) >= timeout {
			return fmt.Errorf("timed out after %s", timeout)
		}
		if err := Sleep(ctx, clk, interval); err != nil {
			return err
		}
	}
}
