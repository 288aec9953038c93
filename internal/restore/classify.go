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

package restore

import (
	"regexp"
	"strings"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/hook"
)

// Outcome is the classification of a terminal action.
type Outcome int

const (
	// Succeeded means the action finished with SUCCESS.
	Succeeded Outcome = iota
	// Waiting means the action failed only because agents were missing.
	Waiting
	// Failed is any other terminal result.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "Succeeded"
	case Waiting:
		return "Waiting"
	default:
		return "Failed"
	}
}

// The orchestrator has no error codes for missing agents, only these
// phrases in the additional info. Match them exactly.
const (
	missingAgentsMarker = "Agents with the following IDs are required"
	noAgentsMarker      = "Failing job for not having any registered agents"
)

var agentListPattern = regexp.MustCompile(`\[(.*)]`)

// Classify sorts a terminal action into Succeeded, Waiting or Failed. The
// error is set only for Failed.
func Classify(action *bro.Action) (Outcome, error) {
	if action.Succeeded() {
		return Succeeded, nil
	}
	if _, ok := MissingAgents(action); ok {
		return Waiting, nil
	}
	return Failed, hook.Errorf("Action %s failed with result %s: %s",
		action.Name, action.Result, CleanInfo(action.AdditionalInfo))
}

// MissingAgents reports whether the additional info of action says agents
// are missing, and which ones when it lists them.
func MissingAgents(action *bro.Action) ([]string, bool) {
	info := action.AdditionalInfo
	switch {
	case strings.Contains(info, missingAgentsMarker):
		m := agentListPattern.FindStringSubmatch(info)
		if m == nil {
			return nil, false
		}
		var agents []string
		for _, a := range strings.Split(m[1], ",") {
			if a = strings.TrimSpace(a); a != "" {
				agents = append(agents, a)
			}
		}
		return agents, true
	case strings.Contains(info, noAgentsMarker):
		return nil, true
	}
	return nil, false
}

// CleanInfo flattens free-text info onto one line, or returns None when
// there is none.
func CleanInfo(info string) string {
	if info == "" {
		return "None"
	}
	return strings.ReplaceAll(info, "\n", " ")
}
