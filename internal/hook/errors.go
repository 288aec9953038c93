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

// Package hook holds the pieces shared by every hook: the error kind that
// signals a business-rule violation, logging helpers and the sleep
// primitive used by the polling loops.
package hook

import (
	"errors"
	"fmt"
)

// Error is returned when a hook cannot complete because the backup
// orchestrator or the cluster is not in the state the hook requires.
// Any Error reaching the entry point turns into exit status 1.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

// Errorf formats a new hook Error. Unlike fmt.Errorf it does not wrap.
func Errorf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// IsError reports whether err or anything it wraps is a hook Error.
func IsError(err error) bool {
	var herr *Error
	return errors.As(err, &herr)
}
