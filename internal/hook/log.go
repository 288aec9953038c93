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

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Logger returns the logger stored in ctx, wrapped with a Debug helper.
func Logger(ctx context.Context) LoggerWithDebug {
	return LoggerWithDebug{Logger: log.FromContext(ctx)}
}

// LoggerWithDebug wraps a logr.Logger and provides a Debug() method
// that maps to V(1).Info() for convenience.
type LoggerWithDebug struct {
	logr.Logger
}

// Debug logs at debug level (equivalent to V(1).Info())
func (l LoggerWithDebug) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.V(1).Info(msg, keysAndValues...)
}

// Warning logs at info level with a severity marker. logr has no warning
// level and these messages must stay visible at the default verbosity.
func (l LoggerWithDebug) Warning(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, append([]interface{}{"severity", "warning"}, keysAndValues...)...)
}
