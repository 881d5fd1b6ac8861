// Copyright 2026 The Layoutkit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package containers

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger receives the non-fatal diagnostics emitted by the containers, such
// as removing an index past the end of a sequence. *zap.SugaredLogger
// satisfies it.
type Logger interface {
	Errorf(format string, args ...any)
}

var defaultLogger Logger = newStderrLogger()

func newStderrLogger() Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), zapcore.ErrorLevel)
	return zap.New(core).Sugar()
}

// SetLogger replaces the package-wide default logger used by containers
// that were not given one with WithLogger. Passing nil discards all
// diagnostics.
func SetLogger(l Logger) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	defaultLogger = l
}

// loggerOrDefault is resolved on every report so that SetLogger also affects
// containers created before it was called.
func loggerOrDefault(l Logger) Logger {
	if l != nil {
		return l
	}
	return defaultLogger
}
