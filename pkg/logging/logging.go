//    Copyright 2024 The BlinkRunner authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package logging

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// NewLogger creates a console logger writing to the given output
// at the given level.
// Returns an error when the level value is not a valid log level.
func NewLogger(out io.Writer, levelValue string) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(levelValue)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid log level '%s'", levelValue)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out}).
		With().Timestamp().Logger().
		Level(level), nil
}
