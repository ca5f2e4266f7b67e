// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/viper"
)

// ArrToUpper uppercase every string in array
func ArrToUpper(arr []string) {
	for ii := range arr {
		arr[ii] = strings.TrimSpace(strings.ToUpper(arr[ii]))
	}
}

func SetupLogging() {
	level := strings.ToLower(viper.GetString("log.level"))

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if viper.GetBool("log.report_caller") {
		log.Logger = log.With().Caller().Logger()
	}

	pretty := viper.GetBool("log.pretty")
	output := viper.GetString("log.output")
	switch output {
	case "stdout":
		if pretty {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		} else {
			log.Logger = log.Output(os.Stdout)
		}
	case "stderr", "":
		if pretty {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		} else {
			log.Logger = log.Output(os.Stderr)
		}
	default:
		// the file stays open for the life of the process
		fh, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			log.Panic().Err(err).Str("Output", output).Msg("could not open log file")
		}
		if pretty {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: fh, NoColor: true})
		} else {
			log.Logger = log.Output(fh)
		}
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	log.Debug().Str("Level", zerolog.GlobalLevel().String()).Msg("logging configured")
}

// GetTimezone returns the timezone of the B3 exchange; all market dates are interpreted in it
func GetTimezone() *time.Location {
	tz, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		log.Panic().Err(err).Msg("could not load timezone")
	}
	return tz
}
