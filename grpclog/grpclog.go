/*
 *
 * Copyright 2015 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package grpclog defines the logging used by this module. The core never
// logs through the standard "log" package directly so that a host
// application can redirect or silence it with SetLogger.
package grpclog

import (
	"log"
	"os"
)

// Logger mimics the standard library's log.Logger interface, restricted to
// the methods this module actually calls.
type Logger interface {
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Print(args ...interface{})
	Printf(format string, args ...interface{})
}

var logger Logger = log.New(os.Stderr, "", log.LstdFlags)

// SetLogger sets the logger used by this module. It is not safe to call
// concurrently with any other grpclog function and is intended to be
// called once, e.g. from an init function.
func SetLogger(l Logger) {
	logger = l
}

// Fatal is equivalent to Print() followed by a call to os.Exit(1).
func Fatal(args ...interface{}) {
	logger.Fatal(args...)
}

// Fatalf is equivalent to Printf() followed by a call to os.Exit(1).
func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// Println prints to the logger. Arguments are handled in the manner of fmt.Print.
func Println(args ...interface{}) {
	logger.Print(args...)
}

// Printf prints to the logger. Arguments are handled in the manner of fmt.Printf.
func Printf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

// Infof logs at the info level. It is an alias of Printf with a level
// prefix, giving call sites an Infof/Warningf split instead of one
// undifferentiated Printf.
func Infof(format string, args ...interface{}) {
	logger.Printf("INFO: "+format, args...)
}

// Warningf logs at the warning level, used whenever a Call terminates
// with a non-OK status, whether synthesized by this module, requested by
// the application, or received from the server.
func Warningf(format string, args ...interface{}) {
	logger.Printf("WARNING: "+format, args...)
}

// Errorf logs at the error level.
func Errorf(format string, args ...interface{}) {
	logger.Printf("ERROR: "+format, args...)
}
