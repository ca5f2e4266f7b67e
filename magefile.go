//go:build mage

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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName    = "pvindices"
	modulePath    = "github.com/penny-vault/pv-indices"
	commonPackage = modulePath + "/common"
	coverProfile  = "coverage.out"
)

var ldflags = "-X " + commonPackage + ".commitHash=$COMMIT_HASH -X " + commonPackage + ".buildDate=$BUILD_DATE -X " + commonPackage + ".vendorInfo=$VENDOR_INFO"

// GOEXE overrides the go executable
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

var Default = Build

// Build the pvindices binary with version metadata
func Build() error {
	fmt.Println("Building...")
	return runWith(flagEnv(), goexe, "build", "-o", binaryName, "-ldflags", ldflags, buildFlags(), buildTags(), ".")
}

// Install pvindices into GOBIN
func Install() error {
	return runWith(flagEnv(), goexe, "install", "-ldflags", ldflags, buildFlags(), buildTags(), ".")
}

// Clean removes the binary, coverage profiles and generated reports
func Clean() {
	fmt.Println("Cleaning...")
	for _, fn := range []string{binaryName, coverProfile, "outputs"} {
		if err := os.RemoveAll(fn); err != nil {
			fmt.Fprintf(os.Stderr, "could not remove %s: %v\n", fn, err)
		}
	}
}

// Check runs the formatters, go vet and the race-enabled tests
func Check() {
	mg.Deps(Fmt, Vet)
	mg.Deps(TestRace)
}

// Test runs every ginkgo suite
func Test() error {
	fmt.Println("Go Test")
	return runCmd(nil, goexe, "test", "./...", buildFlags(), buildTags())
}

// TestRace runs the suites with the race detector
func TestRace() error {
	fmt.Println("Go Test Race")
	return runCmd(nil, goexe, "test", "-race", "./...", buildFlags(), buildTags())
}

// Fmt fails when any package has files gofmt would rewrite
func Fmt() error {
	fmt.Println("Go Format")

	pkgs, err := projectPackages()
	if err != nil {
		return err
	}

	var unformatted []string
	for _, pkg := range pkgs {
		files, err := filepath.Glob(filepath.Join(pkg, "*.go"))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}
		// gofmt exits 0 even when it lists files
		out, err := sh.Output("gofmt", append([]string{"-l"}, files...)...)
		if err != nil {
			return fmt.Errorf("running gofmt on %q: %w", pkg, err)
		}
		if out != "" {
			unformatted = append(unformatted, strings.Split(out, "\n")...)
		}
	}

	if len(unformatted) > 0 {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(strings.Join(unformatted, "\n"))
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Vet runs go vet over the module
func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

// TestCoverHTML merges per-package coverage and opens the HTML report
func TestCoverHTML() error {
	fmt.Println("Generate Test Coverage HTML")

	pkgs, err := projectPackages()
	if err != nil {
		return err
	}

	var merged bytes.Buffer
	merged.WriteString("mode: count\n")
	tmp := coverProfile + ".pkg"
	defer os.Remove(tmp)

	for _, pkg := range pkgs {
		if err := sh.Run(goexe, "test", "-coverprofile="+tmp, "-covermode=count", pkg); err != nil {
			return err
		}
		b, err := os.ReadFile(tmp)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		// drop the mode line
		if idx := bytes.IndexByte(b, '\n'); idx >= 0 {
			merged.Write(b[idx+1:])
		}
	}

	if err := os.WriteFile(coverProfile, merged.Bytes(), 0644); err != nil {
		return err
	}
	return sh.Run(goexe, "tool", "cover", "-html="+coverProfile)
}

// Analyze builds pvindices and runs the full analysis over every configured group
func Analyze() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "analyze")
}

// helpers

func buildFlags() []string {
	if runtime.GOOS == "windows" {
		return []string{"-buildmode", "exe"}
	}
	return nil
}

func buildTags() []string {
	if tags := os.Getenv("PVINDICES_TAGS"); tags != "" {
		return []string{"-tags", tags}
	}
	return nil
}

func flagEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().UTC().Format(time.RFC3339),
		"VENDOR_INFO": os.Getenv("VENDOR_INFO"),
	}
}

func runCmd(env map[string]string, cmd string, args ...interface{}) error {
	if mg.Verbose() {
		return runWith(env, cmd, args...)
	}
	output, err := sh.OutputWith(env, cmd, argsToStrings(args...)...)
	if err != nil {
		fmt.Fprint(os.Stderr, output)
	}
	return err
}

func runWith(env map[string]string, cmd string, inArgs ...interface{}) error {
	return sh.RunWith(env, cmd, argsToStrings(inArgs...)...)
}

var (
	pkgs     []string
	pkgsInit sync.Once
)

// projectPackages lists the module's packages as relative directories
func projectPackages() ([]string, error) {
	var err error
	pkgsInit.Do(func() {
		var s string
		s, err = sh.Output(goexe, "list", "./...")
		if err != nil {
			return
		}
		for _, pkg := range strings.Split(s, "\n") {
			pkgs = append(pkgs, "."+strings.TrimPrefix(pkg, modulePath))
		}
	})
	return pkgs, err
}

func argsToStrings(v ...interface{}) []string {
	var args []string
	for _, arg := range v {
		switch v := arg.(type) {
		case string:
			if v != "" {
				args = append(args, v)
			}
		case []string:
			args = append(args, v...)
		default:
			panic("invalid type")
		}
	}
	return args
}
