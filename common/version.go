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
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// set by mage through -ldflags
var (
	commitHash string
	buildDate  string
	vendorInfo string
)

const programName = "pvindices"

// Version is a SemVer 2.0.0 build version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string // pre-release tag, blank for releases
}

func (v Version) String() string {
	metadata := ""
	preRelease := ""

	if v.Suffix != "" {
		preRelease = fmt.Sprintf("-%s", v.Suffix)
		if commitHash != "" {
			metadata = fmt.Sprintf("+%s", strings.ToLower(commitHash))
		}
	}

	return fmt.Sprintf("%d.%d.%d%s%s", v.Major, v.Minor, v.Patch, preRelease, metadata)
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Program      string   `json:"program"`
	Version      string   `json:"version"`
	Platform     string   `json:"platform"`
	GoVersion    string   `json:"go_version"`
	BuildDate    string   `json:"build_date"`
	Commit       string   `json:"commit"`
	Vendor       string   `json:"vendor,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// GetDependencyList returns the module dependencies compiled into the binary, sorted, as
// path="version"
func GetDependencyList() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return []string{}
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		version := dep.Version
		if dep.Replace != nil {
			version = dep.Replace.Version
		}
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, version))
	}
	sort.Strings(deps)
	return deps
}

// CurrentBuild collects the build metadata; dependencies are only listed when withDeps is true
func CurrentBuild(withDeps bool) BuildInfo {
	info := BuildInfo{
		Program:   programName,
		Version:   "v" + CurrentVersion.String(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
		BuildDate: buildDate,
		Commit:    commitHash,
		Vendor:    vendorInfo,
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	if withDeps {
		info.Dependencies = GetDependencyList()
	}
	return info
}

func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\n\nBuild Date: %s\nCommit: %s\nBuilt with: %s",
		b.Program, b.Version, b.Platform, b.BuildDate, b.Commit, b.GoVersion)
	if b.Vendor != "" {
		sb.WriteString("\nVendor Info: " + b.Vendor)
	}
	if len(b.Dependencies) > 0 {
		sb.WriteString("\n\nDependencies:\n\n" + strings.Join(b.Dependencies, "\n"))
	}
	return sb.String()
}

// BuildVersionString is what "pvindices version" prints
func BuildVersionString(withDeps bool) string {
	return CurrentBuild(withDeps).String()
}
