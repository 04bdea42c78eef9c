/*
Copyright 2026 The MPPDB Authors.

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

package servenv

import (
	"fmt"
	"runtime"
	"time"
)

// Set with -ldflags "-X github.com/mppdb/coordinator/go/vt/servenv.buildGitRev=...".
var (
	buildHost      = ""
	buildUser      = ""
	buildTime      = ""
	buildGitRev    = ""
	buildGitBranch = ""
	buildVersion   = "dev"
)

// AppVersion is the build info of the running binary.
var AppVersion = newVersionInfo()

type versionInfo struct {
	buildHost       string
	buildUser       string
	buildTime       int64
	buildTimePretty string
	buildGitRev     string
	buildGitBranch  string
	goVersion       string
	goOS            string
	goArch          string
	version         string
}

func newVersionInfo() versionInfo {
	v := versionInfo{
		buildHost:       buildHost,
		buildUser:       buildUser,
		buildTimePretty: buildTime,
		buildGitRev:     buildGitRev,
		buildGitBranch:  buildGitBranch,
		goVersion:       runtime.Version(),
		goOS:            runtime.GOOS,
		goArch:          runtime.GOARCH,
		version:         buildVersion,
	}
	if t, err := time.Parse(time.UnixDate, buildTime); err == nil {
		v.buildTime = t.Unix()
	}
	return v
}

// ToStringMap returns the version info as a map[string]string.
func (v *versionInfo) ToStringMap() map[string]string {
	return map[string]string{
		"build_host":       v.buildHost,
		"build_user":       v.buildUser,
		"build_time":       v.buildTimePretty,
		"build_git_rev":    v.buildGitRev,
		"build_git_branch": v.buildGitBranch,
		"go_version":       v.goVersion,
		"goos":             v.goOS,
		"goarch":           v.goArch,
		"version":          v.version,
	}
}

func (v *versionInfo) String() string {
	return fmt.Sprintf("Version: %s (Git revision %s branch '%s') built on %s by %s@%s using %s %s/%s",
		v.version, v.buildGitRev, v.buildGitBranch, v.buildTimePretty, v.buildUser, v.buildHost, v.goVersion, v.goOS, v.goArch)
}
