/*
Copyright 2019 The Vitess Authors.

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

	"shardmerge.io/shardmerge/go/stats"
)

// These are set at link time, e.g.
// -ldflags "-X shardmerge.io/shardmerge/go/vt/servenv.buildGitRev=$(git rev-parse HEAD)".
var (
	buildHost      = ""
	buildUser      = ""
	buildTime      = ""
	buildGitRev    = ""
	buildGitBranch = ""
)

const versionName = "0.4.0-SNAPSHOT"

// AppVersion is the struct to store build info.
var AppVersion versionInfo

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

// Version returns the release name.
func (v *versionInfo) Version() string {
	return v.version
}

func (v *versionInfo) String() string {
	return fmt.Sprintf("Version: %s (Git revision %s branch '%s') built on %s by %s@%s using %s %s/%s",
		v.version, v.buildGitRev, v.buildGitBranch, v.buildTimePretty, v.buildUser, v.buildHost, v.goVersion, v.goOS, v.goArch)
}

func newVersionInfo(buildTime string) versionInfo {
	var ts int64
	if buildTime != "" {
		t, err := time.Parse(time.UnixDate, buildTime)
		if err != nil {
			panic(fmt.Sprintf("Couldn't parse build timestamp %q: %v", buildTime, err))
		}
		ts = t.Unix()
	}
	return versionInfo{
		buildHost:       buildHost,
		buildUser:       buildUser,
		buildTime:       ts,
		buildTimePretty: buildTime,
		buildGitRev:     buildGitRev,
		buildGitBranch:  buildGitBranch,
		goVersion:       runtime.Version(),
		goOS:            runtime.GOOS,
		goArch:          runtime.GOARCH,
		version:         versionName,
	}
}

func init() {
	AppVersion = newVersionInfo(buildTime)
	stats.NewGauge("BuildTimestamp", "build timestamp").Set(AppVersion.buildTime)
}
