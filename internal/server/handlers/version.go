package handlers

import "net/http"

// BuildInfo describes the running binary. It is stamped at link time via
// the cmd package.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

var buildInfo = BuildInfo{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetBuildInfo records the binary's version information for /version.
func SetBuildInfo(version, commit, buildDate string) {
	buildInfo = BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// VersionHandler serves /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildInfo)
}
