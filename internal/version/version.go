// Package version reports build metadata. Release builds set the package
// variables with -ldflags -X; anything left unset is filled from the VCS
// stamp the Go toolchain embeds.
package version

import "runtime/debug"

const AppName = "sitebuilder"

var (
	Version    = "dev"
	Commit     = ""
	CommitDate = ""
	BuildDate  = ""
	BuildID    = ""
)

type Info struct {
	AppName    string `json:"app"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
	BuildID    string `json:"build_id,omitempty"`
	GoVersion  string `json:"go_version"`
	Dirty      bool   `json:"vcs_dirty,omitempty"`
}

func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return fromBuild(bi)
}

func fromBuild(bi *debug.BuildInfo) Info {
	i := Info{
		AppName:    AppName,
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildID:    BuildID,
	}
	if bi != nil {
		i.GoVersion = bi.GoVersion
		vcs := map[string]string{}
		for _, s := range bi.Settings {
			vcs[s.Key] = s.Value
		}
		i.Commit = firstSet(i.Commit, vcs["vcs.revision"])
		i.CommitDate = firstSet(i.CommitDate, vcs["vcs.time"])
		i.BuildDate = firstSet(i.BuildDate, i.CommitDate)
		i.Dirty = vcs["vcs.modified"] == "true"
	}
	i.Commit = firstSet(i.Commit, "none")
	return i
}

// ShortCommit is the first 12 characters of the commit.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
