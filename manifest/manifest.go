// Package manifest models Mojang's version manifest index, the per-version
// manifest document, and the content that each resolves to: libraries,
// download descriptors, modern/legacy argument shapes, and asset index
// references. Deserialization is camelCase and tolerant of unknown fields.
package manifest

import (
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/quasarmc/launchercore/hash"
	"github.com/quasarmc/launchercore/rules"
)

// ReleaseType classifies a version entry.
type ReleaseType string

const (
	Release  ReleaseType = "release"
	Snapshot ReleaseType = "snapshot"
	OldBeta  ReleaseType = "old_beta"
	OldAlpha ReleaseType = "old_alpha"
)

// Index is the root of Mojang's version_manifest.json.
type Index struct {
	Latest   Latest          `json:"latest"`
	Versions []RemoteVersion `json:"versions"`
}

// Latest names the current release and snapshot version identifiers.
type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// RemoteVersion is one entry of the manifest index.
type RemoteVersion struct {
	ID              string      `json:"id"`
	Type            ReleaseType `json:"type"`
	URL             string      `json:"url"`
	UpdatedTime     time.Time   `json:"time"`
	ReleaseTime     time.Time   `json:"releaseTime"`
	SHA1            hash.SHA1   `json:"sha1"`
	ComplianceLevel uint8       `json:"complianceLevel"`
}

// Find locates a version by id within the index, nil if absent.
func (idx Index) Find(id string) *RemoteVersion {
	for i := range idx.Versions {
		if idx.Versions[i].ID == id {
			return &idx.Versions[i]
		}
	}
	return nil
}

// LatestRelease returns the index entry named by Latest.Release, nil if
// no entry has that id.
func (idx Index) LatestRelease() *RemoteVersion {
	return idx.Find(idx.Latest.Release)
}

// OlderThanLatestRelease reports whether id is an older release than the
// index's current latest release. Version ids that don't parse as semver
// (snapshots, old_beta/old_alpha ids, modded ids) always compare as not
// older, since there is nothing sound to compare them against.
func (idx Index) OlderThanLatestRelease(id string) bool {
	latest := idx.LatestRelease()
	if latest == nil || latest.ID == id {
		return false
	}

	a, err := semver.NewVersion(id)
	if err != nil {
		return false
	}
	b, err := semver.NewVersion(latest.ID)
	if err != nil {
		return false
	}
	return a.LessThan(b)
}

// DownloadInfo describes a single downloadable file.
type DownloadInfo struct {
	URL  string    `json:"url"`
	SHA1 hash.SHA1 `json:"sha1"`
	Size int64     `json:"size"`
	Path string    `json:"path,omitempty"`
}

// Downloads holds the client/server jar download descriptors.
type Downloads struct {
	Client         *DownloadInfo `json:"client,omitempty"`
	ClientMappings *DownloadInfo `json:"client_mappings,omitempty"`
	Server         *DownloadInfo `json:"server,omitempty"`
	ServerMappings *DownloadInfo `json:"server_mappings,omitempty"`
}

// AssetIndexRef references the asset index document for a version.
type AssetIndexRef struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	SHA1           hash.SHA1 `json:"sha1"`
	Size           int64     `json:"size"`
	TotalSize      int64     `json:"totalSize"`
	IsVirtual      bool      `json:"isVirtual,omitempty"`
	MapToResources bool      `json:"mapToResources,omitempty"`
}

// JavaVersionReq names the component/major version of Java a version requires.
type JavaVersionReq struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// LibraryDownloads holds the primary artifact and per-classifier downloads
// (natives jars) for a library.
type LibraryDownloads struct {
	Artifact    *DownloadInfo            `json:"artifact,omitempty"`
	Classifiers map[string]*DownloadInfo `json:"classifiers,omitempty"`
}

// ExtractRules lists zip entry path prefixes to skip during native extraction.
type ExtractRules struct {
	Exclude []string `json:"exclude,omitempty"`
}

// Library is a single dependency entry: a Maven coordinate, rule-gated
// relevance, and optional per-OS native classifiers.
type Library struct {
	Name      string            `json:"name"`
	Rules     []Rule            `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *ExtractRules     `json:"extract,omitempty"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
}

// Coordinate parses the library's Maven name into a hash.Coordinate.
func (l Library) Coordinate() (hash.Coordinate, error) {
	return hash.ParseCoordinate(l.Name)
}

// Relevant reports whether the library's rule list evaluates to Allow
// under the given environment.
func (l Library) Relevant(matcher rules.FeatureMatcher) bool {
	return evaluateRules(l.Rules, matcher) == rules.Allow
}

// NativeClassifier returns the native classifier template for the current
// OS (with ${arch} left unexpanded) and whether one is present.
func (l Library) NativeClassifier(os rules.OSName) (string, bool) {
	tmpl, ok := l.Natives[string(os)]
	return tmpl, ok
}

// Rule is the manifest-JSON shape of a rule; ToRule converts it to the
// evaluator's rules.Rule.
type Rule struct {
	Action   rules.Action    `json:"action"`
	OS       *RuleOS         `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// RuleOS is the manifest-JSON shape of a rule's OS constraint.
type RuleOS struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

func evaluateRules(list []Rule, matcher rules.FeatureMatcher) rules.Action {
	return rules.Evaluate(toRuleList(list), matcher)
}

func toRuleList(list []Rule) []rules.Rule {
	out := make([]rules.Rule, 0, len(list))
	for _, r := range list {
		out = append(out, toRule(r))
	}
	return out
}

func toRule(r Rule) rules.Rule {
	converted := rules.Rule{Action: r.Action, Features: r.Features}
	if r.OS != nil {
		converted.OS = &rules.OSConstraint{
			Name:    rules.OSName(r.OS.Name),
			Version: r.OS.Version,
			Arch:    r.OS.Arch,
		}
	}
	return converted
}
