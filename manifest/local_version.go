package manifest

import "time"

// LocalVersion is the resolved, possibly inheritance-merged per-version
// document.
type LocalVersion struct {
	ID                 string         `json:"id"`
	Type               ReleaseType    `json:"type"`
	ReleaseTime        time.Time      `json:"releaseTime"`
	UpdatedTime        time.Time      `json:"time"`
	MainClass          string         `json:"mainClass"`
	MinecraftArguments string         `json:"minecraftArguments,omitempty"`
	Arguments          *Arguments     `json:"arguments,omitempty"`
	InheritsFrom       string         `json:"inheritsFrom,omitempty"`
	Libraries          []Library      `json:"libraries"`
	AssetIndex         *AssetIndexRef `json:"assetIndex,omitempty"`
	Downloads          Downloads      `json:"downloads"`
	JavaVersion        JavaVersionReq `json:"javaVersion,omitempty"`
	Jar                string         `json:"jar,omitempty"`
}

// JarID returns the id of the jar this version should load: an explicit
// override (the "jar" field) or, by default, the version's own id.
func (v LocalVersion) JarID() string {
	if v.Jar != "" {
		return v.Jar
	}
	return v.ID
}

// IsModernArguments reports whether the modern arguments shape is
// authoritative for this (possibly merged) version.
func (v LocalVersion) IsModernArguments() bool {
	return v.Arguments != nil
}

// Merge combines child over parent: scalar fields are overridden by the
// child; libraries, arguments.jvm and arguments.game concatenate
// parent-then-child. Modern arguments win over legacy minecraftArguments
// when both are present across the merge.
func Merge(parent, child LocalVersion) LocalVersion {
	merged := child
	merged.InheritsFrom = "" // already applied; a merged document is a flat tree

	merged.Libraries = append(append([]Library{}, parent.Libraries...), child.Libraries...)

	switch {
	case child.Arguments != nil && parent.Arguments != nil:
		merged.Arguments = &Arguments{
			JVM:  append(append([]ArgumentEntry{}, parent.Arguments.JVM...), child.Arguments.JVM...),
			Game: append(append([]ArgumentEntry{}, parent.Arguments.Game...), child.Arguments.Game...),
		}
	case child.Arguments != nil:
		merged.Arguments = child.Arguments
	case parent.Arguments != nil:
		merged.Arguments = parent.Arguments
	}

	// Modern wins over legacy when both are present across the merge.
	if merged.Arguments != nil {
		merged.MinecraftArguments = ""
	} else if child.MinecraftArguments == "" {
		merged.MinecraftArguments = parent.MinecraftArguments
	}

	if child.MainClass == "" {
		merged.MainClass = parent.MainClass
	}
	if child.AssetIndex == nil {
		merged.AssetIndex = parent.AssetIndex
	}
	if child.Downloads.Client == nil {
		merged.Downloads.Client = parent.Downloads.Client
	}
	if child.Downloads.Server == nil {
		merged.Downloads.Server = parent.Downloads.Server
	}
	if child.Jar == "" {
		merged.Jar = parent.Jar
	}
	if child.JavaVersion.MajorVersion == 0 {
		merged.JavaVersion = parent.JavaVersion
	}

	return merged
}
