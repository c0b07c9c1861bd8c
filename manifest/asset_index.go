package manifest

import "github.com/quasarmc/launchercore/hash"

// AssetObject is one entry of an asset index: the content-addressed hash
// and size of a logical asset name.
type AssetObject struct {
	Hash hash.SHA1 `json:"hash"`
	Size int64     `json:"size"`
}

// AssetIndex maps logical asset names to content-addressed objects.
type AssetIndex struct {
	IsVirtual      bool                   `json:"virtual,omitempty"`
	MapToResources bool                   `json:"map_to_resources,omitempty"`
	Objects        map[string]AssetObject `json:"objects"`
}
