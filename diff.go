package mirror

import (
	"encoding/json"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// DiffResult splits the union of two snapshots into paths to fetch from the
// server and paths to push from the client. A path is in at most one set;
// paths in neither are unchanged.
type DiffResult struct {
	Download mapset.Set[string]
	Upload   mapset.Set[string]
}

// Diff compares a server and a client snapshot by size only. The server wins
// whenever both sides have a path with different sizes. Two different files
// of the same size compare equal.
func Diff(server, client *Snapshot) DiffResult {
	result := DiffResult{
		Download: mapset.NewThreadUnsafeSet[string](),
		Upload:   mapset.NewThreadUnsafeSet[string](),
	}

	for p, s := range server.Entries {
		c, ok := client.Entries[p]
		if !ok || c.Size != s.Size {
			result.Download.Add(p)
		}
	}
	for p := range client.Entries {
		if _, ok := server.Entries[p]; !ok {
			result.Upload.Add(p)
		}
	}

	return result
}

func (d DiffResult) Empty() bool {
	return cardinality(d.Download) == 0 && cardinality(d.Upload) == 0
}

// DownloadPaths returns the download set in lexical order, parents first.
func (d DiffResult) DownloadPaths() []string {
	return sorted(d.Download)
}

// UploadPaths returns the upload set in lexical order, parents first.
func (d DiffResult) UploadPaths() []string {
	return sorted(d.Upload)
}

func (d DiffResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Download []string `json:"download"`
		Upload   []string `json:"upload"`
	}{
		Download: d.DownloadPaths(),
		Upload:   d.UploadPaths(),
	})
}

func cardinality(set mapset.Set[string]) int {
	if set == nil {
		return 0
	}
	return set.Cardinality()
}

func sorted(set mapset.Set[string]) []string {
	if set == nil {
		return []string{}
	}
	paths := set.ToSlice()
	sort.Strings(paths)
	return paths
}
