package web

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StaticDir is where /static/ paths are read from when fingerprinting.
var StaticDir = "static"

var assetHashes sync.Map

// assetPath adds ?v=<content hash> to /static/ URLs. Hashes are computed once
// per path per process; files that cannot be read keep the bare path.
func assetPath(path string) string {
	name, ok := strings.CutPrefix(path, "/static/")
	if !ok || name == "" {
		return path
	}
	if cached, ok := assetHashes.Load(name); ok {
		return withVersion(path, cached.(string))
	}
	data, err := os.ReadFile(filepath.Join(StaticDir, filepath.FromSlash(name)))
	if err != nil {
		return path
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:6])
	assetHashes.Store(name, hash)
	return withVersion(path, hash)
}

func withVersion(path, hash string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "v=" + hash
}
