package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SourceHash fingerprints the DOT text an artifact is rendered from.
// Equal graphs render to equal DOT, so they share a fingerprint.
func SourceHash(dot string) string {
	return hexSum([]byte(dot))
}

// artifactKey is "artifact:" followed by the digest of the source
// fingerprint and the render options.
func artifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	data, _ := json.Marshal(struct {
		Source string          `json:"source"`
		Opts   ArtifactKeyOpts `json:"opts"`
	}{sourceHash, opts})
	return "artifact:" + hexSum(data)
}

func hexSum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
