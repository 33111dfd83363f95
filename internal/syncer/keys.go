package syncer

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	regexExtension  = regexp.MustCompile(`\.[^.]+$`)
	regexUnsafeChar = regexp.MustCompile(`[^a-zA-Z0-9-]`)
	regexDashRuns   = regexp.MustCompile(`-+`)
)

// DeriveStorageKey produces the stable object key for a Drive file:
// "{cleaned-base-name}-{fileID}.pdf". The file id embedded in the key
// guarantees uniqueness, and the same id+name always yields the same key,
// so re-syncs overwrite in place. Downstream index jobs rely on this
// format; do not change it.
func DeriveStorageKey(fileID, name string) string {
	base := regexExtension.ReplaceAllString(name, "")
	clean := regexUnsafeChar.ReplaceAllString(base, "-")
	clean = regexDashRuns.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-")
	return clean + "-" + fileID + ".pdf"
}

// ContentHash fingerprints file bytes for change detection. MD5 matches
// the checksum Drive reports for binary files; this is not a security
// boundary.
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
