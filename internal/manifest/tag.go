package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TagKey is the container metadata key holding an embedded manifest.
const TagKey = "videotable_manifest"

// EncodeTag serializes m into the single-string tag form. The container
// checksum is omitted since retagging rewrites the container.
func EncodeTag(m *Manifest) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	clone := *m
	clone.ContainerChecksum = ""
	payload, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("manifest: encode tag: %w", err)
	}
	return string(payload), nil
}

// DecodeTag finds the manifest tag in tags (case-insensitive key) and parses
// it. location names the container for error reporting.
func DecodeTag(tags map[string]string, name, location string) (*Manifest, error) {
	raw, ok := lookupTag(tags)
	if !ok {
		return nil, &MissingManifestError{Name: name, Location: location}
	}
	return decode([]byte(raw), location)
}

func lookupTag(tags map[string]string) (string, bool) {
	for key, value := range tags {
		if strings.EqualFold(key, TagKey) && strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	return "", false
}
