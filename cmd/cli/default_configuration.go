package cli

import (
	"bytes"
	_ "embed"
	"path"
	"strings"
)

const (
	embeddedDefaultsFileNameConstant = "default_config.yaml"
	fileExtensionSeparatorConstant   = "."
)

//go:embed default_config.yaml
var embeddedAuditDefaults []byte

// EmbeddedDefaultConfiguration returns a copy of the built-in distaudit defaults
// and the configuration type named by the embedded file's extension.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	configurationType := strings.TrimPrefix(path.Ext(embeddedDefaultsFileNameConstant), fileExtensionSeparatorConstant)
	return bytes.Clone(embeddedAuditDefaults), configurationType
}
