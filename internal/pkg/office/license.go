// Package office activates the UniDoc license that DOCX export and Word
// reference extraction run under.
package office

import (
	"sync"

	"github.com/unidoc/unioffice/common/license"
)

// LicenseKeyEnv names the variable holding the metered API key.
const LicenseKeyEnv = "EXPORT_UNIDOC_LICENSE_KEY"

var (
	once       sync.Once
	licenseErr error
)

// Activate registers the metered key with unioffice. Only the first call
// takes effect; later calls return its result.
func Activate(key string) error {
	once.Do(func() {
		licenseErr = license.SetMeteredKey(key)
	})
	return licenseErr
}
