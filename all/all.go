// Package all imports all supported ecosystem adapters.
//
// Import this package for its side effects to register both ecosystems:
//
//	import (
//		peek "github.com/ExaDev/peek-package"
//		_ "github.com/ExaDev/peek-package/all"
//	)
//
//	// Now both ecosystems are available
//	ecosystems := peek.SupportedEcosystems()
//	// ["npm", "pypi"]
package all

import (
	_ "github.com/ExaDev/peek-package/internal/npm"
	_ "github.com/ExaDev/peek-package/internal/pypi"
)
