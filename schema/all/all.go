// Package all registers every built-in domain. Import it for its side
// effects before decoding crates of any profile.
package all

import (
	_ "github.com/reoring/niidg/schema/amed"
	_ "github.com/reoring/niidg/schema/base"
	_ "github.com/reoring/niidg/schema/cao"
	_ "github.com/reoring/niidg/schema/ginfork"
	_ "github.com/reoring/niidg/schema/myschema"
)
