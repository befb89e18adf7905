// Package static embeds the browser client served under /static/.
package static

import "embed"

//go:embed js css
var FS embed.FS
