package grove

import (
	"github.com/reusee/e5"
)

var (
	we    = e5.Wrap
	throw = e5.Throw
)
