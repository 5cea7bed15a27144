package all

import (
	_ "Vista/plugins/parsers/simplexml"
	_ "Vista/plugins/parsers/studio"
)
