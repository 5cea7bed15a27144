package all

import (
	_ "Vista/plugins/datasources/fake"
)
