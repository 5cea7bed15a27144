package datasources

import "Vista"

type Creator func() Vista.DataSource

var DataSources = make(map[string]Creator)

func Add(name string, creator Creator) {
	DataSources[name] = creator
}
