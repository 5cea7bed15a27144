package parsers

import "Vista"

type Creator func() Vista.DashboardParser

var Parsers = make(map[string]Creator)

func Add(name string, creator Creator) {
	Parsers[name] = creator
}
