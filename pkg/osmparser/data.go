package osmparser

import "github.com/paulmach/osm"

// highway values a pedestrian may use
var footHighwayTags = map[string]struct{}{
	"footway": {}, "pedestrian": {}, "path": {}, "steps": {}, "living_street": {},
	"residential": {}, "service": {}, "track": {}, "unclassified": {},
	"tertiary": {}, "tertiary_link": {}, "secondary": {}, "secondary_link": {},
	"primary": {}, "primary_link": {}, "cycleway": {}, "bridleway": {},
	"corridor": {}, "crossing": {},
}

func acceptFootWay(way *osm.Way) bool {
	hw := way.Tags.Find("highway")
	if hw == "" {
		return false
	}
	if _, ok := footHighwayTags[hw]; !ok {
		return false
	}
	switch way.Tags.Find("foot") {
	case "no", "private", "use_sidepath":
		return false
	}
	switch way.Tags.Find("access") {
	case "no", "private":
		return false
	}
	return true
}
