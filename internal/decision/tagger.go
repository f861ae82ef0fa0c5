package decision

import "strings"

// #region issue-keywords

var householderKeywords = []string{
	"rear extension", "single storey", "two storey", "loft", "dormer",
	"outbuilding", "garage", "porch",
}

var amenityKeywords = []string{
	"residential amenity", "privacy", "overlooking", "daylight", "sunlight",
	"outlook", "noise", "disturbance",
}

var designKeywords = []string{
	"design", "character", "scale", "massing", "materials", "appearance",
}

var heritageKeywords = []string{
	"heritage", "listed", "conservation area", "setting", "significance",
}

var highwaysKeywords = []string{
	"highway", "parking", "traffic", "access", "visibility", "junction",
}

var floodKeywords = []string{
	"flood", "drainage", "surface water", "suds",
}

var treesKeywords = []string{
	"tree", "tpo", "arboricultural", "hedgerow",
}

// #endregion issue-keywords

// #region tagger
// issueGroups pairs each tag with its keyword group, in scan order.
var issueGroups = []struct {
	tag      string
	keywords []string
}{
	{"householder", householderKeywords},
	{"amenity", amenityKeywords},
	{"design", designKeywords},
	{"heritage", heritageKeywords},
	{"highways", highwaysKeywords},
	{"flood", floodKeywords},
	{"trees", treesKeywords},
}

// TagIssues classifies proposal text into a de-duplicated issue tag set.
// Empty or unmatched text yields {"general"}.
func TagIssues(proposalText string) []string {
	t := strings.ToLower(proposalText)

	var tags []string
	for _, g := range issueGroups {
		for _, kw := range g.keywords {
			if strings.Contains(t, kw) {
				tags = append(tags, g.tag)
				break
			}
		}
	}
	if len(tags) == 0 {
		tags = []string{"general"}
	}
	return tags
}

// #endregion tagger
