package printer

import "strings"

// Model identifies a known printer hardware model.
type Model string

const (
	ModelH2D    Model = "H2D"
	ModelH2S    Model = "H2S"
	ModelX1E    Model = "X1E"
	ModelX1C    Model = "X1 Carbon"
	ModelP1S    Model = "P1S"
	ModelP1P    Model = "P1P"
	ModelA1Mini Model = "A1 Mini"
	ModelA1     Model = "A1"
	ModelX1     Model = "X1"
)

type modelRule struct {
	token string
	model Model
}

// Ordered so that more specific tokens win: "a1 mini"/"a1_mini" must be
// tested before "a1", "x1c" before "x1".
var modelRules = []modelRule{
	{"h2d", ModelH2D},
	{"h2s", ModelH2S},
	{"x1e", ModelX1E},
	{"x1 carbon", ModelX1C},
	{"x1_carbon", ModelX1C},
	{"x1c", ModelX1C},
	{"p1s", ModelP1S},
	{"p1p", ModelP1P},
	{"a1 mini", ModelA1Mini},
	{"a1_mini", ModelA1Mini},
	{"a1mini", ModelA1Mini},
	{"a1", ModelA1},
	{"x1", ModelX1},
}

// DetectModel tests a printer prefix against the ordered substring rules.
// Discovery and synchronization both use this table so that a
// manually-configured prefix and an auto-discovered one resolve identically.
// No match returns "" rather than a fabricated default.
func DetectModel(prefix string) Model {
	p := strings.ToLower(prefix)
	for _, rule := range modelRules {
		if strings.Contains(p, rule.token) {
			return rule.model
		}
	}
	return ""
}
