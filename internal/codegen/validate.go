package codegen

import (
	"strings"

	"go.uber.org/zap"
)

// fallbackLanguage is used whenever a requested language is unsupported.
// Generation always proceeds with some valid language.
const fallbackLanguage = "python"

var supportedLanguages = map[string]bool{
	"python":     true,
	"javascript": true,
	"typescript": true,
	"r":          true,
	"html":       true,
}

// defaultLibraries is substituted when the caller requests no libraries.
var defaultLibraries = map[string][]string{
	"python":     {"matplotlib", "pandas", "numpy", "plotly"},
	"javascript": {"d3", "chart.js", "leaflet"},
	"typescript": {"d3", "chart.js", "leaflet"},
	"r":          {"ggplot2", "dplyr", "leaflet"},
	"html":       {"bootstrap", "chart.js", "leaflet"},
}

// allowedLibraries is the per-language allow-list requested libraries are
// intersected with.
var allowedLibraries = map[string]map[string]bool{
	"python": {
		"matplotlib": true, "pandas": true, "numpy": true, "plotly": true,
		"seaborn": true, "scipy": true, "scikit-learn": true, "folium": true,
		"bokeh": true, "altair": true, "statsmodels": true, "dash": true,
	},
	"javascript": {
		"d3": true, "chart.js": true, "leaflet": true, "three.js": true,
		"plotly.js": true, "vega": true, "highcharts": true, "mapbox-gl": true,
	},
	"typescript": {
		"d3": true, "chart.js": true, "leaflet": true, "three.js": true,
		"plotly.js": true, "vega": true, "highcharts": true, "mapbox-gl": true,
	},
	"r": {
		"ggplot2": true, "dplyr": true, "leaflet": true, "tidyr": true,
		"plotly": true, "shiny": true, "tmap": true,
	},
	"html": {
		"bootstrap": true, "chart.js": true, "leaflet": true, "d3": true,
		"reveal.js": true, "alpinejs": true, "tailwindcss": true,
	},
}

// ValidateLanguage lower-cases the requested language and checks it
// against the supported set. Unsupported languages fall back to python
// with a logged warning, never an error.
func (g *Generator) ValidateLanguage(lang string) string {
	normalized := strings.ToLower(strings.TrimSpace(lang))
	switch normalized {
	case "py":
		normalized = "python"
	case "js":
		normalized = "javascript"
	case "ts":
		normalized = "typescript"
	}
	if supportedLanguages[normalized] {
		return normalized
	}
	g.Logger().Warn("unsupported language requested, falling back",
		zap.String("requested", lang),
		zap.String("fallback", fallbackLanguage))
	return fallbackLanguage
}

// ValidateLibraries intersects the requested libraries with the
// language's allow-list; unsupported entries are dropped silently. An
// empty request yields the language's default set.
func (g *Generator) ValidateLibraries(lang string, requested []string) []string {
	if len(requested) == 0 {
		defaults := defaultLibraries[lang]
		out := make([]string, len(defaults))
		copy(out, defaults)
		return out
	}
	allowed := allowedLibraries[lang]
	var out []string
	for _, lib := range requested {
		normalized := strings.ToLower(strings.TrimSpace(lib))
		if allowed[normalized] {
			out = append(out, normalized)
		} else {
			g.Logger().Debug("dropped unsupported library",
				zap.String("language", lang),
				zap.String("library", lib))
		}
	}
	return out
}
