package convert

import "strings"

// chartOptionKey is the document-side option naming the chart flavor; the
// flavor is encoded in the studio visualization type instead, so the option
// is consumed on the way in and re-emitted on the way out.
const chartOptionKey = "charting.chart"

var simpleKindToStudio = map[string]string{
	"table":  "splunk.table",
	"single": "splunk.singlevalue",
	"event":  "splunk.events",
	"map":    "splunk.map",
	"html":   "splunk.markdown",
}

var chartFlavorToStudio = map[string]string{
	"line":    "splunk.line",
	"area":    "splunk.area",
	"column":  "splunk.column",
	"bar":     "splunk.bar",
	"pie":     "splunk.pie",
	"scatter": "splunk.scatter",
	"bubble":  "splunk.bubble",
}

var studioToSimpleKind = invert(simpleKindToStudio)
var studioToChartFlavor = invert(chartFlavorToStudio)

// vizTypeToStudio maps a document visualization kind (plus its options) to
// a studio visualization type. Every kind maps to a defined type: charts
// map by flavor, the known simple kinds map directly, and anything already
// namespaced passes through unchanged so no type is silently lost.
func (c *Converter) vizTypeToStudio(kind string, options map[string]string) string {
	if kind == "chart" {
		flavor := options[chartOptionKey]
		if t, ok := chartFlavorToStudio[flavor]; ok {
			return t
		}
		// Unknown or missing flavor: fall back to line, the renderer's
		// own default for unqualified charts.
		c.warnf("ambiguous chart flavor %q, defaulting to line", flavor)
		return chartFlavorToStudio["line"]
	}
	if t, ok := simpleKindToStudio[kind]; ok {
		return t
	}
	if strings.Contains(kind, ".") {
		return kind
	}
	return "splunk." + kind
}

// vizTypeToDocument is the reverse mapping. It returns the document kind
// and, for charts, the flavor option to restore.
func vizTypeToDocument(studioType string) (kind, chartFlavor string) {
	if k, ok := studioToSimpleKind[studioType]; ok {
		return k, ""
	}
	if flavor, ok := studioToChartFlavor[studioType]; ok {
		return "chart", flavor
	}
	if k, ok := strings.CutPrefix(studioType, "splunk."); ok && !strings.Contains(k, ".") {
		return k, ""
	}
	return studioType, ""
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
