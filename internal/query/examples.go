package query

// exampleQueries seed the UI search box placeholder and autocomplete.
var exampleQueries = []string{
	"sunset photos from last week",
	"happy dog pictures at the park",
	"wedding photos from 2023",
	"pictures from Paris",
	"snowy mountain photos",
	"birthday party pictures from last month",
	"calm lake photos at sunrise",
	"food photos from this month",
}

// ExampleQueries returns a fixed list of example search phrases.
func ExampleQueries() []string {
	out := make([]string, len(exampleQueries))
	copy(out, exampleQueries)
	return out
}
