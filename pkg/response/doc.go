/*
Package response streams result sets to clients as JSON, JSON-API or CSV.

# Formats

All three formats are produced in a single pass over the result set. Only one
row is shaped in memory at a time; the JSON-API side tables are the exception
and grow with the number of distinct dimension members, not with the number
of rows.

JSON (flat):

	{
	  "rows": [
	    {"dateTime": "2024-01-01 00:00:00.000", "country|id": "US", "country|name": "United States", "clicks": 42}
	  ],
	  "meta": {...}
	}

JSON-API (dimension values by key, with one side table per dimension):

	{
	  "rows": [
	    {"dateTime": "2024-01-01 00:00:00.000", "country": "US", "clicks": 42}
	  ],
	  "country": [
	    {"id": "US", "name": "United States"}
	  ],
	  "meta": {...}
	}

CSV:

	dateTime,country|id,country|name,clicks
	2024-01-01 00:00:00.000,US,United States,42

# Meta Block

JSON and JSON-API documents carry a "meta" member only when there is something
to report: missing intervals (when partial-data reporting is on), volatile
intervals, or pagination. Each of the three members is present independently.

	"meta": {
	  "missingIntervals": ["2024-01-01 00:00:00.000/2024-01-01 01:00:00.000"],
	  "volatileIntervals": ["..."],
	  "pagination": {"next": "http://...", "currentPage": 1, "rowsPerPage": 10, "numberOfResults": 35}
	}

# Usage

	data := response.NewData(resultSet, response.Options{
	    MetricNames:     []string{"clicks"},
	    DimensionFields: []response.DimensionFields{{Dimension: country, Fields: fields}},
	    Format:          response.FormatCSV,
	    Namer:           namer, // shared, one per process
	})
	if err := data.Write(w); err != nil {
	    // bytes may already have been sent
	}

A Data value writes exactly once. Any sink failure aborts the stream and is
returned as a *WriteError; partial output is not retracted.
*/
package response
