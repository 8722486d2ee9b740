// Package io reads project demands and reads and writes allocation results.
//
// # Demands
//
// Demands come as JSON, CSV or XLSX. JSON is an array of objects:
//
//	[
//	  {"id": "1", "name": "Solar Car", "space_x": 6, "space_y": 4},
//	  {"id": "2", "name": "Braille Tablet", "space_x": 2, "space_y": 2}
//	]
//
// CSV files and the first sheet of an XLSX workbook are read by header, so
// column order does not matter and extra columns (supervisor, notes) are
// ignored. The recognised headers, case-insensitive:
//
//   - id (or project_id)
//   - name (or title), optional
//   - space_x (or width) and space_y (or depth)
//   - size, used when the two dimension columns are missing, e.g. "6x4",
//     "6 × 4" or "6*4"
//
// [ImportDemands] picks the reader from the file extension. Every decoded
// demand is validated; the error names the offending row.
//
// # Results
//
// [WriteResultJSON] and [ExportResult] write a pipeline.Result as indented
// JSON. [ReadResultJSON] and [ImportResult] read it back, so a run can be
// rendered again later without re-allocating.
package io
