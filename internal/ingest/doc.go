// Package ingest loads scenario inputs from files.
//
// A scenario is a YAML file naming a well, a period, the pressure CSV, an
// optional purge marker CSV, the choke diameter and the manual corrections:
//
//	id: base
//	well_id: "1234"
//	period_start: 2025-01-01T00:00:00Z
//	period_end: 2025-01-31T23:59:59Z
//	choke_mm: 12.7
//	pressure_file: pressure.csv
//	markers_file: purges.csv
//	separator: ";"
//	timezone: Asia/Tashkent
//	exclude_purge_ids: m-3,a-7
//	corrections:
//	  - type: exclude
//	    time_start: 2025-01-10T00:00:00Z
//	    time_end: 2025-01-10T06:00:00Z
//
// Catalog reads every scenario and its CSV files once and then serves them
// through the services ports.
package ingest
