// Package report runs YAML job files. A job names an ONS registrations
// workbook and region, optional NHS vaccinations and OxCGRT policy sources,
// and a list of charts. The runner estimates fatal infections once, then
// fits, renders and exports every chart of the job.
//
// Example job:
//
//	title: Fatal COVID-19 infections (England)
//	output: england
//	source:
//	  workbook: publishedweek1820211.xlsx
//	  region: England
//	  start_row: 4
//	  end_row: 436
//	charts:
//	  - name: england_waves
//	    from: 2020-03-01
//	    to: 2021-03-31
//	    show_deaths: true
//	    fits:
//	      - label: Lockdown 1
//	        from: 2020-03-24
//	        to: 2020-05-15
package report
