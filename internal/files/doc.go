// Package files finds the published input files in the data directory.
//
// A workbook named in a job or on the command line may be a glob such as
// "publishedweek*.xlsx"; Resolve picks the most recently modified match so
// a job keeps working as new weekly releases are downloaded.
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	path, err := discovery.Resolve("publishedweek*.xlsx")
package files
