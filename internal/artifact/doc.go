// Package artifact stores crawl screenshots under the key
// screenshot/{id}.jpg, either in an S3-compatible bucket or on local disk.
//
// The backend is chosen once by New from the storage configuration: a
// non-empty bucket name selects S3, anything else the local directory.
// Both backends return a reference string that is written into the webpage
// document: the public object URL for S3, the file path for local disk.
package artifact
