// Package storage writes downloaded images to the output directory.
//
// Files are written to a temporary name first and renamed into place, so a
// crashed download never leaves a truncated image under its final name. An
// existing file of the same name is replaced.
//
// Usage:
//
//	manager, err := storage.NewManager("output")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, err := manager.SaveFile(resp.Body, "53012345678_abcdef_o.jpg")
package storage
